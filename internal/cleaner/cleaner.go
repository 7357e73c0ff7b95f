package cleaner

import (
	"strings"
	"unicode"

	"nextraction/internal/domain"
)

// MinLineChars is the length a line must exceed to be kept.
const MinLineChars = 30

// Cleaner drops short or symbol-only lines and collapses whitespace.
type Cleaner struct{}

// New returns a Cleaner.
func New() Cleaner { return Cleaner{} }

// Clean implements domain.Cleaner. The output is a single space-separated line.
func (Cleaner) Clean(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if domain.CharCount(line) > MinLineChars && hasAlnum(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
