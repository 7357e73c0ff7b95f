// Package generation holds what every answer back-end shares: the prompt
// layout and the helpers that classify back-end failures.
package generation

import (
	"fmt"
	"strings"

	"nextraction/internal/domain"
)

// PlaceholderKey is the value shipped in sample .env files; it counts as unset.
const PlaceholderKey = "PUT_YOUR_KEY_HERE"

const promptTemplate = `You are an assistant that answers questions using only the provided context.

CONTEXT:
%s

QUESTION: %s

INSTRUCTIONS:
1. Use ONLY the information in the context.
2. If the answer is not in the context, reply exactly: "%s"
3. Be precise and concise.

ANSWER:`

// Render lays out the prompt sent to language-model back-ends.
func Render(p domain.Prompt) string {
	return fmt.Sprintf(promptTemplate, p.Context, p.Question, domain.NoInformation)
}

// KeyConfigured reports whether key holds a usable credential.
func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderKey
}

// NonEmpty turns a blank completion into ErrGenerationFailed.
func NonEmpty(backend, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s returned an empty answer", domain.ErrGenerationFailed, backend)
	}
	return text, nil
}
