package chunker

import (
	"fmt"
	"strings"

	"nextraction/internal/domain"
)

const (
	// DefaultSize is the window length, in words, used for ingestion.
	DefaultSize = 300
	// DefaultOverlap is the number of words shared by consecutive windows.
	DefaultOverlap = 2
)

// WordChunker splits text into fixed-size word windows with overlap.
type WordChunker struct {
	size    int
	overlap int
}

// NewWordChunker validates the window parameters once so Chunk cannot loop forever.
func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

// Chunk implements domain.Chunker.
func (c *WordChunker) Chunk(text string) ([]string, error) {
	return Chunk(text, c.size, c.overlap)
}

// Chunk splits text on whitespace and slides a window of size words, advancing
// size-overlap words per step until the window start passes the last word.
// Text of at most size words, blank text included, yields exactly one chunk. The final window may be short.
func Chunk(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) <= size {
		return []string{strings.Join(words, " ")}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be zero or greater, got %d", domain.ErrInvalidConfiguration, overlap)
	}
	if size-overlap < 1 {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d", domain.ErrInvalidConfiguration, overlap, size)
	}
	return nil
}
