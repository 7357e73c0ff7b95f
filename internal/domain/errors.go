package domain

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrInvalidConfiguration is returned for parameters that can never make progress.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDimensionMismatch is returned when a vector length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrArityMismatch is returned when parallel batch inputs have different lengths.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrEmbeddingUnavailable is returned when the embedding model cannot be loaded.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	// ErrEmbeddingFailed is returned when encoding a specific input fails.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrIndexCorrupted is returned when an on-disk snapshot is malformed or inconsistent.
	ErrIndexCorrupted = errors.New("index snapshot corrupted")
	// ErrGenerationUnavailable is returned when the generation backend cannot be reached.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
	// ErrGenerationFailed is returned when a generation call fails or yields nothing.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrFetchFailed is returned when a page cannot be fetched or extracted.
	ErrFetchFailed = errors.New("fetch failed")
)

// CharCount counts characters the way reports and metadata expose them.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
