package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = "Go was designed at Google. Go has goroutines for concurrency. " +
	"The weather today is pleasant. Channels let goroutines communicate in Go."

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	got := s.Summarize(sample, 2)
	assert.Equal(t, "Go has goroutines for concurrency. Channels let goroutines communicate in Go.", got)
}

func TestSummarizeForPrefersQueryWords(t *testing.T) {
	s := NewFrequencySummarizer()
	got := s.SummarizeFor("what is the weather", sample, 1)
	assert.Equal(t, "The weather today is pleasant.", got)
}

func TestSummarizeEdgeCases(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Equal(t, "", s.Summarize("   ", 3))
	assert.Equal(t, sample, s.Summarize(sample, 10))
	assert.Equal(t, "no terminal punctuation", s.Summarize("no terminal punctuation", 0))
}
