// Package summarizer ranks sentences of a context by word frequency.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences is used when callers pass a non-positive limit.
const DefaultMaxSentences = 3

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered),
// optionally biased toward the words of a question.
type FrequencySummarizer struct {
	stopwords  map[string]struct{}
	queryBoost float64
}

// NewFrequencySummarizer creates a frequency-based sentence ranker.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords(), queryBoost: 2}
}

// Summarize keeps the maxSentences most representative sentences in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) string {
	return s.SummarizeFor("", text, maxSentences)
}

// SummarizeFor is Summarize with sentences sharing words with query weighted up.
// Sentences with no overlap are still eligible, so the result is empty only for empty text.
func (s *FrequencySummarizer) SummarizeFor(query, text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.contentTokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	wanted := map[string]struct{}{}
	for _, tok := range s.contentTokens(query) {
		wanted[tok] = struct{}{}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := tokens(sent)
		total := 0.0
		for _, tok := range toks {
			w := freq[tok]
			if _, ok := wanted[tok]; ok {
				w += s.queryBoost
			}
			total += w
		}
		// Length normalisation keeps long sentences from dominating.
		if n := float64(len(toks)); n > 0 {
			total /= math.Sqrt(n)
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}

func splitSentences(text string) []string {
	var out []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if t := strings.TrimSpace(m); len(tokens(t)) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (s *FrequencySummarizer) contentTokens(text string) []string {
	toks := tokens(text)
	kept := toks[:0]
	for _, t := range toks {
		if _, stop := s.stopwords[t]; !stop {
			kept = append(kept, t)
		}
	}
	return kept
}

func tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "into", "about", "than", "so", "such", "can", "will", "just", "should", "what", "which", "who", "how", "why", "when", "where", "does", "do", "did",
		"le", "la", "les", "un", "une", "des", "du", "de", "et", "ou", "est", "sont", "que", "qui", "quoi", "dans", "sur", "pour", "par", "avec",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
