// Package service runs ingestion and question answering over the vector index.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nextraction/internal/domain"
)

const (
	// MinContentChars is the trimmed length below which a page is rejected.
	MinContentChars = 50

	retrieveK       = 5
	contextPassages = 3

	unconfiguredFallbackN = 1000
	failedFallbackN       = 500
)

// FallbackPrefix starts every reply assembled from raw context instead of a generated answer.
const FallbackPrefix = "relevant context found:\n\n"

// DefaultGenerateTimeout bounds one generation call when Options leaves the timeout zero.
const DefaultGenerateTimeout = 30 * time.Second

// Components are the collaborators the service is assembled from.
// Generator may be nil, meaning no answer back-end is configured.
type Components struct {
	Fetcher   domain.Fetcher
	Cleaner   domain.Cleaner
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Index     domain.Index
	Generator domain.Generator
}

// Options tunes the service.
type Options struct {
	// IndexPath is the snapshot base path; empty disables persistence.
	IndexPath       string
	GenerateTimeout time.Duration
	Logger          *slog.Logger
}

// RAGService owns the ingestion pipeline and the answer assembler.
type RAGService struct {
	fetcher   domain.Fetcher
	cleaner   domain.Cleaner
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     domain.Index
	generator domain.Generator

	indexPath string
	timeout   time.Duration
	log       *slog.Logger
}

// NewRAGService wires the components together.
func NewRAGService(c Components, opts Options) *RAGService {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RAGService{
		fetcher:   c.Fetcher,
		cleaner:   c.Cleaner,
		chunker:   c.Chunker,
		embedder:  c.Embedder,
		index:     c.Index,
		generator: c.Generator,
		indexPath: opts.IndexPath,
		timeout:   opts.GenerateTimeout,
		log:       opts.Logger,
	}
}

// LoadIndex restores the snapshot at the configured path. A corrupted
// snapshot is logged as a warning and the service continues with an empty index.
func (s *RAGService) LoadIndex() (bool, error) {
	if s.indexPath == "" {
		return false, nil
	}
	found, err := s.index.Restore(s.indexPath)
	switch {
	case errors.Is(err, domain.ErrIndexCorrupted):
		s.log.Warn("index snapshot is corrupted, starting with an empty index", "path", s.indexPath, "err", err)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("restore index: %w", err)
	}
	if found {
		st := s.index.Stats()
		s.log.Info("index restored", "path", s.indexPath, "entries", st.Entries)
		if st.Dimension != s.embedder.Dimension() {
			s.log.Warn("snapshot dimension differs from embedder, new passages will be rejected",
				"snapshot", st.Dimension, "embedder", s.embedder.Dimension())
		}
	} else {
		s.log.Info("no index snapshot found, starting empty", "path", s.indexPath)
	}
	return found, nil
}

// Ingest processes every URL independently; one failure never stops the rest.
func (s *RAGService) Ingest(ctx context.Context, urls []string) IngestReport {
	results := make([]URLResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, s.ingestOne(ctx, u))
	}
	return newReport(results, s.index.Stats().Entries)
}

func (s *RAGService) ingestOne(ctx context.Context, url string) URLResult {
	res := URLResult{URL: url}
	s.log.Info("processing url", "url", url)

	raw, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("fetch failed", "url", url, "err", err)
		raw = ""
	}
	if domain.CharCount(strings.TrimSpace(raw)) < MinContentChars {
		res.Err = errors.New(ReasonInsufficientContent)
		return res
	}

	cleaned := s.cleaner.Clean(raw)
	res.TotalChars = domain.CharCount(cleaned)

	chunks, err := s.chunker.Chunk(cleaned)
	if err != nil {
		res.Err = err
		return res
	}
	s.log.Debug("page chunked", "url", url, "chars", res.TotalChars, "chunks", len(chunks))

	for i, text := range chunks {
		if err := s.addPassage(ctx, domain.Passage{Text: text, Source: url, Index: i}); err != nil {
			s.log.Error("skipping chunk", "url", url, "chunk", i, "err", err)
			continue
		}
		res.ChunksAdded++
	}

	if s.indexPath != "" {
		if err := s.index.Persist(s.indexPath); err != nil {
			s.log.Error("persist failed", "url", url, "path", s.indexPath, "err", err)
			res.Err = fmt.Errorf("persist index: %w", err)
			return res
		}
	}
	s.log.Info("url ingested", "url", url, "chunks_added", res.ChunksAdded, "total_chars", res.TotalChars)
	return res
}

func (s *RAGService) addPassage(ctx context.Context, p domain.Passage) error {
	vec, err := s.embedder.Embed(ctx, p.Text)
	if err != nil {
		return err
	}
	_, err = s.index.Add(vec, p.Text, p.Metadata())
	return err
}

// Answer always returns a non-empty reply; failures become diagnostic text.
func (s *RAGService) Answer(ctx context.Context, question string) string {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Sprintf("embedding error: %v", err)
	}
	passages, err := s.index.SearchTexts(vec, retrieveK)
	if err != nil {
		return fmt.Sprintf("search error: %v", err)
	}
	if len(passages) == 0 {
		return domain.NoInformation
	}
	if len(passages) > contextPassages {
		passages = passages[:contextPassages]
	}
	joined := strings.Join(passages, "\n\n")

	if s.generator == nil {
		return fallback(joined, unconfiguredFallbackN)
	}
	answer, err := s.generate(ctx, domain.Prompt{Question: question, Context: joined})
	if err != nil {
		s.log.Warn("generation failed, returning raw context", "generator", s.generator.Name(), "err", err)
		return fallback(joined, failedFallbackN)
	}
	return answer
}

func (s *RAGService) generate(ctx context.Context, p domain.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.generator.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrGenerationFailed)
	}
	return out, nil
}

// fallback truncates text to n characters behind the fixed prefix.
func fallback(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return FallbackPrefix + string(r) + "..."
}

// Search embeds query and returns the k nearest passages with scores.
func (s *RAGService) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.SearchWithScore(vec, k)
}

// Stats returns the index status surface.
func (s *RAGService) Stats() domain.IndexStats { return s.index.Stats() }

// GeneratorName names the configured answer back-end, or "none".
func (s *RAGService) GeneratorName() string {
	if s.generator == nil {
		return "none"
	}
	return s.generator.Name()
}
