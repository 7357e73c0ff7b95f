package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextraction/internal/chunker"
	"nextraction/internal/cleaner"
	"nextraction/internal/domain"
	"nextraction/internal/vectorstore/memory"
)

const testDim = 8

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.pages[url], nil
}

// fakeEmbedder hashes text into a deterministic vector.
type fakeEmbedder struct {
	dim    int
	failOn func(string) bool
}

func (e fakeEmbedder) Dimension() int { return e.dim }

func (e fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failOn != nil && e.failOn(text) {
		return nil, fmt.Errorf("%w: refused", domain.ErrEmbeddingFailed)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32((seed>>(uint(i)*7))&0x7f) / 127
	}
	return v, nil
}

func (e fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	block   bool
	prompts []domain.Prompt
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.answer, g.err
}

func words(n int, prefix string) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return strings.Join(w, " ")
}

type harness struct {
	svc   *RAGService
	index *memory.Index
	path  string
}

func newHarness(t *testing.T, f domain.Fetcher, e domain.Embedder, g domain.Generator) harness {
	t.Helper()
	ch, err := chunker.NewWordChunker(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	idx := memory.NewIndex(testDim)
	path := filepath.Join(t.TempDir(), "store", "base")
	c := Components{Fetcher: f, Cleaner: cleaner.New(), Chunker: ch, Embedder: e, Index: idx}
	if g != nil {
		c.Generator = g
	}
	svc := NewRAGService(c, Options{IndexPath: path, GenerateTimeout: 50 * time.Millisecond})
	return harness{svc: svc, index: idx, path: path}
}

func TestIngest310WordsYieldsTwoChunks(t *testing.T) {
	page := words(310, "w")
	h := newHarness(t, fakeFetcher{pages: map[string]string{"https://a": page}}, fakeEmbedder{dim: testDim}, nil)

	rep := h.svc.Ingest(context.Background(), []string{"https://a"})

	assert.Equal(t, "completed", rep.Status)
	assert.Equal(t, 1, rep.TotalURLs)
	assert.Equal(t, 1, rep.Successful)
	assert.Equal(t, 2, rep.TotalVectors)
	require.Len(t, rep.Results, 1)
	assert.True(t, rep.Results[0].Succeeded())
	assert.Equal(t, 2, rep.Results[0].ChunksAdded)
	assert.Equal(t, len(page), rep.Results[0].TotalChars)

	restored := memory.NewIndex(testDim)
	found, err := restored.Restore(h.path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, restored.Len())
}

func TestIngestIsolatesFailures(t *testing.T) {
	f := fakeFetcher{
		pages: map[string]string{
			"https://short": "too short",
			"https://good":  words(20, "good") + " padding words to be sure",
		},
		errs: map[string]error{"https://down": fmt.Errorf("%w: timeout", domain.ErrFetchFailed)},
	}
	h := newHarness(t, f, fakeEmbedder{dim: testDim}, nil)

	rep := h.svc.Ingest(context.Background(), []string{"https://down", "https://short", "https://good"})

	require.Len(t, rep.Results, 3)
	assert.Equal(t, 3, rep.TotalURLs)
	assert.Equal(t, 1, rep.Successful)
	for _, r := range rep.Results[:2] {
		assert.False(t, r.Succeeded(), r.URL)
		assert.Equal(t, ReasonInsufficientContent, r.Reason())
	}
	assert.Equal(t, 1, rep.Results[2].ChunksAdded)
	assert.Equal(t, 1, rep.TotalVectors)
}

func TestIngestSkipsFailedChunksOnly(t *testing.T) {
	page := words(600, "x")
	emb := fakeEmbedder{dim: testDim, failOn: func(s string) bool { return strings.HasPrefix(s, "x298") }}
	h := newHarness(t, fakeFetcher{pages: map[string]string{"u": page}}, emb, nil)

	rep := h.svc.Ingest(context.Background(), []string{"u"})

	require.Len(t, rep.Results, 1)
	r := rep.Results[0]
	assert.True(t, r.Succeeded())
	// Windows start at 0, 298 and 596; the middle one fails to embed.
	assert.Equal(t, 2, r.ChunksAdded)
	assert.Equal(t, 2, rep.TotalVectors)
}

func TestIngestCleanedToNothingAddsOneEmptyPassage(t *testing.T) {
	// Every line is at most 30 characters, so the cleaner drops them all.
	page := strings.Repeat("short line of text here\n", 10)
	h := newHarness(t, fakeFetcher{pages: map[string]string{"u": page}}, fakeEmbedder{dim: testDim}, nil)

	rep := h.svc.Ingest(context.Background(), []string{"u"})

	require.Len(t, rep.Results, 1)
	assert.True(t, rep.Results[0].Succeeded())
	// Blank text still forms a single, empty passage.
	assert.Equal(t, 1, rep.Results[0].ChunksAdded)
	assert.Equal(t, 0, rep.Results[0].TotalChars)
	assert.Equal(t, 1, rep.TotalVectors)
}

func TestAnswerEmptyIndex(t *testing.T) {
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, &fakeGenerator{answer: "unused"})
	assert.Equal(t, domain.NoInformation, h.svc.Answer(context.Background(), "what is X"))
}

func seed(t *testing.T, h harness, texts ...string) {
	t.Helper()
	emb := fakeEmbedder{dim: testDim}
	for i, text := range texts {
		v, err := emb.Embed(context.Background(), text)
		require.NoError(t, err)
		_, err = h.index.Add(v, text, domain.Passage{Text: text, Source: "seed", Index: i}.Metadata())
		require.NoError(t, err)
	}
}

func TestAnswerFailingGeneratorTruncatesTo500(t *testing.T) {
	passage := strings.Repeat("é", 700)
	g := &fakeGenerator{err: fmt.Errorf("%w: boom", domain.ErrGenerationFailed)}
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, g)
	seed(t, h, passage)

	got := h.svc.Answer(context.Background(), "anything")
	assert.Equal(t, FallbackPrefix+strings.Repeat("é", 500)+"...", got)
}

func TestAnswerWithoutGeneratorTruncatesTo1000(t *testing.T) {
	passage := words(300, "p")
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, nil)
	seed(t, h, passage)

	got := h.svc.Answer(context.Background(), "anything")
	assert.Equal(t, FallbackPrefix+passage[:1000]+"...", got)
}

func TestAnswerGeneratorTimeoutFallsBack(t *testing.T) {
	g := &fakeGenerator{block: true}
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, g)
	seed(t, h, "a passage long enough to quote back")

	got := h.svc.Answer(context.Background(), "q")
	assert.Equal(t, FallbackPrefix+"a passage long enough to quote back...", got)
}

func TestAnswerEmptyGenerationFallsBack(t *testing.T) {
	g := &fakeGenerator{answer: "   "}
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, g)
	seed(t, h, "only passage")

	assert.Equal(t, FallbackPrefix+"only passage...", h.svc.Answer(context.Background(), "q"))
}

func TestAnswerUsesTopThreePassages(t *testing.T) {
	g := &fakeGenerator{answer: "generated"}
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, g)
	seed(t, h, "one", "two", "three", "four", "five", "six")

	got := h.svc.Answer(context.Background(), "one")
	assert.Equal(t, "generated", got)

	require.Len(t, g.prompts, 1)
	p := g.prompts[0]
	assert.Equal(t, "one", p.Question)
	parts := strings.Split(p.Context, "\n\n")
	require.Len(t, parts, 3)
	// The exact match is the nearest passage.
	assert.Equal(t, "one", parts[0])
}

func TestAnswerDiagnostics(t *testing.T) {
	failing := fakeEmbedder{dim: testDim, failOn: func(string) bool { return true }}
	h := newHarness(t, fakeFetcher{}, failing, nil)
	assert.True(t, strings.HasPrefix(h.svc.Answer(context.Background(), "q"), "embedding error: "))

	wrongDim := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim / 2}, nil)
	seed(t, wrongDim, "something")
	got := wrongDim.svc.Answer(context.Background(), "q")
	assert.True(t, strings.HasPrefix(got, "search error: "), got)
}

func TestLoadIndexCorruptedStartsEmpty(t *testing.T) {
	h := newHarness(t, fakeFetcher{}, fakeEmbedder{dim: testDim}, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(h.path), 0o755))
	require.NoError(t, os.WriteFile(h.path+".index", []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(h.path+".data", []byte("garbage"), 0o644))

	found, err := h.svc.LoadIndex()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, h.svc.Stats().Entries)
}

func TestLoadIndexRoundTrip(t *testing.T) {
	h := newHarness(t, fakeFetcher{pages: map[string]string{"u": words(40, "z")}}, fakeEmbedder{dim: testDim}, nil)
	h.svc.Ingest(context.Background(), []string{"u"})

	fresh := NewRAGService(Components{
		Fetcher:  fakeFetcher{},
		Cleaner:  cleaner.New(),
		Embedder: fakeEmbedder{dim: testDim},
		Index:    memory.NewIndex(testDim),
	}, Options{IndexPath: h.path})
	found, err := fresh.LoadIndex()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, fresh.Stats().Entries)

	hits, err := fresh.Search(context.Background(), words(40, "z"), 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "u", hits[0].Metadata["url"])
}

func TestReportJSONShapes(t *testing.T) {
	rep := newReport([]URLResult{
		{URL: "a", ChunksAdded: 0, TotalChars: 12},
		{URL: "b", Err: errors.New(ReasonInsufficientContent)},
	}, 7)
	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "completed",
		"results": [
			{"url": "a", "status": "success", "chunks_added": 0, "total_chars": 12},
			{"url": "b", "status": "failed", "reason": "insufficient content"}
		],
		"total_urls": 2,
		"successful": 1,
		"total_vectors": 7
	}`, string(raw))
}

func TestNewRAGServiceDefaultsGenerateTimeout(t *testing.T) {
	svc := NewRAGService(Components{}, Options{})
	assert.Equal(t, DefaultGenerateTimeout, svc.timeout)
	assert.NotNil(t, svc.log)

	svc = NewRAGService(Components{}, Options{GenerateTimeout: time.Second})
	assert.Equal(t, time.Second, svc.timeout)
}
