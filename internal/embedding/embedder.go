package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"nextraction/internal/domain"
)

// DefaultDimension matches all-MiniLM-L6-v2, the model the index was first built for.
const DefaultDimension = 384

// Model is a loaded embedding back-end.
type Model interface {
	Name() string
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Loader constructs a Model. It is called at most once per successful load.
type Loader func(ctx context.Context) (Model, error)

// Gateway wraps an embedding model behind a fixed-dimension contract.
// The model is loaded lazily on first use and reused afterwards.
type Gateway struct {
	dimension int
	load      Loader

	mu    sync.Mutex
	model Model
}

// NewGateway returns a gateway producing vectors of the given dimension.
func NewGateway(dimension int, load Loader) *Gateway {
	return &Gateway{dimension: dimension, load: load}
}

// Dimension implements domain.Embedder.
func (g *Gateway) Dimension() int { return g.dimension }

// Embed implements domain.Embedder.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements domain.Embedder. Output order matches input order.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model, err := g.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := model.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingFailed, model.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs", domain.ErrEmbeddingFailed, model.Name(), len(vecs), len(texts))
	}
	for i, v := range vecs {
		if err := g.check(v); err != nil {
			return nil, fmt.Errorf("%w: input %d: %v", domain.ErrEmbeddingFailed, i, err)
		}
	}
	return vecs, nil
}

// ensureModel loads the model under the lock so concurrent first callers wait
// for a single load. A failed load is not cached; the next call tries again.
func (g *Gateway) ensureModel(ctx context.Context) (Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		return g.model, nil
	}
	if g.load == nil {
		return nil, fmt.Errorf("%w: no model loader configured", domain.ErrEmbeddingUnavailable)
	}
	model, err := g.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	slog.Info("embedding model loaded", "model", model.Name(), "dimension", g.dimension)
	g.model = model
	return model, nil
}

func (g *Gateway) check(v []float32) error {
	if len(v) != g.dimension {
		return fmt.Errorf("expected dimension %d, got %d", g.dimension, len(v))
	}
	for j, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("component %d is not finite", j)
		}
	}
	return nil
}
