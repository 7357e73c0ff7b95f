package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nextraction/internal/chunker"
	"nextraction/internal/cleaner"
	"nextraction/internal/config"
	"nextraction/internal/domain"
	"nextraction/internal/embedding"
	"nextraction/internal/embedding/hashing"
	"nextraction/internal/embedding/ollama"
	"nextraction/internal/embedding/openai"
	"nextraction/internal/fetch"
	"nextraction/internal/generation/extractive"
	"nextraction/internal/generation/gemini"
	genopenai "nextraction/internal/generation/openai"
	"nextraction/internal/service"
	"nextraction/internal/vectorstore/memory"
)

// app is the assembled runtime.
type app struct {
	svc     *service.RAGService
	fetcher *fetch.Fetcher
}

func buildApp(cfg *config.AppConfig, log *slog.Logger) (*app, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewWordChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	gen, err := buildGenerator(cfg, log)
	if err != nil {
		return nil, err
	}
	f := fetch.New(fetch.Options{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		Delay:     cfg.FetchDelay(),
		Logger:    log,
	})

	c := service.Components{
		Fetcher:   f,
		Cleaner:   cleaner.New(),
		Chunker:   ch,
		Embedder:  emb,
		Index:     memory.NewIndex(cfg.Embedder.Dimension),
		Generator: gen,
	}
	svc := service.NewRAGService(c, service.Options{
		IndexPath:       cfg.Index.Path,
		GenerateTimeout: cfg.GenerateTimeout(),
		Logger:          log,
	})
	if _, err := svc.LoadIndex(); err != nil {
		return nil, err
	}
	return &app{svc: svc, fetcher: f}, nil
}

func buildEmbedder(cfg *config.AppConfig) (*embedding.Gateway, error) {
	dim := cfg.Embedder.Dimension
	var load embedding.Loader
	switch cfg.Embedder.Type {
	case "hashing", "":
		load = func(context.Context) (embedding.Model, error) { return hashing.NewEmbedder(dim) }
	case "openai":
		oc := cfg.Embedder.OpenAI
		load = func(context.Context) (embedding.Model, error) {
			return openai.NewClient(openai.Config{
				BaseURL:   oc.BaseURL,
				APIKeyEnv: oc.APIKeyEnv,
				Model:     oc.Model,
				Dimension: dim,
				Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			})
		}
	case "ollama":
		olc := cfg.Embedder.Ollama
		load = func(context.Context) (embedding.Model, error) {
			return ollama.NewClient(ollama.Config{
				BaseURL:    olc.BaseURL,
				Model:      olc.Model,
				Timeout:    time.Duration(olc.TimeoutSecs) * time.Second,
				MaxRetries: olc.MaxRetries,
			}), nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrInvalidConfiguration, cfg.Embedder.Type)
	}
	return embedding.NewGateway(dim, load), nil
}

// buildGenerator returns nil when no back-end is configured; a missing API key
// is a warning, not an error, so the service can still answer from raw context.
func buildGenerator(cfg *config.AppConfig, log *slog.Logger) (domain.Generator, error) {
	gc := cfg.Generator
	var (
		gen domain.Generator
		err error
	)
	switch gc.Type {
	case "none":
		return nil, nil
	case "extractive":
		return extractive.New(gc.MaxSentences), nil
	case "gemini", "":
		var c *gemini.Client
		c, err = gemini.NewClient(gemini.Config{
			BaseURL:   gc.Gemini.BaseURL,
			APIKeyEnv: gc.Gemini.APIKeyEnv,
			Model:     gc.Gemini.Model,
			Timeout:   cfg.GenerateTimeout(),
		})
		if err == nil {
			gen = c
		}
	case "openai":
		var c *genopenai.Client
		c, err = genopenai.NewClient(genopenai.Config{
			BaseURL:   gc.OpenAI.BaseURL,
			APIKeyEnv: gc.OpenAI.APIKeyEnv,
			Model:     gc.OpenAI.Model,
			Timeout:   cfg.GenerateTimeout(),
		})
		if err == nil {
			gen = c
		}
	default:
		return nil, fmt.Errorf("%w: unknown generator: %s", domain.ErrInvalidConfiguration, gc.Type)
	}
	if errors.Is(err, domain.ErrGenerationUnavailable) {
		log.Warn("generator not configured, answers will quote raw context", "generator", gc.Type, "err", err)
		return nil, nil
	}
	return gen, err
}
