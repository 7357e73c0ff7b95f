package domain

import (
	"context"
	"fmt"
)

// NoInformation is the fixed answer given when the knowledge base has nothing relevant.
const NoInformation = "no information on this topic in the knowledge base"

// Metadata is the open key/value bag stored next to every indexed passage.
type Metadata map[string]any

// Passage is a word-window slice of a source document.
type Passage struct {
	Text   string
	Source string
	Index  int
}

// Metadata returns the metadata recorded for the passage at ingestion time.
func (p Passage) Metadata() Metadata {
	return Metadata{
		"url":         p.Source,
		"chunk_index": p.Index,
		"char_count":  CharCount(p.Text),
	}
}

// Neighbor is a raw search result: entry ordinal and squared L2 distance.
type Neighbor struct {
	Ordinal  int
	Distance float64
}

// SearchHit represents a matching passage with its distance and relevance score.
type SearchHit struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
	Score    float64  `json:"score"`
}

// IndexStats is the status surface of the vector index.
type IndexStats struct {
	Entries        int
	Dimension      int
	EstimatedBytes int64
}

// SizeKB formats the estimated footprint the way the stats endpoint reports it.
func (s IndexStats) SizeKB() string {
	return fmt.Sprintf("%.2f KB", float64(s.EstimatedBytes)/1024)
}

// Prompt carries the question and retrieved context handed to a generator.
type Prompt struct {
	Question string
	Context  string
}

// Chunker splits cleaned text into passage texts.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Embedder converts free text into fixed-dimension vectors.
type Embedder interface {
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores vectors with their passage text and metadata and supports exact search.
type Index interface {
	Add(vector []float32, text string, metadata Metadata) (int, error)
	AddMany(vectors [][]float32, texts []string, metadatas []Metadata) (int, error)
	Search(query []float32, k int) ([]Neighbor, error)
	SearchTexts(query []float32, k int) ([]string, error)
	SearchWithScore(query []float32, k int) ([]SearchHit, error)
	Persist(path string) error
	Restore(path string) (bool, error)
	Stats() IndexStats
}

// Fetcher retrieves the main textual content of a web page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Cleaner normalizes raw page text. It never fails.
type Cleaner interface {
	Clean(raw string) string
}

// Generator produces an answer from a question and its retrieved context.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
