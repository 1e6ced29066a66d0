package domain

import "context"

// Embedder converts text into a fixed-length vector representation.
// The same embedder (model and dimension) must be used at ingestion and
// query time; mixing dimensions in one index is a configuration error.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunk vectors and answers nearest-neighbor queries.
// Upsert replaces entries with the same chunk ID rather than duplicating them.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredChunk, error)
}

// Generator produces a free-text completion for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits a statute record into indexable chunks.
type Chunker interface {
	Chunk(record StatuteRecord) []Chunk
}
