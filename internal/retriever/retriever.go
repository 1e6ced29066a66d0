package retriever

import (
	"context"
	"fmt"
	"sort"

	"lawrag/internal/domain"
)

// Options holds the ranking policy. Overfetch widens the candidate pool
// requested from the index so that threshold filtering still leaves TopK
// passages when possible.
type Options struct {
	TopK           int
	ScoreThreshold float32
	Overfetch      int
}

// Retriever embeds a query and performs a thresholded nearest-neighbor
// search against the vector store.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
	opts     Options
}

func New(embedder domain.Embedder, store domain.VectorStore, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = 1
	}
	return &Retriever{embedder: embedder, store: store, opts: opts}
}

// Retrieve returns up to TopK passages with score >= ScoreThreshold, ordered
// by non-increasing similarity. An empty result is a normal outcome meaning
// no relevant statute was found, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievedPassage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dim := r.embedder.Dimension(); dim != 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector is %d-d, embedder reports %d-d",
			domain.ErrDimensionMismatch, len(vector), dim)
	}

	candidates, err := r.store.Search(ctx, vector, r.opts.TopK*r.opts.Overfetch)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	passages := make([]domain.RetrievedPassage, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < r.opts.ScoreThreshold {
			continue
		}
		passages = append(passages, domain.RetrievedPassage{
			LawName:   c.Chunk.LawName,
			ArticleNo: c.Chunk.ArticleNo,
			Text:      c.Chunk.Text,
			Score:     c.Score,
		})
	}
	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })
	if len(passages) > r.opts.TopK {
		passages = passages[:r.opts.TopK]
	}
	return passages, nil
}
