package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/chunker"
	"lawrag/internal/domain"
	"lawrag/internal/vectorstore/memory"
)

type hashEmbedder struct {
	failures int
	calls    int
}

func (h *hashEmbedder) Name() string   { return "hash" }
func (h *hashEmbedder) Dimension() int { return 4 }

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (h *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	h.calls++
	if h.failures > 0 {
		h.failures--
		return nil, errors.New("embedding backend hiccup")
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		for j, r := range t {
			v[j%4] += float32(r%13) / 13
		}
		vecs[i] = v
	}
	return vecs, nil
}

type failingStore struct {
	*memory.Store
}

func (f *failingStore) Upsert(context.Context, []domain.Chunk, [][]float32) error {
	return errors.New("index write refused")
}

const ingestCorpus = `{"Laws": [
  {"LawName": "中華民國刑法", "LawCategory": "刑事", "LawArticles": [
    {"ArticleType": "C", "ArticleContent": "第 三十二 章 詐欺背信及重利罪"},
    {"ArticleType": "A", "ArticleNo": "第 339 條", "ArticleContent": "意圖為自己或第三人不法之所有，以詐術使人將本人或第三人之物交付者，處五年以下有期徒刑。"},
    {"ArticleType": "A", "ArticleNo": "第 320 條", "ArticleContent": "意圖為自己或第三人不法之所有，而竊取他人之動產者，為竊盜罪。"}
  ]},
  {"LawName": "民法", "LawArticles": [
    {"ArticleType": "A", "ArticleNo": "第 184 條", "ArticleContent": "因故意或過失，不法侵害他人之權利者，負損害賠償責任。"}
  ]}
]}`

func writeIngestCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chlaw.json")
	require.NoError(t, os.WriteFile(path, []byte(ingestCorpus), 0o644))
	return path
}

func newIngestor(embedder domain.Embedder, store domain.VectorStore, opts IngestOptions) *Ingestor {
	return NewIngestor(chunker.New(1000, 200), embedder, store, opts, nil)
}

func TestIngestRun(t *testing.T) {
	store := memory.NewStore()
	ing := newIngestor(&hashEmbedder{}, store, IngestOptions{BatchSize: 2, Workers: 2, MaxRetries: 1})

	report, err := ing.Run(context.Background(), writeIngestCorpus(t))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Laws)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 3, report.ChunksWritten)
	assert.Equal(t, 0, report.ChunksFailed)
	assert.Equal(t, 3, store.Len())
}

func TestIngestIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	path := writeIngestCorpus(t)
	ing := newIngestor(&hashEmbedder{}, store, IngestOptions{BatchSize: 2, Workers: 2, MaxRetries: 1})

	first, err := ing.Run(context.Background(), path)
	require.NoError(t, err)
	second, err := ing.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksWritten, second.ChunksWritten)
	// rerunning unchanged input must not grow the index
	assert.Equal(t, 3, store.Len())
}

func TestIngestRetriesTransientEmbedFailure(t *testing.T) {
	store := memory.NewStore()
	emb := &hashEmbedder{failures: 1}
	ing := newIngestor(emb, store, IngestOptions{BatchSize: 64, Workers: 1, MaxRetries: 2})

	report, err := ing.Run(context.Background(), writeIngestCorpus(t))
	require.NoError(t, err)
	assert.Equal(t, 3, report.ChunksWritten)
	assert.Equal(t, 2, emb.calls)
}

func TestIngestMarksFailedBatches(t *testing.T) {
	inner := memory.NewStore()
	ing := newIngestor(&hashEmbedder{}, &failingStore{inner}, IngestOptions{BatchSize: 64, Workers: 1, MaxRetries: 1})

	report, err := ing.Run(context.Background(), writeIngestCorpus(t))
	require.Error(t, err)
	assert.Equal(t, 3, report.ChunksFailed)
	assert.Equal(t, 0, report.ChunksWritten)
}

func TestIngestMalformedCorpusWritesNothing(t *testing.T) {
	store := memory.NewStore()
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Laws": [`), 0o644))
	ing := newIngestor(&hashEmbedder{}, store, IngestOptions{BatchSize: 2, Workers: 2, MaxRetries: 1})

	_, err := ing.Run(context.Background(), path)
	var cfe *domain.CorpusFormatError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, 0, store.Len())
}
