package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"lawrag/internal/corpus"
	"lawrag/internal/domain"
)

// IngestOptions holds batching policy for ingestion runs.
type IngestOptions struct {
	BatchSize  int
	Workers    int
	MaxRetries int
}

// Ingestor orchestrates corpus loading, chunking, batch embedding and index
// upserts. Batches are independent; committed batches are never rolled back,
// which is safe because upserts are idempotent by chunk ID.
type Ingestor struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	opts     IngestOptions
	log      *log.Logger
}

func NewIngestor(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, opts IngestOptions, logger *log.Logger) *Ingestor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{chunker: chunker, embedder: embedder, store: store, opts: opts, log: logger}
}

// Run ingests the corpus at path. A malformed corpus aborts before any
// writes. A batch that exhausts its retries marks its chunks failed and the
// run error, but does not undo batches already committed.
func (ing *Ingestor) Run(ctx context.Context, path string) (domain.IngestionReport, error) {
	start := time.Now()
	report := domain.IngestionReport{}

	records, err := corpus.Load(path)
	if err != nil {
		return report, err
	}
	report.Laws = corpus.LawCount(records)
	report.Records = len(records)

	var chunks []domain.Chunk
	for _, rec := range records {
		chunks = append(chunks, ing.chunker.Chunk(rec)...)
	}
	ing.log.Info("corpus loaded", "laws", report.Laws, "articles", report.Records, "chunks", len(chunks))

	batches := splitBatches(chunks, ing.opts.BatchSize)
	if len(batches) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	// The first batch runs alone: its vectors reveal the embedding dimension
	// the index must be initialized with before any upsert.
	vectors, err := ing.embedBatch(ctx, batches[0])
	if err != nil {
		report.ChunksFailed = len(chunks)
		report.Duration = time.Since(start)
		return report, err
	}
	if err := ing.store.Init(ctx, len(vectors[0])); err != nil {
		report.ChunksFailed = len(chunks)
		report.Duration = time.Since(start)
		return report, err
	}

	var written, failed atomic.Int64
	commit := func(batchNo int, batch []domain.Chunk, vectors [][]float32) error {
		if err := ing.upsertBatch(ctx, batch, vectors); err != nil {
			failed.Add(int64(len(batch)))
			ing.log.Error("batch failed", "batch", batchNo, "chunks", len(batch), "err", err)
			return err
		}
		written.Add(int64(len(batch)))
		ing.log.Info("batch committed", "batch", batchNo, "total", len(batches), "chunks", len(batch))
		return nil
	}

	runErr := commit(0, batches[0], vectors)

	// Remaining batches are embedded and upserted with bounded parallelism.
	// A failed batch does not cancel its siblings; partial progress stands.
	var g errgroup.Group
	g.SetLimit(ing.opts.Workers)
	for i := 1; i < len(batches); i++ {
		g.Go(func() error {
			vecs, err := ing.embedBatch(ctx, batches[i])
			if err != nil {
				failed.Add(int64(len(batches[i])))
				ing.log.Error("batch embed failed", "batch", i, "err", err)
				return err
			}
			return commit(i, batches[i], vecs)
		})
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	report.ChunksWritten = int(written.Load())
	report.ChunksFailed = int(failed.Load())
	report.Duration = time.Since(start)
	if runErr != nil {
		return report, fmt.Errorf("ingestion incomplete: %w", runErr)
	}
	return report, nil
}

func (ing *Ingestor) embedBatch(ctx context.Context, batch []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}
	var vectors [][]float32
	err := ing.withRetry(ctx, func() error {
		var err error
		vectors, err = ing.embedder.EmbedBatch(ctx, texts)
		return err
	})
	return vectors, err
}

func (ing *Ingestor) upsertBatch(ctx context.Context, batch []domain.Chunk, vectors [][]float32) error {
	return ing.withRetry(ctx, func() error {
		return ing.store.Upsert(ctx, batch, vectors)
	})
}

// withRetry runs fn up to MaxRetries+1 times with exponential backoff.
// Dimension mismatches are configuration errors and never retried.
func (ing *Ingestor) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= ing.opts.MaxRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		if isFatal(err) {
			return err
		}
		if attempt < ing.opts.MaxRetries {
			time.Sleep(retryDelay(attempt))
		}
	}
	return err
}

func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrDimensionMismatch)
}

func splitBatches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func retryDelay(attempt int) time.Duration {
	base := 500 * time.Millisecond
	d := base << attempt
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}
