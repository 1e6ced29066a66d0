package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"lawrag/internal/domain"
)

// Store is a Qdrant-backed vector store speaking grpc. The collection is
// created on Init if missing; an existing collection with a different vector
// size is a configuration error, never silently reused.
type Store struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	timeout     time.Duration
	dimension   int
}

// Config contains connection details. Addr is the grpc port (6334 by
// default; 6333 is Qdrant's HTTP port).
type Config struct {
	Addr       string
	Collection string
	Timeout    time.Duration
}

func Connect(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6334"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	conn, err := grpc.NewClient(
		cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return &Store{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		timeout:     cfg.Timeout,
	}, nil
}

// Init ensures the collection exists with cosine distance and the given
// vector size.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	switch {
	case err == nil:
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != dimension {
			return fmt.Errorf("%w: collection %s holds %d-d vectors, embedder produces %d-d",
				domain.ErrDimensionMismatch, s.collection, size, dimension)
		}
	case status.Code(err) == codes.NotFound:
		_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(dimension),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return wrapUnavailable(err)
		}
	default:
		return wrapUnavailable(err)
	}
	s.dimension = dimension
	return nil
}

// Upsert writes chunks and their vectors as points. Point IDs are the
// deterministic chunk UUIDs, so re-ingestion replaces rather than duplicates.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ch.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"law_name":    {Kind: &qdrant.Value_StringValue{StringValue: ch.LawName}},
				"article_no":  {Kind: &qdrant.Value_StringValue{StringValue: ch.ArticleNo}},
				"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(ch.Index)}},
				"text":        {Kind: &qdrant.Value_StringValue{StringValue: ch.Text}},
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	wait := true
	resp, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	st := resp.GetResult().GetStatus()
	if st != qdrant.UpdateStatus_Acknowledged && st != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("upsert not applied, status %s", st)
	}
	return nil
}

// Search returns the limit nearest chunks with their similarity scores.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	results := make([]domain.ScoredChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		if payload == nil {
			continue
		}
		chunk := domain.Chunk{
			LawName:   payload["law_name"].GetStringValue(),
			ArticleNo: payload["article_no"].GetStringValue(),
			Index:     int(payload["chunk_index"].GetIntegerValue()),
			Text:      payload["text"].GetStringValue(),
		}
		chunk.ID = domain.ChunkID(chunk.LawName, chunk.ArticleNo, chunk.Index)
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: point.GetScore()})
	}
	return results, nil
}

func wrapUnavailable(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return err
}
