package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"lawrag/internal/chunker"
	"lawrag/internal/config"
	"lawrag/internal/domain"
	"lawrag/internal/embedding/openai"
	"lawrag/internal/llm/gemini"
	"lawrag/internal/llm/ollama"
	"lawrag/internal/pipeline"
	"lawrag/internal/retriever"
	"lawrag/internal/server"
	"lawrag/internal/vectorstore/memory"
	"lawrag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, ingestPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/lawrag/config.yaml if not provided)")
	flag.StringVar(&ingestPath, "ingest", "", "Path to a ChLaw corpus JSON; runs ingestion instead of serving")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "lawrag"})

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	emb, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("embedder init failed", "err", err)
	}

	store := buildStore(cfg, logger)

	if ingestPath != "" {
		ing := pipeline.NewIngestor(
			chunker.New(cfg.Ingest.MaxChunkChars, cfg.Ingest.OverlapChars),
			emb, store,
			pipeline.IngestOptions{
				BatchSize:  cfg.Ingest.BatchSize,
				Workers:    cfg.Ingest.Workers,
				MaxRetries: cfg.Ingest.MaxRetries,
			},
			logger.WithPrefix("ingest"),
		)
		report, err := ing.Run(context.Background(), ingestPath)
		if err != nil {
			logger.Fatal("ingestion failed", "err", err,
				"written", report.ChunksWritten, "failed", report.ChunksFailed)
		}
		logger.Info("ingestion complete",
			"laws", report.Laws, "articles", report.Records,
			"chunks_written", report.ChunksWritten, "chunks_failed", report.ChunksFailed,
			"duration", report.Duration)
		return
	}

	gen := buildGenerator(cfg, logger)
	ret := retriever.New(emb, store, retriever.Options{
		TopK:           cfg.Retrieval.TopK,
		ScoreThreshold: *cfg.Retrieval.ScoreThreshold,
		Overfetch:      cfg.Retrieval.Overfetch,
	})
	querier := pipeline.NewQuerier(ret, gen, logger.WithPrefix("query"))

	srv := server.New(querier, logger.WithPrefix("http"))
	if err := srv.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}

func buildStore(cfg *config.AppConfig, logger *log.Logger) domain.VectorStore {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewStore()
	case "qdrant", "":
		store, err := qdrant.Connect(qdrant.Config{
			Addr:       cfg.VectorStore.Qdrant.Addr,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
		if err != nil {
			logger.Fatal("qdrant connect failed", "err", err)
		}
		return store
	default:
		logger.Fatal("unknown vector store", "type", cfg.VectorStore.Type)
		return nil
	}
}

func buildGenerator(cfg *config.AppConfig, logger *log.Logger) domain.Generator {
	switch cfg.Generator.Type {
	case "ollama", "":
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.Generator.Ollama.BaseURL,
			Model:       cfg.Generator.Ollama.Model,
			Temperature: *cfg.Generator.Ollama.Temperature,
			MaxTokens:   cfg.Generator.Ollama.MaxTokens,
			Timeout:     time.Duration(cfg.Generator.Ollama.TimeoutSecs) * time.Second,
		})
	case "gemini":
		gen, err := gemini.NewClient(context.Background(), cfg.Generator.Gemini.Model)
		if err != nil {
			logger.Fatal("gemini init failed", "err", err)
		}
		return gen
	default:
		logger.Fatal("unknown generator", "type", cfg.Generator.Type)
		return nil
	}
}
