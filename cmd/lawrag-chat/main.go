package main

import (
	"context"
	"flag"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"lawrag/internal/config"
	"lawrag/internal/domain"
	"lawrag/internal/embedding/openai"
	"lawrag/internal/llm/gemini"
	"lawrag/internal/llm/ollama"
	"lawrag/internal/pipeline"
	"lawrag/internal/retriever"
	"lawrag/internal/tui"
	"lawrag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/lawrag/config.yaml if not provided)")
	flag.Parse()

	// the TUI owns the terminal, keep logs in a file out of its way
	logFile, err := os.OpenFile("lawrag-chat.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatal("cannot open log file", "err", err)
	}
	defer logFile.Close()
	logger := log.NewWithOptions(logFile, log.Options{ReportTimestamp: true, Prefix: "chat"})

	var cfg *config.AppConfig
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	emb, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatal("embedder init failed", "err", err)
	}

	store, err := qdrant.Connect(qdrant.Config{
		Addr:       cfg.VectorStore.Qdrant.Addr,
		Collection: cfg.VectorStore.Qdrant.Collection,
		Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatal("qdrant connect failed", "err", err)
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "ollama", "":
		gen = ollama.NewClient(ollama.Config{
			BaseURL:     cfg.Generator.Ollama.BaseURL,
			Model:       cfg.Generator.Ollama.Model,
			Temperature: *cfg.Generator.Ollama.Temperature,
			MaxTokens:   cfg.Generator.Ollama.MaxTokens,
			Timeout:     time.Duration(cfg.Generator.Ollama.TimeoutSecs) * time.Second,
		})
	case "gemini":
		gen, err = gemini.NewClient(context.Background(), cfg.Generator.Gemini.Model)
		if err != nil {
			log.Fatal("gemini init failed", "err", err)
		}
	default:
		log.Fatal("unknown generator", "type", cfg.Generator.Type)
	}

	ret := retriever.New(emb, store, retriever.Options{
		TopK:           cfg.Retrieval.TopK,
		ScoreThreshold: *cfg.Retrieval.ScoreThreshold,
		Overfetch:      cfg.Retrieval.Overfetch,
	})
	querier := pipeline.NewQuerier(ret, gen, logger)

	if _, err := tea.NewProgram(tui.New(querier), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal("tui exited", "err", err)
	}
}
