package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embeddings endpoint.
// Dimension, when non-zero, is enforced against what the endpoint returns.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Addr        string `yaml:"addr"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// OllamaConfig configures the Ollama generation endpoint. Temperature is a
// pointer so an explicit 0 (deterministic sampling) survives defaulting.
type OllamaConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// GeminiConfig configures the Gemini generation backend. The API key is
// taken from the GEMINI_API_KEY environment variable by the client itself.
type GeminiConfig struct {
	Model string `yaml:"model"`
}

// GeneratorConfig selects and configures the generative model client.
type GeneratorConfig struct {
	Type   string        `yaml:"type"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
}

// RetrievalConfig holds the ranking policy knobs. ScoreThreshold is a
// pointer so an explicit 0 (keep every candidate) survives defaulting.
type RetrievalConfig struct {
	TopK           int      `yaml:"top_k"`
	ScoreThreshold *float32 `yaml:"score_threshold"`
	Overfetch      int      `yaml:"overfetch"`
}

// IngestConfig holds batching and chunking policy for ingestion runs.
type IngestConfig struct {
	BatchSize     int `yaml:"batch_size"`
	Workers       int `yaml:"workers"`
	MaxRetries    int `yaml:"max_retries"`
	MaxChunkChars int `yaml:"max_chunk_chars"`
	OverlapChars  int `yaml:"overlap_chars"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      string            `yaml:"corpus"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Server      ServerConfig      `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lawrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/lawrag/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lawrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "bge-large-zh-v1.5",
		},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: &QdrantConfig{
				Addr:       "localhost:6334",
				Collection: "taiwan_law",
			},
		},
		Generator: GeneratorConfig{
			Type: "ollama",
			Ollama: &OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "gpt-oss:20b",
			},
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.Addr == "" {
			cfg.VectorStore.Qdrant.Addr = "localhost:6334"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "taiwan_law"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
	if cfg.Generator.Type == "ollama" {
		if cfg.Generator.Ollama == nil {
			cfg.Generator.Ollama = &OllamaConfig{}
		}
		if cfg.Generator.Ollama.BaseURL == "" {
			cfg.Generator.Ollama.BaseURL = "http://localhost:11434"
		}
		if cfg.Generator.Ollama.Model == "" {
			cfg.Generator.Ollama.Model = "gpt-oss:20b"
		}
		if cfg.Generator.Ollama.Temperature == nil {
			temp := 0.7
			cfg.Generator.Ollama.Temperature = &temp
		}
		if cfg.Generator.Ollama.TimeoutSecs == 0 {
			cfg.Generator.Ollama.TimeoutSecs = 120
		}
	}
	if cfg.Generator.Type == "gemini" && cfg.Generator.Gemini == nil {
		cfg.Generator.Gemini = &GeminiConfig{Model: "gemini-2.0-flash"}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.ScoreThreshold == nil {
		threshold := float32(0.5)
		cfg.Retrieval.ScoreThreshold = &threshold
	}
	if cfg.Retrieval.Overfetch == 0 {
		cfg.Retrieval.Overfetch = 1
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 64
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.MaxRetries == 0 {
		cfg.Ingest.MaxRetries = 3
	}
	if cfg.Ingest.MaxChunkChars == 0 {
		cfg.Ingest.MaxChunkChars = 1000
	}
	if cfg.Ingest.OverlapChars == 0 {
		cfg.Ingest.OverlapChars = 200
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
