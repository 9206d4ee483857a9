package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultMetricsAddr   = ":8000"
	DefaultDocsDir       = "docs"
	DefaultChunkWords    = 400
	DefaultChunkOverlap  = 40
	DefaultTopK          = 3
	DefaultEmbedder      = "ollama"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultGenerateModel = "llama3"
	DefaultEmbedModel    = "nomic-embed-text"
	DefaultLLMTimeout    = 90 * time.Second
	DefaultQueryLogIndex = "rag_queries"
)

// Config is the top-level configuration for the ragd binary.
// Fields map 1:1 to the "rag" section of config.example.yaml, so ragd and
// the bridge can share a single config file.
type Config struct {
	RAG RAGConfig `yaml:"rag"`
}

// RAGConfig holds all rag-side settings.
type RAGConfig struct {
	// MetricsAddr is the HTTP listen address serving /metrics, /query and
	// /healthz. This endpoint is what the bridge polls.
	MetricsAddr string `yaml:"metrics_addr"`

	// DocsDir is the directory ingested at startup and, when Watch is set,
	// watched for dropped-in documents.
	DocsDir string `yaml:"docs_dir"`

	// Watch enables the docs directory watcher.
	Watch bool `yaml:"watch"`

	// ChunkWords is the word window per indexed chunk.
	ChunkWords int `yaml:"chunk_words"`

	// ChunkOverlap is how many words consecutive chunks share.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// TopK is the number of chunks retrieved per query.
	TopK int `yaml:"top_k"`

	// Embedder selects the embedding backend: ollama (HTTP) or hash
	// (deterministic, offline).
	Embedder string `yaml:"embedder"`

	// Ollama configures the model server used for embeddings and answers.
	Ollama OllamaConfig `yaml:"ollama"`

	// QueryLog configures per-query audit documents written to the store.
	QueryLog QueryLogConfig `yaml:"query_log"`
}

// OllamaConfig points at the model server.
type OllamaConfig struct {
	// URL is the server root, e.g. "http://localhost:11434".
	URL string `yaml:"url"`

	// GenerateModel is the model name used for answer generation.
	GenerateModel string `yaml:"generate_model"`

	// EmbedModel is the model name used for embeddings.
	EmbedModel string `yaml:"embed_model"`

	// Timeout bounds each model call. Generation can take a while on
	// CPU-only hosts, so the default is generous.
	Timeout time.Duration `yaml:"timeout"`
}

// QueryLogConfig configures the query audit trail.
type QueryLogConfig struct {
	// Enabled turns query logging on.
	Enabled bool `yaml:"enabled"`

	// URL is the root of the document store's HTTP API.
	URL string `yaml:"url"`

	// Index is the index query documents are written to.
	Index string `yaml:"index"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		RAG: RAGConfig{
			MetricsAddr:  DefaultMetricsAddr,
			DocsDir:      DefaultDocsDir,
			ChunkWords:   DefaultChunkWords,
			ChunkOverlap: DefaultChunkOverlap,
			TopK:         DefaultTopK,
			Embedder:     DefaultEmbedder,
			Ollama: OllamaConfig{
				URL:           DefaultOllamaURL,
				GenerateModel: DefaultGenerateModel,
				EmbedModel:    DefaultEmbedModel,
				Timeout:       DefaultLLMTimeout,
			},
			QueryLog: QueryLogConfig{
				Index: DefaultQueryLogIndex,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	r := &cfg.RAG
	if r.MetricsAddr == "" {
		return fmt.Errorf("rag.metrics_addr is required")
	}
	if r.ChunkWords <= 0 {
		return fmt.Errorf("rag.chunk_words must be positive")
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkWords {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_words)")
	}
	if r.TopK < 1 {
		return fmt.Errorf("rag.top_k must be at least 1")
	}
	switch r.Embedder {
	case "ollama", "hash":
	default:
		return fmt.Errorf("rag.embedder must be ollama or hash, got %q", r.Embedder)
	}
	// Generation always goes through the model server, even when embeddings
	// are computed locally.
	if r.Ollama.URL == "" {
		return fmt.Errorf("rag.ollama.url is required")
	}
	if r.Ollama.GenerateModel == "" {
		return fmt.Errorf("rag.ollama.generate_model is required")
	}
	if r.Embedder == "ollama" && r.Ollama.EmbedModel == "" {
		return fmt.Errorf("rag.ollama.embed_model is required")
	}
	if r.Ollama.Timeout <= 0 {
		return fmt.Errorf("rag.ollama.timeout must be positive")
	}
	if r.QueryLog.Enabled {
		if r.QueryLog.URL == "" {
			return fmt.Errorf("rag.query_log.url is required when enabled")
		}
		if r.QueryLog.Index == "" {
			return fmt.Errorf("rag.query_log.index is required when enabled")
		}
	}
	return nil
}
