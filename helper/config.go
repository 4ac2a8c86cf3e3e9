package helper

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration is the application configuration of a triage session.
type Configuration struct {
	LLM       LLMConfiguration       `yaml:"llm"`
	Embedding EmbeddingConfiguration `yaml:"embedding"`
	Chunking  ChunkingConfiguration  `yaml:"chunking"`
	Retrieval RetrievalConfiguration `yaml:"retrieval"`
	Research  ResearchConfiguration  `yaml:"research"`
	Search    SearchConfiguration    `yaml:"search"`
	Tracker   TrackerConfiguration   `yaml:"tracker"`
	Fetch     FetchConfiguration     `yaml:"fetch"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

type LLMConfiguration struct {
	Provider    string  `yaml:"provider"` // openai or anthropic
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type EmbeddingConfiguration struct {
	Provider   string `yaml:"provider"` // openai, local or hash
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	ModelDir   string `yaml:"model_dir"`
}

type ChunkingConfiguration struct {
	Size           int `yaml:"size"`
	Overlap        int `yaml:"overlap"`
	WebSize        int `yaml:"web_size"`
	WebOverlap     int `yaml:"web_overlap"`
	SummarySize    int `yaml:"summary_size"`
	SummaryOverlap int `yaml:"summary_overlap"`
}

type RetrievalConfiguration struct {
	TopK   int     `yaml:"top_k"`
	FetchK int     `yaml:"fetch_k"`
	Lambda float64 `yaml:"lambda"`
}

type ResearchConfiguration struct {
	NumSearchResults int `yaml:"num_search_results"`
	NumQueries       int `yaml:"num_queries"`
}

type SearchConfiguration struct {
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"engine_id"`
}

type TrackerConfiguration struct {
	Domain   string `yaml:"domain"`
	Email    string `yaml:"email"`
	Token    string `yaml:"token"`
	Project  string `yaml:"project"`
	PageSize int    `yaml:"page_size"`
}

type FetchConfiguration struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent"`
}

// Default models per provider, used when the configuration names none
const (
	DefaultOpenAIModel          = "gpt-3.5-turbo"
	DefaultAnthropicModel       = "claude-3-5-haiku-latest"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultLocalEmbeddingModel  = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultHashDimensions       = 512
)

var defaultLLMModels = map[string]string{
	"openai":    DefaultOpenAIModel,
	"anthropic": DefaultAnthropicModel,
}

var defaultEmbeddingModels = map[string]string{
	"openai": DefaultOpenAIEmbeddingModel,
	"local":  DefaultLocalEmbeddingModel,
}

// EmbeddingDimensions holds the output dimension of known embedding models.
var EmbeddingDimensions = map[string]int{
	"text-embedding-3-small":   1536,
	"text-embedding-3-large":   3072,
	"text-embedding-ada-002":   1536,
	DefaultLocalEmbeddingModel: 384,
	"BAAI/bge-small-en-v1.5":   384,
}

// DefaultConfiguration returns the configuration used when no file is given.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		LLM: LLMConfiguration{
			Provider:    "openai",
			Temperature: 0,
			MaxTokens:   1024,
		},
		Embedding: EmbeddingConfiguration{
			Provider: "openai",
			ModelDir: "./models",
		},
		Chunking: ChunkingConfiguration{
			Size:           1000,
			Overlap:        100,
			WebSize:        1500,
			WebOverlap:     150,
			SummarySize:    1500,
			SummaryOverlap: 200,
		},
		Retrieval: RetrievalConfiguration{
			TopK:   2,
			FetchK: 4,
			Lambda: 0.5,
		},
		Research: ResearchConfiguration{
			NumSearchResults: 3,
			NumQueries:       3,
		},
		Tracker: TrackerConfiguration{
			PageSize: 50,
		},
		Fetch: FetchConfiguration{
			TimeoutSeconds:    15,
			RequestsPerSecond: 2,
			UserAgent:         "triage/1.0",
		},
		LogLevel: "info",
	}
}

// Level returns the configured log level, info if it is not set.
func (c *Configuration) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// LoadConfiguration reads a YAML configuration file on top of the defaults.
// Environment variables in the file are expanded, a .env file is loaded first
// if present. Unknown keys are rejected.
func LoadConfiguration(path string) (*Configuration, error) {
	_ = godotenv.Load()

	config := DefaultConfiguration()
	if path == "" {
		config.applyEnv()
		config.ApplyProviderDefaults()
		return config, config.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError("read config", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, NewError("decode config", err)
	}

	config.applyEnv()
	config.ApplyProviderDefaults()
	return config, config.Validate()
}

// ApplyProviderDefaults fills the model names and the embedding dimension
// left empty with the defaults of the selected providers.
func (c *Configuration) ApplyProviderDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModels[c.LLM.Provider]
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModels[c.Embedding.Provider]
	}
	if c.Embedding.Dimensions == 0 {
		if c.Embedding.Provider == "hash" {
			c.Embedding.Dimensions = DefaultHashDimensions
		} else {
			c.Embedding.Dimensions = EmbeddingDimensions[c.Embedding.Model]
		}
	}
}

// applyEnv fills credentials that are commonly provided by the environment only.
func (c *Configuration) applyEnv() {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.Search.EngineID == "" {
		c.Search.EngineID = os.Getenv("GOOGLE_CSE_ID")
	}
	if c.Tracker.Token == "" {
		c.Tracker.Token = os.Getenv("JIRA_API_TOKEN")
	}
}

// Validate checks value ranges, credentials are checked by the clients using them.
func (c *Configuration) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "openai", "local", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be set for model %q", c.Embedding.Model)
	}
	for _, p := range []struct {
		name          string
		size, overlap int
	}{
		{"chunking", c.Chunking.Size, c.Chunking.Overlap},
		{"web chunking", c.Chunking.WebSize, c.Chunking.WebOverlap},
		{"summary chunking", c.Chunking.SummarySize, c.Chunking.SummaryOverlap},
	} {
		if p.size <= 0 || p.overlap < 0 || p.overlap >= p.size {
			return fmt.Errorf("%s: overlap must be in [0, size)", p.name)
		}
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.FetchK < c.Retrieval.TopK {
		return fmt.Errorf("retrieval: need 0 < top_k <= fetch_k")
	}
	if c.Retrieval.Lambda < 0 || c.Retrieval.Lambda > 1 {
		return fmt.Errorf("retrieval: lambda must be in [0, 1]")
	}
	if c.Research.NumQueries < 3 || c.Research.NumQueries > 5 {
		return fmt.Errorf("research: num_queries must be between 3 and 5")
	}
	if c.Research.NumSearchResults <= 0 {
		return fmt.Errorf("research: num_search_results must be positive")
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
