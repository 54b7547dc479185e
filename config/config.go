package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chatbot service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Context   ContextConfig   `mapstructure:"context"`
	Answer    AnswerConfig    `mapstructure:"answer"`
	Gate      GateConfig      `mapstructure:"gate"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig contains LLM provider settings
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai, ollama
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	EmbedTimeout    time.Duration `mapstructure:"embed_timeout"`
}

// RetrievalConfig tunes the hybrid retriever
type RetrievalConfig struct {
	TopK             int     `mapstructure:"top_k"`
	MaxExpansions    int     `mapstructure:"max_expansions"`
	SemanticWeight   float64 `mapstructure:"semantic_weight"`
	OverlapWeight    float64 `mapstructure:"overlap_weight"`
	KeywordEnabled   bool    `mapstructure:"keyword_enabled"`
	ParallelFanout   bool    `mapstructure:"parallel_fanout"`
	MaxFanoutWorkers int     `mapstructure:"max_fanout_workers"`
}

// ContextConfig tunes the context assembler
type ContextConfig struct {
	SectionMaxChars int     `mapstructure:"section_max_chars"`
	ScoreThreshold  float64 `mapstructure:"score_threshold"`
	MaxSections     int     `mapstructure:"max_sections"`
}

// AnswerConfig tunes the answer generator
type AnswerConfig struct {
	MaxHistoryTurns int `mapstructure:"max_history_turns"`
}

// GateConfig tunes the confidence scorer and gate
type GateConfig struct {
	TopSimilarityWeight float64 `mapstructure:"top_similarity_weight"`
	AvgSimilarityWeight float64 `mapstructure:"avg_similarity_weight"`
	CoverageWeight      float64 `mapstructure:"coverage_weight"`
	LengthWeight        float64 `mapstructure:"length_weight"`
	CertaintyWeight     float64 `mapstructure:"certainty_weight"`
	DiversityWeight     float64 `mapstructure:"diversity_weight"`
	GoodSimilarity      float64 `mapstructure:"good_similarity"`
	FactualThreshold    float64 `mapstructure:"factual_threshold"`
	OpenEndedThreshold  float64 `mapstructure:"open_ended_threshold"`
	MediumBand          float64 `mapstructure:"medium_band"`
}

// SessionConfig contains conversation session settings
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"` // inmemory, redis
	TTL           time.Duration `mapstructure:"ttl"`
	MaxTurns      int           `mapstructure:"max_turns"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Docstore   string         `mapstructure:"docstore"` // qdrant, memory
	CorpusPath string         `mapstructure:"corpus_path"`
	Qdrant     QdrantConfig   `mapstructure:"qdrant"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Cache      CacheConfig    `mapstructure:"cache"`
}

// QdrantConfig contains Qdrant connection settings
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimensions int    `mapstructure:"dimensions"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig contains Postgres connection settings for the feedback store
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// CacheConfig contains embedding cache settings
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // file, redis
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"` // redis backend only
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Host == "" || p.DBName == "" {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("askcampus")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ASKCAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional - defaults plus env are a valid setup
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.listen_addr", ":8080")
	v.SetDefault("general.request_timeout", "90s")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.completion_model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.embed_timeout", "15s")

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.max_expansions", 3)
	v.SetDefault("retrieval.semantic_weight", 0.6)
	v.SetDefault("retrieval.overlap_weight", 0.4)
	v.SetDefault("retrieval.keyword_enabled", true)
	v.SetDefault("retrieval.parallel_fanout", true)
	v.SetDefault("retrieval.max_fanout_workers", 4)

	v.SetDefault("context.section_max_chars", 500)
	v.SetDefault("context.score_threshold", 0.3)
	v.SetDefault("context.max_sections", 5)

	v.SetDefault("answer.max_history_turns", 3)

	v.SetDefault("gate.top_similarity_weight", 0.35)
	v.SetDefault("gate.avg_similarity_weight", 0.20)
	v.SetDefault("gate.coverage_weight", 0.15)
	v.SetDefault("gate.length_weight", 0.10)
	v.SetDefault("gate.certainty_weight", 0.10)
	v.SetDefault("gate.diversity_weight", 0.10)
	v.SetDefault("gate.good_similarity", 0.65)
	v.SetDefault("gate.factual_threshold", 0.6)
	v.SetDefault("gate.open_ended_threshold", 0.45)
	v.SetDefault("gate.medium_band", 0.15)

	v.SetDefault("session.backend", "inmemory")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.max_turns", 10)
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("storage.docstore", "qdrant")
	v.SetDefault("storage.corpus_path", "./data/corpus.json")
	v.SetDefault("storage.qdrant.host", "localhost")
	v.SetDefault("storage.qdrant.port", 6334)
	v.SetDefault("storage.qdrant.collection", "university_docs")
	v.SetDefault("storage.qdrant.dimensions", 1536)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", "5s")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.cache.backend", "file")
	v.SetDefault("storage.cache.path", "./data/embedding_cache.json")
	v.SetDefault("storage.cache.ttl", "720h")

	v.SetDefault("telemetry.enabled", true)
}

// overrideFromEnv overrides sensitive values from well-known environment variables
func overrideFromEnv(v *viper.Viper) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		v.Set("llm.api_key", apiKey)
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		v.Set("storage.qdrant.host", host)
	}
	if port := os.Getenv("QDRANT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("storage.qdrant.port", p)
		}
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		v.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		v.Set("storage.redis.password", password)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		v.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		v.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("storage.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		v.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		v.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		v.Set("storage.postgres.dbname", db)
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if cfg.Retrieval.MaxExpansions < 0 || cfg.Retrieval.MaxExpansions > 4 {
		return fmt.Errorf("retrieval.max_expansions must be in [0,4]")
	}
	weightSum := cfg.Gate.TopSimilarityWeight + cfg.Gate.AvgSimilarityWeight +
		cfg.Gate.CoverageWeight + cfg.Gate.LengthWeight +
		cfg.Gate.CertaintyWeight + cfg.Gate.DiversityWeight
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("gate weights must sum to 1.0, got %f", weightSum)
	}
	if cfg.Gate.FactualThreshold < cfg.Gate.OpenEndedThreshold {
		return fmt.Errorf("gate.factual_threshold must be >= gate.open_ended_threshold")
	}
	if cfg.Session.MaxTurns <= 0 {
		return fmt.Errorf("session.max_turns must be positive")
	}
	switch cfg.Storage.Docstore {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("unsupported storage.docstore: %s", cfg.Storage.Docstore)
	}
	switch cfg.Storage.Cache.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unsupported storage.cache.backend: %s", cfg.Storage.Cache.Backend)
	}
	switch cfg.Session.Backend {
	case "inmemory", "redis":
	default:
		return fmt.Errorf("unsupported session.backend: %s", cfg.Session.Backend)
	}
	return nil
}
