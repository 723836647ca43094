package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Classifier    ChatConfig          `mapstructure:"classifier"`
	Explainer     ChatConfig          `mapstructure:"explainer"`
	Similarity    SimilarityConfig    `mapstructure:"similarity"`
	Drift         DriftConfig         `mapstructure:"drift"`
	Visualization VisualizationConfig `mapstructure:"visualization"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// ChatConfig configures an OpenAI-compatible chat model client.
type ChatConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SimilarityConfig struct {
	TopK           int           `mapstructure:"top_k"`
	TopDimensions  int           `mapstructure:"top_dimensions"`
	ExplainTimeout time.Duration `mapstructure:"explain_timeout"`
}

type DriftConfig struct {
	Threshold     float64       `mapstructure:"threshold"`
	BaselineStore string        `mapstructure:"baseline_store"` // file, db, badger or memory
	BaselinePath  string        `mapstructure:"baseline_path"`
	BadgerDir     string        `mapstructure:"badger_dir"`
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

type VisualizationConfig struct {
	Prefix    string `mapstructure:"prefix"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	Workers   int    `mapstructure:"workers"`
	MaxPoints int    `mapstructure:"max_points"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2 or s3compatible
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	v.BindEnv("classifier.api_key", "OPENAI_API_KEY")
	v.BindEnv("classifier.base_url", "OPENAI_BASE_URL")
	v.BindEnv("explainer.api_key", "OPENAI_API_KEY")
	v.BindEnv("explainer.base_url", "OPENAI_BASE_URL")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("drift.threshold", "DRIFT_THRESHOLD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/conversations.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("embedding.name", "default")
	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "feature-hash")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.max_tokens", 256)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.model", "gpt-4")
	v.SetDefault("classifier.timeout", 10*time.Second)
	v.SetDefault("explainer.enabled", false)
	v.SetDefault("explainer.model", "gpt-4")
	v.SetDefault("explainer.base_url", "https://api.openai.com/v1")
	v.SetDefault("explainer.timeout", 10*time.Second)

	v.SetDefault("similarity.top_k", 5)
	v.SetDefault("similarity.top_dimensions", 5)
	v.SetDefault("similarity.explain_timeout", 10*time.Second)

	v.SetDefault("drift.threshold", 0.95)
	v.SetDefault("drift.baseline_store", "file")
	v.SetDefault("drift.baseline_path", "baseline_stats.json")
	v.SetDefault("drift.badger_dir", "./data/baseline")
	v.SetDefault("drift.watch_interval", time.Hour)

	v.SetDefault("visualization.width", 800)
	v.SetDefault("visualization.height", 600)
	v.SetDefault("visualization.workers", 1)
	v.SetDefault("visualization.max_points", 2000)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/static")

	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "conversations")
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if c.Drift.Threshold < -1 || c.Drift.Threshold > 1 {
		return fmt.Errorf("drift: threshold %v outside [-1, 1]", c.Drift.Threshold)
	}
	switch c.Drift.BaselineStore {
	case "file", "db", "badger", "memory":
	default:
		return fmt.Errorf("drift: unknown baseline_store %q", c.Drift.BaselineStore)
	}
	return nil
}
