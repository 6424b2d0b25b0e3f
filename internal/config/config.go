package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	WorkerModeLocal = "local"
	WorkerModeNSQ   = "nsq"
)

type Config struct {
	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	// Library storage
	DataDir          string `envconfig:"DATA_DIR" default:"./data"`
	LibraryStore     string `envconfig:"LIBRARY_STORE" default:"file"`
	LibraryIndexFile string `envconfig:"LIBRARY_INDEX_FILE" default:"library_index.json"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"library.db"`

	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"devwell"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"devwell"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// AI providers
	GeminiAPIKey       string  `envconfig:"GEMINI_API_KEY"`
	OpenRouterAPIKey   string  `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterURL      string  `envconfig:"OPENROUTER_URL" default:"https://openrouter.ai/api/v1/chat/completions"`
	EmbeddingModel     string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	ChatModel          string  `envconfig:"CHAT_MODEL" default:"gemini-2.0-flash"`
	EmbedRatePerSecond float64 `envconfig:"EMBED_RATE_PER_SECOND" default:"5"`
	EmbedBurst         int     `envconfig:"EMBED_BURST" default:"5"`

	// Ingestion
	ChunkSize            int           `envconfig:"CHUNK_SIZE" default:"1000"`
	IngestionConcurrency int           `envconfig:"INGESTION_CONCURRENCY" default:"4"`
	IngestionQueueSize   int           `envconfig:"INGESTION_QUEUE_SIZE" default:"64"`
	ProcessingTimeout    time.Duration `envconfig:"PROCESSING_TIMEOUT" default:"10m"`
	WorkerMode           string        `envconfig:"WORKER_MODE" default:"local"`
	NSQDHost             string        `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQLookupd           string        `envconfig:"NSQ_LOOKUPD"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may already be set in the shell, so a missing .env is fine.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.LibraryStore {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: LIBRARY_STORE=%q", ErrInvalid, c.LibraryStore)
	}

	switch c.WorkerMode {
	case WorkerModeLocal:
	case WorkerModeNSQ:
		if c.NSQDHost == "" {
			return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: WORKER_MODE=%q", ErrInvalid, c.WorkerMode)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalid)
	}
	if c.IngestionConcurrency <= 0 {
		return fmt.Errorf("%w: INGESTION_CONCURRENCY must be positive", ErrInvalid)
	}
	if c.IngestionQueueSize < 0 {
		return fmt.Errorf("%w: INGESTION_QUEUE_SIZE must not be negative", ErrInvalid)
	}
	return nil
}

// IndexFilePath resolves the snapshot file against DataDir unless it is absolute.
func (c *Config) IndexFilePath() string {
	if filepath.IsAbs(c.LibraryIndexFile) {
		return c.LibraryIndexFile
	}
	return filepath.Join(c.DataDir, c.LibraryIndexFile)
}

func (c *Config) SQLiteFilePath() string {
	if filepath.IsAbs(c.SQLitePath) {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, c.SQLitePath)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
