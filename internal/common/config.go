package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	LLM        LLMConfig
	Training   TrainingConfig
	AuditLog   AuditLogConfig
	Export     ExportConfig
	Ingest     IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// ExtractionConfig bounds the strategy cascade.
type ExtractionConfig struct {
	MaxItems          int
	AITimeout         time.Duration
	DirectTimeout     time.Duration
	TrainedTimeout    time.Duration
	FullOCRTimeout    time.Duration
	QuickOCRTimeout   time.Duration
	DirectPlaceholder bool
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string // "cli" | "gosseract"
	Tesseract        string
	Language         string
	TessdataDir      string
	ArtifactCacheDir string
	KeepArtifacts    bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// TrainingConfig selects the training corpus backend.
type TrainingConfig struct {
	Backend string // "json" | "sqlite"
	Path    string
}

// AuditLogConfig holds the fixed-width layout. An empty Layout means the built-in one.
type AuditLogConfig struct {
	Layout        string
	MinLineLength int
	SampleFile    string
}

type ExportConfig struct {
	Dir string
}

// IngestConfig drives uploads and the inbox daemon.
type IngestConfig struct {
	UploadDir string
	InboxDir  string
	Debounce  time.Duration
	Workers   int
	QueueSize int
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Extraction: ExtractionConfig{
			MaxItems:          getEnvAsInt("EXTRACT_MAX_ITEMS", 10),
			AITimeout:         getEnvAsDuration("EXTRACT_AI_TIMEOUT", 30*time.Second),
			DirectTimeout:     getEnvAsDuration("EXTRACT_DIRECT_TIMEOUT", 5*time.Second),
			TrainedTimeout:    getEnvAsDuration("EXTRACT_TRAINED_TIMEOUT", 20*time.Second),
			FullOCRTimeout:    getEnvAsDuration("EXTRACT_FULL_OCR_TIMEOUT", 60*time.Second),
			QuickOCRTimeout:   getEnvAsDuration("EXTRACT_QUICK_OCR_TIMEOUT", 15*time.Second),
			DirectPlaceholder: getEnvAsBool("DIRECT_PLACEHOLDER", false),
		},
		OCR: OCRConfig{
			Engine:           getEnv("OCR_ENGINE", "cli"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			Language:         getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			KeepArtifacts:    getEnvAsBool("OCR_KEEP_ARTIFACTS", false),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 1500),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Training: TrainingConfig{
			Backend: getEnv("TRAINING_BACKEND", "json"),
			Path:    getEnv("TRAINING_PATH", "trained_item_locations.json"),
		},
		AuditLog: AuditLogConfig{
			Layout:        getEnv("AUDITLOG_LAYOUT", ""),
			MinLineLength: getEnvAsInt("AUDITLOG_MIN_LINE", 70),
			SampleFile:    getEnv("AUDITLOG_SAMPLE_FILE", ""),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "/tmp/exports"),
		},
		Ingest: IngestConfig{
			UploadDir: getEnv("UPLOAD_DIR", "/tmp/uploads"),
			InboxDir:  getEnv("INBOX_DIR", ""),
			Debounce:  getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
			Workers:   getEnvAsInt("WORKERS", 4),
			QueueSize: getEnvAsInt("QUEUE_SIZE", 256),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every binary depends on. Database and API keys
// are optional here: binaries that need them check separately.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("EXTRACT_MAX_ITEMS", c.Extraction.MaxItems, Positive).
		Field("OCR_ENGINE", c.OCR.Engine, OneOf("cli", "gosseract")).
		Field("TRAINING_BACKEND", c.Training.Backend, OneOf("json", "sqlite")).
		Field("TRAINING_PATH", c.Training.Path, Required).
		Field("AUDITLOG_MIN_LINE", c.AuditLog.MinLineLength, Positive).
		Field("EXPORT_DIR", c.Export.Dir, Required)
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"EXTRACT_AI_TIMEOUT", c.Extraction.AITimeout},
		{"EXTRACT_DIRECT_TIMEOUT", c.Extraction.DirectTimeout},
		{"EXTRACT_TRAINED_TIMEOUT", c.Extraction.TrainedTimeout},
		{"EXTRACT_FULL_OCR_TIMEOUT", c.Extraction.FullOCRTimeout},
		{"EXTRACT_QUICK_OCR_TIMEOUT", c.Extraction.QuickOCRTimeout},
	}
	for _, t := range timeouts {
		v.Field(t.name, t.d, Positive)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
