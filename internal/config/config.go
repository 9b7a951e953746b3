package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Directory   DirectoryConfig   `yaml:"directory"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Web         WebConfig         `yaml:"web"`
}

type DatabaseConfig struct {
	URL          string        `yaml:"url"`            // PostgreSQL URL, or sqlite://path for the local backend
	MaxOpenConns int           `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int           `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
	QueryTimeout time.Duration `yaml:"query_timeout"`  // Upper bound for a single persistence call
}

type DirectoryConfig struct {
	DatabaseURL string `yaml:"database_url"` // MariaDB DSN of an external student directory (optional)
}

type RecognitionConfig struct {
	Threshold    float64 `yaml:"threshold"`     // Minimum cosine similarity (exclusive) to accept a match
	EmbeddingDim int     `yaml:"embedding_dim"` // Fixed embedding length of the store
	SimilarLimit int     `yaml:"similar_limit"` // Neighbours reported by similarity lookups
}

type ExtractorConfig struct {
	URL          string        `yaml:"url"`            // Face embedding server, defaults to http://localhost:8000
	MaxImageSize int           `yaml:"max_image_size"` // Longest image side sent to the server
	Timeout      time.Duration `yaml:"timeout"`
}

type LedgerConfig struct {
	Timezone    string        `yaml:"timezone"`     // IANA name used to derive the attendance date
	DefaultMode string        `yaml:"default_mode"` // Mode recorded when the caller supplies none
	LockTimeout time.Duration `yaml:"lock_timeout"` // Max wait for the per-key ledger lock
}

type WebConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"` // Comma-separated CORS origins
	APIKey         string `yaml:"-"`               // Bearer key for administrative endpoints, empty disables the check
}

// Location returns the configured time zone, falling back to time.Local.
func (c *LedgerConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Origins splits AllowedOrigins into a list, dropping empty entries.
func (c *WebConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the env var or the default when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envDuration parses a Go duration ("5s", "2m"). Non-positive or invalid values use the default.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envThreshold parses a similarity threshold, accepting only values in [0,1].
func envThreshold(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// Defaults returns the configuration embedded in defaults.yaml.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
			QueryTimeout: envDuration("DATABASE_QUERY_TIMEOUT", d.Database.QueryTimeout),
		},
		Directory: DirectoryConfig{
			DatabaseURL: os.Getenv("DIRECTORY_DATABASE_URL"),
		},
		Recognition: RecognitionConfig{
			Threshold:    envThreshold("MATCH_THRESHOLD", d.Recognition.Threshold),
			EmbeddingDim: envInt("EMBEDDING_DIM", d.Recognition.EmbeddingDim),
			SimilarLimit: d.Recognition.SimilarLimit,
		},
		Extractor: ExtractorConfig{
			URL:          envString("EMBEDDING_URL", d.Extractor.URL),
			MaxImageSize: envInt("MAX_IMAGE_SIZE", d.Extractor.MaxImageSize),
			Timeout:      envDuration("EXTRACTOR_TIMEOUT", d.Extractor.Timeout),
		},
		Ledger: LedgerConfig{
			Timezone:    envString("ATTENDANCE_TIMEZONE", d.Ledger.Timezone),
			DefaultMode: envString("ATTENDANCE_MODE", d.Ledger.DefaultMode),
			LockTimeout: d.Ledger.LockTimeout,
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envString("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
			APIKey:         os.Getenv("WEB_API_KEY"),
		},
	}
}
