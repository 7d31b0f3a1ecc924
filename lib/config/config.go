// Package config reads the scraper settings from the environment, after
// loading a .env file if one can be found.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule         = "0 */12 * * *"
	DefaultHTTPTimeout      = 15 * time.Second
	DefaultSummarizeTimeout = 60 * time.Second
	DefaultRejectTTL        = 7 * 24 * time.Hour
	DefaultMaxLinks         = 10
	DefaultMaxContentLength = 3000
)

type Config struct {
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	DataDir      string
	CatalogPath  string
	CachePath    string
	LedgerPath   string
	RejectedPath string
	TrendsPath   string
	DatabaseURL  string

	Schedule         string
	HTTPTimeout      time.Duration
	SummarizeTimeout time.Duration

	MaxLinks          int
	MaxContentLength  int
	UserAgent         string
	RequestsPerSecond float64
	Concurrency       int

	PersistPartial  bool
	RejectTTL       time.Duration
	DedupeHeadlines bool
	SkipHosts       []string

	LogPath       string
	LogLevel      string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// LoadEnv loads path when given, otherwise the first .env found in the
// current directory or up to two levels above it. A missing file is not an
// error; the environment may already carry everything.
func LoadEnv(path string) (string, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("loading %s: %w", path, err)
		}
		return path, nil
	}
	for _, candidate := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Helper function to get environment variable with default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// FromEnv builds a Config from the environment. Parse errors are collected
// and returned together.
func FromEnv() (Config, error) {
	p := &parser{}

	dataDir := getEnvWithDefault("DATA_DIR", "data")
	c := Config{
		OpenAIKey:     getEnvWithDefault("OPENAI_API_KEY", os.Getenv("OPENAI_KEY")),
		OpenAIModel:   getEnvWithDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		DataDir:      dataDir,
		CatalogPath:  getEnvWithDefault("CATALOG_PATH", filepath.Join(dataDir, "blogs.json")),
		CachePath:    getEnvWithDefault("CACHE_PATH", filepath.Join(dataDir, "summary.json")),
		LedgerPath:   getEnvWithDefault("LEDGER_PATH", filepath.Join(dataDir, "scraped_history.json")),
		RejectedPath: getEnvWithDefault("REJECTED_PATH", filepath.Join(dataDir, "rejected.json")),
		TrendsPath:   getEnvWithDefault("TRENDS_PATH", filepath.Join(dataDir, "trends.json")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		Schedule:         getEnvWithDefault("SCHEDULE", DefaultSchedule),
		HTTPTimeout:      p.getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		SummarizeTimeout: p.getDuration("SUMMARIZE_TIMEOUT", DefaultSummarizeTimeout),

		MaxLinks:          p.getInt("MAX_LINKS", DefaultMaxLinks),
		MaxContentLength:  p.getInt("MAX_CONTENT_LENGTH", DefaultMaxContentLength),
		UserAgent:         os.Getenv("USER_AGENT"),
		RequestsPerSecond: p.getFloat("REQUESTS_PER_SECOND", 0),
		Concurrency:       p.getInt("CONCURRENCY", 1),

		PersistPartial:  p.getBool("PERSIST_PARTIAL", false),
		RejectTTL:       p.getDuration("REJECT_TTL", DefaultRejectTTL),
		DedupeHeadlines: p.getBool("DEDUPE_HEADLINES", false),
		SkipHosts:       splitList(os.Getenv("SKIP_HOSTS")),

		LogPath:       getEnvWithDefault("LOG_PATH", filepath.Join("logs", "techup.log")),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "INFO"),
		LogMaxSize:    p.getInt("LOG_MAX_SIZE", 10),
		LogMaxBackups: p.getInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     p.getInt("LOG_MAX_AGE", 30),
	}
	if len(p.errs) > 0 {
		return c, errors.Join(p.errs...)
	}
	return c, nil
}

// Validate rejects settings no run could work with. A missing OpenAI key
// is allowed.
func (c Config) Validate() error {
	var errs []error
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("CATALOG_PATH is empty"))
	}
	positive := map[string]int{
		"MAX_LINKS":          c.MaxLinks,
		"MAX_CONTENT_LENGTH": c.MaxContentLength,
		"CONCURRENCY":        c.Concurrency,
	}
	for _, key := range []string{"MAX_LINKS", "MAX_CONTENT_LENGTH", "CONCURRENCY"} {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.SummarizeTimeout <= 0 {
		errs = append(errs, errors.New("SUMMARIZE_TIMEOUT must be positive"))
	}
	if c.RejectTTL <= 0 {
		errs = append(errs, errors.New("REJECT_TTL must be positive"))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("REQUESTS_PER_SECOND must not be negative"))
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE %q: %w", c.Schedule, err))
	}
	return errors.Join(errs...)
}

// HasOpenAIKey reports whether a key is configured.
func (c Config) HasOpenAIKey() bool {
	return strings.TrimSpace(c.OpenAIKey) != ""
}

type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
