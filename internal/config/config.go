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
	"golang.org/x/text/language"

	"github.com/MimeLyc/caption-pipeline/pkg/icron"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

// Config holds all application configuration.
//
// Values are resolved in this order, later sources winning:
// built-in defaults, the TOML file named by CONFIG_FILE, environment variables
// (a .env file named by ENV_FILE is loaded into the environment first), Options.
//
// Environment Variables:
// System:
// - DATA_DIR: base directory for the cache and database (default: /app/data)
// - CACHE_DIR: caption artifact root (default: $DATA_DIR/captions)
// - DB_PATH: SQLite database path (default: $DATA_DIR/ctxcaption.db)
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - MAINTENANCE_CRON: schedule of the maintenance job (default: @every 6h)
// - TEMP_MAX_AGE: age after which abandoned temp files are swept (default: 1h)
// - MEMORY_MAX_ROWS: translation memory rows kept by pruning (default: 500000)
//
// Catalog (external id resolver):
// - TMDB_API_KEY: TMDB API key (optional, resolution is skipped without it)
// - TMDB_API_URL: TMDB API base URL (default: https://api.themoviedb.org/3)
//
// Subtitle provider:
// - SUBTITLE_API_URL: subtitle search service base URL (required)
// - SUBTITLE_API_KEY: optional API key sent as Api-Key header
// - SUBTITLE_FORMAT: raw subtitle format requested (default: srt)
// - SUBTITLE_USER_AGENT: User-Agent header (default: ctxcaption/1.0)
//
// Translation:
// - SOURCE_LANGUAGE: preferred source track language (default: en)
// - TARGET_LANGUAGE: caption target language (default: zh)
// - TRANSLATE_BACKEND: http or llm (default: http)
// - TRANSLATE_API_URL: line translation service base URL (required for http)
// - TRANSLATE_API_KEY: optional translation service API key
// - TRANSLATE_CONCURRENCY: max in-flight translation calls (default: 10)
// - TRANSLATE_CACHE_SIZE: translation LRU capacity (default: 50000)
// - TRANSLATE_TIMEOUT: per-call timeout (default: 30s)
// - LLM_API_KEY, LLM_API_URL, LLM_MODEL, LLM_TIMEOUT: chat backend (llm only)
//
// Pipeline:
// - PIPELINE_MAX_ATTEMPTS: search/download attempts (default: 3)
// - PIPELINE_RETRY_DELAY: delay between attempts (default: 3s)
// - WARM_WORKERS: warm-up queue workers (default: 2)
type Config struct {
	System    SystemConfig
	Resolver  ResolverConfig
	Provider  ProviderConfig
	Translate TranslateConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
}

type SystemConfig struct {
	DataDir         string
	CacheDir        string
	DBPath          string
	LogLevel        string
	MaintenanceCron string
	TempMaxAge      time.Duration
	MemoryMaxRows   int
}

// ResolverConfig configures the TMDB external id lookup.
type ResolverConfig struct {
	APIKey string
	APIURL string
}

type ProviderConfig struct {
	APIURL    string
	APIKey    string
	Format    string
	UserAgent string
}

type TranslateConfig struct {
	SourceLanguage language.Tag
	TargetLanguage language.Tag
	Backend        string
	APIURL         string
	APIKey         string
	Concurrency    int
	CacheSize      int
	Timeout        time.Duration
}

// LLMConfig holds the chat completion backend used when TRANSLATE_BACKEND=llm.
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout int
}

type PipelineConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	WarmWorkers int
}

const (
	BackendHTTP = "http"
	BackendLLM  = "llm"
)

// Option is a function type for configuring Config
type Option func(*Config)

// WithLogLevel overrides LOG_LEVEL.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.System.LogLevel = level
		}
	}
}

// WithCacheDir overrides CACHE_DIR.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.System.CacheDir = dir
		}
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		System: SystemConfig{
			DataDir:         "/app/data",
			LogLevel:        "info",
			MaintenanceCron: "@every 6h",
			TempMaxAge:      time.Hour,
			MemoryMaxRows:   500000,
		},
		Resolver: ResolverConfig{
			APIURL: "https://api.themoviedb.org/3",
		},
		Provider: ProviderConfig{
			Format:    "srt",
			UserAgent: "ctxcaption/1.0",
		},
		Translate: TranslateConfig{
			SourceLanguage: language.English,
			TargetLanguage: language.Chinese,
			Backend:        BackendHTTP,
			Concurrency:    10,
			CacheSize:      50000,
			Timeout:        30 * time.Second,
		},
		LLM: LLMConfig{
			APIURL:  "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o-mini",
			Timeout: 30,
		},
		Pipeline: PipelineConfig{
			MaxAttempts: 3,
			RetryDelay:  3 * time.Second,
			WarmWorkers: 2,
		},
	}
}

// NewFromEnv creates a new Config from defaults, the optional config file,
// environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	return Load("", opts...)
}

// Load is NewFromEnv with an explicit config file, which takes precedence
// over CONFIG_FILE when not empty.
func Load(configFile string, opts ...Option) (*Config, error) {
	if err := loadDotEnv(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := Default()
	path := strings.TrimSpace(configFile)
	if path == "" {
		path = getEnvString("CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.fillDerived()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Debug("Config: %s", cfg.String())
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.System.DataDir = getEnvString("DATA_DIR", c.System.DataDir)
	c.System.CacheDir = getEnvString("CACHE_DIR", c.System.CacheDir)
	c.System.DBPath = getEnvString("DB_PATH", c.System.DBPath)
	c.System.LogLevel = getEnvString("LOG_LEVEL", c.System.LogLevel)
	c.System.MaintenanceCron = getEnvString("MAINTENANCE_CRON", c.System.MaintenanceCron)
	c.System.TempMaxAge = getEnvDuration("TEMP_MAX_AGE", c.System.TempMaxAge)
	c.System.MemoryMaxRows = getEnvInt("MEMORY_MAX_ROWS", c.System.MemoryMaxRows)

	c.Resolver.APIKey = getEnvString("TMDB_API_KEY", c.Resolver.APIKey)
	c.Resolver.APIURL = getEnvString("TMDB_API_URL", c.Resolver.APIURL)

	c.Provider.APIURL = getEnvString("SUBTITLE_API_URL", c.Provider.APIURL)
	c.Provider.APIKey = getEnvString("SUBTITLE_API_KEY", c.Provider.APIKey)
	c.Provider.Format = getEnvString("SUBTITLE_FORMAT", c.Provider.Format)
	c.Provider.UserAgent = getEnvString("SUBTITLE_USER_AGENT", c.Provider.UserAgent)

	var err error
	if c.Translate.SourceLanguage, err = getEnvLanguage("SOURCE_LANGUAGE", c.Translate.SourceLanguage); err != nil {
		return err
	}
	if c.Translate.TargetLanguage, err = getEnvLanguage("TARGET_LANGUAGE", c.Translate.TargetLanguage); err != nil {
		return err
	}
	c.Translate.Backend = strings.ToLower(getEnvString("TRANSLATE_BACKEND", c.Translate.Backend))
	c.Translate.APIURL = getEnvString("TRANSLATE_API_URL", c.Translate.APIURL)
	c.Translate.APIKey = getEnvString("TRANSLATE_API_KEY", c.Translate.APIKey)
	c.Translate.Concurrency = getEnvInt("TRANSLATE_CONCURRENCY", c.Translate.Concurrency)
	c.Translate.CacheSize = getEnvInt("TRANSLATE_CACHE_SIZE", c.Translate.CacheSize)
	c.Translate.Timeout = getEnvDuration("TRANSLATE_TIMEOUT", c.Translate.Timeout)

	c.LLM.APIKey = getEnvString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.APIURL = getEnvString("LLM_API_URL", c.LLM.APIURL)
	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.Timeout = getEnvInt("LLM_TIMEOUT", c.LLM.Timeout)

	c.Pipeline.MaxAttempts = getEnvInt("PIPELINE_MAX_ATTEMPTS", c.Pipeline.MaxAttempts)
	c.Pipeline.RetryDelay = getEnvDuration("PIPELINE_RETRY_DELAY", c.Pipeline.RetryDelay)
	c.Pipeline.WarmWorkers = getEnvInt("WARM_WORKERS", c.Pipeline.WarmWorkers)
	return nil
}

func (c *Config) fillDerived() {
	if c.System.CacheDir == "" {
		c.System.CacheDir = filepath.Join(c.System.DataDir, "captions")
	}
	if c.System.DBPath == "" {
		c.System.DBPath = filepath.Join(c.System.DataDir, "ctxcaption.db")
	}
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.System.CacheDir) == "" {
		errs = append(errs, errors.New("CACHE_DIR is required"))
	}
	if err := icron.Validate(c.System.MaintenanceCron); err != nil {
		errs = append(errs, fmt.Errorf("MAINTENANCE_CRON: %w", err))
	}
	if strings.TrimSpace(c.Provider.APIURL) == "" {
		errs = append(errs, errors.New("SUBTITLE_API_URL is required"))
	}
	if c.Translate.TargetLanguage == language.Und {
		errs = append(errs, errors.New("TARGET_LANGUAGE is required"))
	}
	switch c.Translate.Backend {
	case BackendHTTP:
		if strings.TrimSpace(c.Translate.APIURL) == "" {
			errs = append(errs, errors.New("TRANSLATE_API_URL is required for the http backend"))
		}
	case BackendLLM:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			errs = append(errs, errors.New("LLM_API_KEY is required for the llm backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRANSLATE_BACKEND must be %q or %q, got %q", BackendHTTP, BackendLLM, c.Translate.Backend))
	}
	if c.Translate.Concurrency < 1 {
		errs = append(errs, errors.New("TRANSLATE_CONCURRENCY must be greater than 0"))
	}
	if c.Translate.CacheSize < 1 {
		errs = append(errs, errors.New("TRANSLATE_CACHE_SIZE must be greater than 0"))
	}
	if c.Pipeline.MaxAttempts < 1 {
		errs = append(errs, errors.New("PIPELINE_MAX_ATTEMPTS must be greater than 0"))
	}
	if c.Pipeline.RetryDelay < 0 {
		errs = append(errs, errors.New("PIPELINE_RETRY_DELAY must not be negative"))
	}
	return errors.Join(errs...)
}

// String renders the config with secrets masked.
func (c Config) String() string {
	masked := c
	masked.Resolver.APIKey = mask(c.Resolver.APIKey)
	masked.Provider.APIKey = mask(c.Provider.APIKey)
	masked.Translate.APIKey = mask(c.Translate.APIKey)
	masked.LLM.APIKey = mask(c.LLM.APIKey)
	return fmt.Sprintf("%+v", struct {
		System    SystemConfig
		Resolver  ResolverConfig
		Provider  ProviderConfig
		Translate TranslateConfig
		LLM       LLMConfig
		Pipeline  PipelineConfig
	}(masked))
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("3s") or plain seconds ("3").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvLanguage(key string, defaultValue language.Tag) (language.Tag, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, fmt.Errorf("%s: invalid language %q: %w", key, value, err)
	}
	return tag, nil
}
