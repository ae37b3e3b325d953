package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// fileConfig mirrors the TOML layout. Durations and languages are strings so
// the file can use "3s" and "en" directly.
type fileConfig struct {
	System struct {
		DataDir         string `toml:"data_dir"`
		CacheDir        string `toml:"cache_dir"`
		DBPath          string `toml:"db_path"`
		LogLevel        string `toml:"log_level"`
		MaintenanceCron string `toml:"maintenance_cron"`
		TempMaxAge      string `toml:"temp_max_age"`
		MemoryMaxRows   int    `toml:"memory_max_rows"`
	} `toml:"system"`
	Resolver struct {
		APIKey string `toml:"api_key"`
		APIURL string `toml:"api_url"`
	} `toml:"tmdb"`
	Provider struct {
		APIURL    string `toml:"api_url"`
		APIKey    string `toml:"api_key"`
		Format    string `toml:"format"`
		UserAgent string `toml:"user_agent"`
	} `toml:"subtitles"`
	Translate struct {
		SourceLanguage string `toml:"source_language"`
		TargetLanguage string `toml:"target_language"`
		Backend        string `toml:"backend"`
		APIURL         string `toml:"api_url"`
		APIKey         string `toml:"api_key"`
		Concurrency    int    `toml:"concurrency"`
		CacheSize      int    `toml:"cache_size"`
		Timeout        string `toml:"timeout"`
	} `toml:"translate"`
	LLM struct {
		APIKey  string `toml:"api_key"`
		APIURL  string `toml:"api_url"`
		Model   string `toml:"model"`
		Timeout int    `toml:"timeout"`
	} `toml:"llm"`
	Pipeline struct {
		MaxAttempts int    `toml:"max_attempts"`
		RetryDelay  string `toml:"retry_delay"`
		WarmWorkers int    `toml:"warm_workers"`
	} `toml:"pipeline"`
}

// LoadFile applies the TOML file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.System.DataDir, fc.System.DataDir)
	setString(&c.System.CacheDir, fc.System.CacheDir)
	setString(&c.System.DBPath, fc.System.DBPath)
	setString(&c.System.LogLevel, fc.System.LogLevel)
	setString(&c.System.MaintenanceCron, fc.System.MaintenanceCron)
	setInt(&c.System.MemoryMaxRows, fc.System.MemoryMaxRows)
	if err := setDuration(&c.System.TempMaxAge, fc.System.TempMaxAge, "system.temp_max_age"); err != nil {
		return err
	}

	setString(&c.Resolver.APIKey, fc.Resolver.APIKey)
	setString(&c.Resolver.APIURL, fc.Resolver.APIURL)

	setString(&c.Provider.APIURL, fc.Provider.APIURL)
	setString(&c.Provider.APIKey, fc.Provider.APIKey)
	setString(&c.Provider.Format, fc.Provider.Format)
	setString(&c.Provider.UserAgent, fc.Provider.UserAgent)

	if err := setLanguage(&c.Translate.SourceLanguage, fc.Translate.SourceLanguage, "translate.source_language"); err != nil {
		return err
	}
	if err := setLanguage(&c.Translate.TargetLanguage, fc.Translate.TargetLanguage, "translate.target_language"); err != nil {
		return err
	}
	setString(&c.Translate.Backend, strings.ToLower(fc.Translate.Backend))
	setString(&c.Translate.APIURL, fc.Translate.APIURL)
	setString(&c.Translate.APIKey, fc.Translate.APIKey)
	setInt(&c.Translate.Concurrency, fc.Translate.Concurrency)
	setInt(&c.Translate.CacheSize, fc.Translate.CacheSize)
	if err := setDuration(&c.Translate.Timeout, fc.Translate.Timeout, "translate.timeout"); err != nil {
		return err
	}

	setString(&c.LLM.APIKey, fc.LLM.APIKey)
	setString(&c.LLM.APIURL, fc.LLM.APIURL)
	setString(&c.LLM.Model, fc.LLM.Model)
	setInt(&c.LLM.Timeout, fc.LLM.Timeout)

	setInt(&c.Pipeline.MaxAttempts, fc.Pipeline.MaxAttempts)
	setInt(&c.Pipeline.WarmWorkers, fc.Pipeline.WarmWorkers)
	return setDuration(&c.Pipeline.RetryDelay, fc.Pipeline.RetryDelay, "pipeline.retry_delay")
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func setLanguage(dst *language.Tag, v, field string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	tag, err := language.Parse(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = tag
	return nil
}
