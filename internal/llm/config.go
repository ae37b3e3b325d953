package llm

import (
	"fmt"
	"strings"
)

// Config holds the settings of an OpenAI-compatible chat completion API
// (OpenRouter, OpenAI and similar).
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout is in seconds.
	Timeout int
	AppName string
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers sent with every request.
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}
	return headers
}

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
