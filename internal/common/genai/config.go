package genai

import (
	"time"

	"shopassist/internal/common/config"
)

type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	ModerationModel string
	Temperature     float64
	Seed            int
	MaxTokens       int
	Timeout         time.Duration
	MaxRetries      int
	Backoff         time.Duration
	MaxBackoff      time.Duration
}

func NewConfig(c config.GenAIConfig) *Config {
	return &Config{
		BaseURL:         c.BaseURL,
		APIKey:          c.APIKey,
		Model:           c.Model,
		ModerationModel: c.ModerationModel,
		Temperature:     c.Temperature,
		Seed:            c.Seed,
		MaxTokens:       c.MaxTokens,
		Timeout:         config.GetDuration(c.Timeout),
		MaxRetries:      c.MaxRetries,
		Backoff:         config.GetDuration(c.Backoff),
		MaxBackoff:      config.GetDuration(c.MaxBackoff),
	}
}
