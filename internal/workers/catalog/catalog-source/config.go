package catalogsource

import "time"

type Config struct {
	// Timeout bounds the whole load, feature classification included.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
