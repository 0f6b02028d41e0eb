package mapfeatures

import "time"

type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	KeyPrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		CacheTTL:  24 * time.Hour,
		KeyPrefix: "catalog:features",
	}
}
