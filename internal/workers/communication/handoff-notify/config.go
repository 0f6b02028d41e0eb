package handoffnotify

import "time"

type Config struct {
	TopicARN string
	Subject  string
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Subject: "ShopAssist handoff request",
		Timeout: 10 * time.Second,
	}
}
