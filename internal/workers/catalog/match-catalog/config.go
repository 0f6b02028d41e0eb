package matchcatalog

import "time"

type Config struct {
	MaxItems    int
	BudgetFloor int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxItems:    3,
		BudgetFloor: 25000,
		Timeout:     10 * time.Second,
	}
}
