package elicitation

import "time"

type Config struct {
	BudgetFloor      int
	NormalizeProfile bool
	Timeout          time.Duration
	HandoffTimeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BudgetFloor:      25000,
		NormalizeProfile: true,
		Timeout:          45 * time.Second,
		HandoffTimeout:   10 * time.Second,
	}
}
