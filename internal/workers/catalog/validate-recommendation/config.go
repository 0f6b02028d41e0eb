package validaterecommendation

type Config struct {
	// MinScore is the lowest score kept; the default keeps Score > 2.
	MinScore int
}

func LoadConfig() *Config {
	return &Config{
		MinScore: 3,
	}
}
