package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Server         ServerConfig            `mapstructure:"server"`
	GenAI          GenAIConfig             `mapstructure:"genai"`
	Catalog        CatalogConfig           `mapstructure:"catalog"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Session        SessionConfig           `mapstructure:"session"`
	Conversation   ConversationConfig      `mapstructure:"conversation"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Handoff        HandoffConfig           `mapstructure:"handoff"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// GenAIConfig points at an OpenAI-compatible completion and moderation API.
type GenAIConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	ModerationModel string  `mapstructure:"moderation_model"`
	Temperature     float64 `mapstructure:"temperature"`
	Seed            int     `mapstructure:"seed"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
	MaxRetries      int     `mapstructure:"max_retries"`
	Backoff         int     `mapstructure:"backoff"`     // milliseconds
	MaxBackoff      int     `mapstructure:"max_backoff"` // milliseconds
}

type CatalogConfig struct {
	Source          string `mapstructure:"source"` // "csv" or "postgres"
	CSVPath         string `mapstructure:"csv_path"`
	Table           string `mapstructure:"table"`
	FeatureCacheTTL int    `mapstructure:"feature_cache_ttl"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	TTL             int `mapstructure:"ttl"`              // milliseconds
	CleanupInterval int `mapstructure:"cleanup_interval"` // milliseconds
	TurnTimeout     int `mapstructure:"turn_timeout"`     // milliseconds
}

type ConversationConfig struct {
	NormalizeProfile bool `mapstructure:"normalize_profile"`
}

type RecommendationConfig struct {
	MaxItems    int `mapstructure:"max_items"`
	MinScore    int `mapstructure:"min_score"`
	BudgetFloor int `mapstructure:"budget_floor"`
}

// HandoffConfig controls where NoCandidatesMatch sessions are escalated.
type HandoffConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	TopicARN string `mapstructure:"topic_arn"`
	Region   string `mapstructure:"region"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}
