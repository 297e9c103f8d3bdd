package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	OpenAI      OpenAIConfig     `mapstructure:"openai"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Signals     SignalsConfig    `mapstructure:"signals"`
	Stream      StreamConfig     `mapstructure:"stream"`
	Security    SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MarketDataConfig struct {
	SnapshotURL  string  `mapstructure:"snapshot_url"`
	APIKey       string  `mapstructure:"api_key"`
	Timeout      string  `mapstructure:"timeout"`
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   string `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
}

type SignalsConfig struct {
	RunInterval   string `mapstructure:"run_interval"`
	TopCandidates int    `mapstructure:"top_candidates"`
	SessionOpen   string `mapstructure:"session_open"`
	SessionClose  string `mapstructure:"session_close"`
	Timezone      string `mapstructure:"timezone"`
	CacheTTL      string `mapstructure:"cache_ttl"`
}

type StreamConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	environment := strings.ToLower(config.Environment)

	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	for name, value := range map[string]string{
		"market_data.timeout":  config.MarketData.Timeout,
		"openai.timeout":       config.OpenAI.Timeout,
		"signals.cache_ttl":    config.Signals.CacheTTL,
		"signals.run_interval": config.Signals.RunInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if _, err := time.LoadLocation(config.Signals.Timezone); err != nil {
		return nil, fmt.Errorf("invalid signals timezone: %w", err)
	}

	config.Environment = environment

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "optionpulse")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Market data
	viper.SetDefault("market_data.snapshot_url", "http://localhost:3001/api/options/snapshot")
	viper.SetDefault("market_data.api_key", "")
	viper.SetDefault("market_data.timeout", "10s")
	viper.SetDefault("market_data.risk_free_rate", 0.035)

	// OpenAI
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.max_tokens", 1024)
	viper.SetDefault("openai.timeout", "30s")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.admin_chat_id", 0)

	// Signals
	viper.SetDefault("signals.run_interval", "5m")
	viper.SetDefault("signals.top_candidates", 5)
	viper.SetDefault("signals.session_open", "09:00")
	viper.SetDefault("signals.session_close", "15:30")
	viper.SetDefault("signals.timezone", "Asia/Seoul")
	viper.SetDefault("signals.cache_ttl", "5m")

	// Stream
	viper.SetDefault("stream.queue_size", 16)

	// Security
	viper.SetDefault("security.jwt_secret", "")
}
