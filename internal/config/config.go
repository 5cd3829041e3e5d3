// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is constructed once in main
// and passed explicitly to everything that needs it.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	TgRest     TgRestConfig     `mapstructure:"tgrest"`
	DevilFruit DevilFruitConfig `mapstructure:"devilfruit"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Warlord    WarlordConfig    `mapstructure:"warlord"`
	List       ListConfig       `mapstructure:"list"`
}

// BotConfig holds Telegram bot configuration for the admin surface.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the moderator user ids allowed to use the console.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// TgRestConfig holds the outbound command channel configuration.
type TgRestConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	BotID    string        `mapstructure:"bot_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DevilFruitConfig holds devil fruit ability limits.
type DevilFruitConfig struct {
	AbilityMinValue      int `mapstructure:"ability_min_value"`
	AbilityMaxValue      int `mapstructure:"ability_max_value"`
	AbilitiesMaxSum      int `mapstructure:"abilities_max_sum"`
	AbilitiesRequiredSum int `mapstructure:"abilities_required_sum"`
}

// PredictionConfig holds default flags for new predictions.
type PredictionConfig struct {
	RefundWagerDefault          bool  `mapstructure:"refund_wager_default"`
	AllowMultipleChoicesDefault bool  `mapstructure:"allow_multiple_choices_default"`
	CanWithdrawBetDefault       bool  `mapstructure:"can_withdraw_bet_default"`
	MaxRefundableWager          int64 `mapstructure:"max_refundable_wager"`
}

// WarlordConfig holds warlord appointment limits.
type WarlordConfig struct {
	MaxCount int `mapstructure:"max_count"`
}

// ListConfig holds display limits for list and search views.
type ListConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, TGREST_ENDPOINT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "onepiece")
	v.SetDefault("database.name", "onepiece")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Outbound command channel defaults
	v.SetDefault("tgrest.timeout", "10s")

	// Devil fruit ability defaults
	v.SetDefault("devilfruit.ability_min_value", 0)
	v.SetDefault("devilfruit.ability_max_value", 100)
	v.SetDefault("devilfruit.abilities_max_sum", 100)
	v.SetDefault("devilfruit.abilities_required_sum", 100)

	// Prediction defaults
	v.SetDefault("prediction.refund_wager_default", false)
	v.SetDefault("prediction.allow_multiple_choices_default", true)
	v.SetDefault("prediction.can_withdraw_bet_default", false)
	v.SetDefault("prediction.max_refundable_wager", 100000000)

	// Warlord defaults
	v.SetDefault("warlord.max_count", 7)

	// List defaults
	v.SetDefault("list.max_items", 10)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}
