// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Games    GamesConfig    `mapstructure:"games"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token        string `mapstructure:"token"`
	Username     string `mapstructure:"username"`
	BetsChannel  string `mapstructure:"bets_channel"`
	WelcomeBonus string `mapstructure:"welcome_bonus"`
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

// AdminConfig holds the static admin allow-list. The dynamic part of the
// allow-list lives in the app_settings store.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// PaymentConfig holds the CryptoPay gateway configuration.
type PaymentConfig struct {
	APIToken     string        `mapstructure:"api_token"`
	APIBase      string        `mapstructure:"api_base"`
	DefaultAsset string        `mapstructure:"default_asset"`
	Assets       []string      `mapstructure:"assets"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StarsUSDRate string        `mapstructure:"stars_usd_rate"`
	AutoLimit    string        `mapstructure:"auto_limit"`
}

// GamesConfig holds house edges and betting limits.
type GamesConfig struct {
	EdgeSlots    float64       `mapstructure:"edge_slots"`
	EdgeDice     float64       `mapstructure:"edge_dice"`
	EdgeCrash    float64       `mapstructure:"edge_crash"`
	EdgeRoulette float64       `mapstructure:"edge_roulette"`
	EdgeMines    float64       `mapstructure:"edge_mines"`
	ReferralRate string        `mapstructure:"referral_rate"`
	MinBet       string        `mapstructure:"min_bet"`
	MaxBet       string        `mapstructure:"max_bet"`
	CrashTick    time.Duration `mapstructure:"crash_tick"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
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

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, GAMES_EDGE_CRASH.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.username", "casino_bot")
	v.SetDefault("bot.welcome_bonus", "0")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("payment.api_base", "https://pay.crypt.bot/api")
	v.SetDefault("payment.default_asset", "USDT")
	v.SetDefault("payment.assets", []string{"USDT", "TON"})
	v.SetDefault("payment.poll_interval", "12s")
	v.SetDefault("payment.stars_usd_rate", "0.017")
	v.SetDefault("payment.auto_limit", "0")

	v.SetDefault("games.edge_slots", 0.18)
	v.SetDefault("games.edge_dice", 0.35)
	v.SetDefault("games.edge_crash", 0.22)
	v.SetDefault("games.edge_roulette", 0.25)
	v.SetDefault("games.edge_mines", 0.18)
	v.SetDefault("games.referral_rate", "0.10")
	v.SetDefault("games.min_bet", "0.10")
	v.SetDefault("games.max_bet", "10000")
	v.SetDefault("games.crash_tick", "450ms")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// IsAdmin checks if a user ID is in the static admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ReferralRate returns the referral commission rate as a decimal.
func (c *Config) ReferralRate() decimal.Decimal {
	return mustDecimal(c.Games.ReferralRate, "0.10")
}

// MinBet returns the minimum stake as a decimal.
func (c *Config) MinBet() decimal.Decimal {
	return mustDecimal(c.Games.MinBet, "0.10")
}

// MaxBet returns the maximum stake as a decimal.
func (c *Config) MaxBet() decimal.Decimal {
	return mustDecimal(c.Games.MaxBet, "10000")
}

// WelcomeBonus returns the welcome bonus amount as a decimal.
func (c *Config) WelcomeBonus() decimal.Decimal {
	return mustDecimal(c.Bot.WelcomeBonus, "0")
}

// StarsUSDRate returns the fallback Stars exchange rate as a decimal.
func (c *Config) StarsUSDRate() decimal.Decimal {
	return mustDecimal(c.Payment.StarsUSDRate, "0.017")
}

// AutoWithdrawLimit returns the instant-payout ceiling for withdrawals.
// Zero disables instant payouts; everything goes through approval.
func (c *Config) AutoWithdrawLimit() decimal.Decimal {
	return mustDecimal(c.Payment.AutoLimit, "0")
}

// EdgeFor returns the configured house edge for a game identifier.
func (c *Config) EdgeFor(game string) float64 {
	switch game {
	case "slots":
		return c.Games.EdgeSlots
	case "dice":
		return c.Games.EdgeDice
	case "crash":
		return c.Games.EdgeCrash
	case "roulette":
		return c.Games.EdgeRoulette
	case "mines":
		return c.Games.EdgeMines
	default:
		return 0
	}
}

func mustDecimal(raw, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}
