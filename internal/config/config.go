package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvWeatherAPIKey = "WEATHER_API_KEY"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// AccessConfig lists usernames that always resolve to the admin tier.
type AccessConfig struct {
	ReservedAdminUsernames []string `yaml:"reserved-admin-usernames"`
}

// ShopConfig holds checkout and loyalty tunables.
// A nil DeliveryFeeRate means the default; an explicit 0 disables the fee.
type ShopConfig struct {
	DeliveryFeeRate       *float64            `yaml:"delivery-fee-rate"`
	PendingGracePeriod    time.Duration       `yaml:"pending-grace-period"`
	PendingExpiry         time.Duration       `yaml:"pending-expiry"`
	PointsPerCurrencyUnit int64               `yaml:"points-per-currency-unit"`
	StatusFlow            map[string][]string `yaml:"status-flow"`
}

// RedisConfig holds the shared Redis connection used by caches.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// WeatherConfig holds the weather provider settings.
type WeatherConfig struct {
	APIKey            string        `yaml:"api-key"`
	BaseURL           string        `yaml:"base-url"`
	RequestsPerSecond float64       `yaml:"requests-per-second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// JobsConfig holds cron specs for background jobs.
type JobsConfig struct {
	StaleOrders string `yaml:"stale-orders"`
	EventStatus string `yaml:"event-status"`
	Disabled    bool   `yaml:"disabled"`
	// WatchInterval is how often the settings and events tables are polled for
	// writes made by other instances. Zero uses the watcher default.
	WatchInterval time.Duration `yaml:"watch-interval"`
}

// Config is the full YAML configuration file.
type Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT     JWTConfig     `yaml:"jwt"`
	Access  AccessConfig  `yaml:"access"`
	Shop    ShopConfig    `yaml:"shop"`
	Redis   RedisConfig   `yaml:"redis"`
	Weather WeatherConfig `yaml:"weather"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

// Defaults.
const (
	defaultJWTExpiry          = 30 * 24 * time.Hour
	defaultPort               = 8318
	defaultDeliveryFeeRate    = 0.05
	defaultPendingGracePeriod = 30 * time.Second
	defaultPendingExpiry      = 10 * time.Minute
	defaultPointsPerUnit      = 10
	defaultRedisPrefix        = "shop"
	defaultWeatherBaseURL     = "https://api.openweathermap.org/data/2.5/weather"
	defaultWeatherRPS         = 1
	defaultWeatherTimeout     = 10 * time.Second
	defaultStaleOrdersSpec    = "*/30 * * * * *"
	defaultEventStatusSpec    = "0 * * * * *"
)

// DefaultReservedAdminUsernames are the names treated as admin regardless of flags.
var DefaultReservedAdminUsernames = []string{"admin", "elostora"}

// DefaultStatusFlow maps each order status to the statuses it may move to.
func DefaultStatusFlow() map[string][]string {
	return map[string][]string{
		"pending":    {"paid", "cancelled"},
		"paid":       {"processing", "cancelled"},
		"processing": {"shipped", "cancelled"},
		"shipped":    {"delivered"},
	}
}

// Load reads the YAML config file, applies environment overrides and fills defaults.
// A missing file is not an error: defaults and environment values are returned.
func Load(configPath string) (Config, error) {
	var cfg Config
	data, errRead := os.ReadFile(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// DSN returns the configured database DSN.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn
	}
	return strings.TrimSpace(c.Database.DSN)
}

func applyEnv(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.Redis.Addr = addr
	}
	if key := strings.TrimSpace(os.Getenv(EnvWeatherAPIKey)); key != "" {
		cfg.Weather.APIKey = key
	}
	if portRaw := strings.TrimSpace(os.Getenv("PORT")); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil && port > 0 && port <= 65535 {
			cfg.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	reserved := make([]string, 0, len(cfg.Access.ReservedAdminUsernames))
	for _, name := range cfg.Access.ReservedAdminUsernames {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			reserved = append(reserved, name)
		}
	}
	if len(reserved) == 0 {
		reserved = append(reserved, DefaultReservedAdminUsernames...)
	}
	cfg.Access.ReservedAdminUsernames = reserved

	if cfg.Shop.DeliveryFeeRate == nil || *cfg.Shop.DeliveryFeeRate < 0 {
		rate := defaultDeliveryFeeRate
		cfg.Shop.DeliveryFeeRate = &rate
	}
	if cfg.Shop.PendingGracePeriod <= 0 {
		cfg.Shop.PendingGracePeriod = defaultPendingGracePeriod
	}
	if cfg.Shop.PendingExpiry <= 0 {
		cfg.Shop.PendingExpiry = defaultPendingExpiry
	}
	if cfg.Shop.PointsPerCurrencyUnit <= 0 {
		cfg.Shop.PointsPerCurrencyUnit = defaultPointsPerUnit
	}
	if len(cfg.Shop.StatusFlow) == 0 {
		cfg.Shop.StatusFlow = DefaultStatusFlow()
	}
	if strings.TrimSpace(cfg.Redis.Prefix) == "" {
		cfg.Redis.Prefix = defaultRedisPrefix
	}
	if strings.TrimSpace(cfg.Weather.BaseURL) == "" {
		cfg.Weather.BaseURL = defaultWeatherBaseURL
	}
	if cfg.Weather.RequestsPerSecond <= 0 {
		cfg.Weather.RequestsPerSecond = defaultWeatherRPS
	}
	if cfg.Weather.Timeout <= 0 {
		cfg.Weather.Timeout = defaultWeatherTimeout
	}
	if strings.TrimSpace(cfg.Jobs.StaleOrders) == "" {
		cfg.Jobs.StaleOrders = defaultStaleOrdersSpec
	}
	if strings.TrimSpace(cfg.Jobs.EventStatus) == "" {
		cfg.Jobs.EventStatus = defaultEventStatusSpec
	}
}

// LoadJWTConfig reads the jwt section of the config file with environment overrides applied.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	cfg, errLoad := Load(configPath)
	if errLoad != nil {
		return JWTConfig{}, errLoad
	}
	return cfg.JWT, nil
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}
