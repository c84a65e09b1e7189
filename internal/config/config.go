package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the config file read when neither an explicit path nor
// TABLICA_CONFIG is given.
const ConfigPath = "config.yaml"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                      string   `yaml:"port"`
	LogLevel                  string   `yaml:"logLevel"`
	StoreBackend              string   `yaml:"storeBackend"`
	DatabaseURL               string   `yaml:"databaseURL"`
	RedisAddr                 string   `yaml:"redisAddr"`
	RedisPassword             string   `yaml:"redisPassword"`
	TrustedProxyCIDRs         []string `yaml:"trustedProxyCidrs"`
	CORSAllowedOrigins        []string `yaml:"corsAllowedOrigins"`
	MessageRateLimitPerMinute int      `yaml:"messageRateLimitPerMinute"`
	ListingRateLimitPerMinute int      `yaml:"listingRateLimitPerMinute"`
	SeedDemoData              bool     `yaml:"seedDemoData"`
	DemoUserID                int64    `yaml:"demoUserId"`
}

func defaults() FileConfig {
	return FileConfig{
		LogLevel:                  "info",
		StoreBackend:              BackendMemory,
		MessageRateLimitPerMinute: 30,
		ListingRateLimitPerMinute: 10,
		SeedDemoData:              true,
		DemoUserID:                1,
	}
}

// ResolvePath returns path, else $TABLICA_CONFIG, else ConfigPath.
func ResolvePath(path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	if v := strings.TrimSpace(os.Getenv("TABLICA_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// LoadDotEnv exports variables from a .env file without overriding the
// process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from path (see ResolvePath), applies env overrides and validates.
func Load(path string) (FileConfig, error) {
	cfg := defaults()
	path = ResolvePath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendMemory
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("MESSAGE_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid MESSAGE_RATE_LIMIT_PER_MINUTE %q", v)
		}
		cfg.MessageRateLimitPerMinute = n
	}
	if v := os.Getenv("LISTING_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid LISTING_RATE_LIMIT_PER_MINUTE %q", v)
		}
		cfg.ListingRateLimitPerMinute = n
	}
	if v := os.Getenv("SEED_DEMO_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid SEED_DEMO_DATA %q", v)
		}
		cfg.SeedDemoData = b
	}
	if v := os.Getenv("DEMO_USER_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid DEMO_USER_ID %q", v)
		}
		cfg.DemoUserID = n
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres backend (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: storeBackend must be %q or %q, got %q", BackendMemory, BackendPostgres, cfg.StoreBackend)
	}
	if cfg.MessageRateLimitPerMinute <= 0 {
		return errors.New("config: messageRateLimitPerMinute must be positive")
	}
	if cfg.ListingRateLimitPerMinute <= 0 {
		return errors.New("config: listingRateLimitPerMinute must be positive")
	}
	if cfg.DemoUserID <= 0 {
		return errors.New("config: demoUserId must be positive")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
