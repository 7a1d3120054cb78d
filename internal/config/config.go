package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPPort int    `yaml:"http_port"`

	Store  string `yaml:"store"`
	DBPath string `yaml:"db_path"`

	StoreName   string          `yaml:"store_name"`
	Currency    string          `yaml:"currency"`
	Operators   []int64         `yaml:"operators"`
	MinOrder    decimal.Decimal `yaml:"-"`
	DeliveryFee decimal.Decimal `yaml:"-"`

	SessionTTL      time.Duration `yaml:"session_ttl"`
	SessionCapacity int           `yaml:"session_capacity"`

	OutboundURL     string        `yaml:"outbound_url"`
	OutboundTimeout time.Duration `yaml:"outbound_timeout"`
	// WebhookSecret guards the event webhook and order reads; empty disables it.
	WebhookSecret   string        `yaml:"webhook_secret"`

	ImageSearch     bool          `yaml:"image_search"`
	ImageSearchURL  string        `yaml:"image_search_url"`
	ImageCandidates int           `yaml:"image_candidates"`
	ImageTimeout    time.Duration `yaml:"image_timeout"`
}

// file mirrors Config for YAML; money is kept as text so values like 8.50
// survive without float rounding.
type file struct {
	Config      `yaml:",inline"`
	MinOrder    string `yaml:"min_order"`
	DeliveryFee string `yaml:"delivery_fee"`
}

func defaults() Config {
	return Config{
		AppEnv:          "dev",
		LogLevel:        "info",
		HTTPPort:        8080,
		Store:           StoreSQLite,
		DBPath:          "shop.db",
		StoreName:       "Shop",
		Currency:        "SAR",
		MinOrder:        decimal.NewFromInt(50),
		DeliveryFee:     decimal.NewFromInt(20),
		SessionTTL:      24 * time.Hour,
		SessionCapacity: 10000,
		OutboundTimeout: 10 * time.Second,
		ImageSearch:     true,
		ImageCandidates: 3,
		ImageTimeout:    10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	f := file{Config: *cfg}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	*cfg = f.Config
	if f.MinOrder != "" {
		if cfg.MinOrder, err = decimal.NewFromString(f.MinOrder); err != nil {
			return fmt.Errorf("min_order: %w", err)
		}
	}
	if f.DeliveryFee != "" {
		if cfg.DeliveryFee, err = decimal.NewFromString(f.DeliveryFee); err != nil {
			return fmt.Errorf("delivery_fee: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.Store = getEnv("STORE", cfg.Store)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.StoreName = getEnv("STORE_NAME", cfg.StoreName)
	cfg.Currency = getEnv("CURRENCY", cfg.Currency)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionCapacity = getEnvInt("SESSION_CAPACITY", cfg.SessionCapacity)
	cfg.OutboundURL = getEnv("OUTBOUND_URL", cfg.OutboundURL)
	cfg.OutboundTimeout = getEnvDuration("OUTBOUND_TIMEOUT", cfg.OutboundTimeout)
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.ImageSearch = getEnvBool("IMAGE_SEARCH", cfg.ImageSearch)
	cfg.ImageSearchURL = getEnv("IMAGE_SEARCH_URL", cfg.ImageSearchURL)
	cfg.ImageCandidates = getEnvInt("IMAGE_CANDIDATES", cfg.ImageCandidates)
	cfg.ImageTimeout = getEnvDuration("IMAGE_TIMEOUT", cfg.ImageTimeout)

	var err error
	if cfg.MinOrder, err = getEnvDecimal("MIN_ORDER", cfg.MinOrder); err != nil {
		return err
	}
	if cfg.DeliveryFee, err = getEnvDecimal("DELIVERY_FEE", cfg.DeliveryFee); err != nil {
		return err
	}
	if v := os.Getenv("OPERATOR_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return err
		}
		cfg.Operators = ids
	}
	return nil
}

func (c Config) validate() error {
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store)
	}
	if c.MinOrder.IsNegative() || c.DeliveryFee.IsNegative() {
		return fmt.Errorf("MIN_ORDER and DELIVERY_FEE must not be negative")
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("OPERATOR_IDS: %q is not a user id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
