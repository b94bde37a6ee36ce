// Package config loads runtime settings from .env, the environment and an
// optional YAML file, and opens the database they point at.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Restaurant is the profile printed on receipts.
type Restaurant struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Footer  string `yaml:"receipt_footer"`
}

type Config struct {
	Port         string        `yaml:"port"`
	GinMode      string        `yaml:"gin_mode"`
	LogLevel     string        `yaml:"log_level"`
	DBDriver     string        `yaml:"db_driver"`
	DBDSN        string        `yaml:"db_dsn"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CORSOrigin   string        `yaml:"cors_origin"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	RateBurst    int           `yaml:"rate_limit_burst"`
	SeedDemo     bool          `yaml:"seed_demo"`
	AdminEmail   string        `yaml:"admin_email"`
	AdminPass    string        `yaml:"admin_password"`
	Restaurant   Restaurant    `yaml:"restaurant"`
}

func defaults() Config {
	return Config{
		Port:         "8080",
		GinMode:      "debug",
		LogLevel:     "info",
		DBDriver:     "sqlite",
		DBDSN:        "restaurant.db",
		TokenTTL:     12 * time.Hour,
		CORSOrigin:   "http://127.0.0.1:5500",
		RateLimitRPS: 20,
		RateBurst:    40,
		AdminEmail:   "admin@restaurant.local",
		Restaurant: Restaurant{
			Name:   "Restaurant POS",
			Footer: "Thank you for dining with us",
		},
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if set),
// then environment variables. Later sources win.
func Load() (Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.GinMode = getenv("GIN_MODE", cfg.GinMode)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.DBDriver = strings.ToLower(getenv("DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = getenv("DB_DSN", cfg.DBDSN)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigin = getenv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.AdminEmail = getenv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPass = getenv("ADMIN_PASSWORD", cfg.AdminPass)

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return cfg, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return cfg, err
	}
	if cfg.RateBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateBurst); err != nil {
		return cfg, err
	}
	if cfg.SeedDemo, err = getBool("SEED_DEMO", cfg.SeedDemo); err != nil {
		return cfg, err
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}

func getFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", k, err)
	}
	return f, nil
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func getBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", k, err)
	}
	return b, nil
}
