package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config is built once at startup and handed to every module by value.
// Nothing reads the environment after LoadConfig returns.
type Config struct {
	Port        string
	Production  bool
	DatabaseURL string

	SecretKey  string
	TokenTTL   time.Duration
	BcryptCost int

	CatalogURL       string
	CatalogCoversURL string
	CatalogTimeout   time.Duration

	AuthRateLimitRPS   int
	AuthRateLimitBurst int

	LogLevel  string
	LogFormat string
}

// LoadConfig reads envFile (if present) into the process environment and
// builds a Config from it. A missing env file is not an error.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		Production:       getEnv("GIN_MODE", "debug") == "release",
		DatabaseURL:      getEnv("DATABASE_URL", getEnv("sqlite_db", "estante.db")),
		SecretKey:        os.Getenv("SECRET_KEY"),
		CatalogURL:       getEnv("OPENLIBRARY_URL", "https://openlibrary.org"),
		CatalogCoversURL: getEnv("OPENLIBRARY_COVERS_URL", "https://covers.openlibrary.org"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", ""),
	}

	var err error
	minutes, err := getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL = time.Duration(minutes) * time.Minute

	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return Config{}, err
	}

	timeout, err := getEnvInt("CATALOG_TIMEOUT_SECONDS", 15)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogTimeout = time.Duration(timeout) * time.Second

	if cfg.AuthRateLimitRPS, err = getEnvInt("AUTH_RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimitBurst, err = getEnvInt("AUTH_RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY environment variable not set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.CatalogTimeout <= 0 {
		return errors.New("CATALOG_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// getEnv returns the environment value for key, or defaultValue when unset.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
