package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Catalog drivers.
const (
	CatalogStatic   = "static"
	CatalogPostgres = "postgres"
)

// Config holds everything cmd/api needs to wire the storefront.
type Config struct {
	Env  string
	Port string

	StorageDriver   string
	StorageFilePath string
	PersistTimeout  time.Duration

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	CatalogDriver string
	CatalogFile   string

	Locale        string
	Currency      string
	SessionCookie string
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can avoid touching the real environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:             get("APP_ENV", "dev"),
		Port:            get("APP_PORT", "8080"),
		StorageDriver:   strings.ToLower(get("STORAGE_DRIVER", StorageFile)),
		StorageFilePath: get("STORAGE_FILE_PATH", "./data/storefront.json"),
		DatabaseURL:     get("DATABASE_URL", ""),
		RedisAddr:       get("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		RedisPrefix:     get("REDIS_PREFIX", "storefront:"),
		CatalogDriver:   strings.ToLower(get("CATALOG_DRIVER", CatalogStatic)),
		CatalogFile:     get("CATALOG_FILE", ""),
		Locale:          get("SHOP_LOCALE", "en-IN"),
		Currency:        strings.ToUpper(get("SHOP_CURRENCY", "INR")),
		SessionCookie:   get("SESSION_COOKIE", "shop_session"),
	}

	db, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = db

	timeout, err := time.ParseDuration(get("PERSIST_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PERSIST_TIMEOUT: %w", err)
	}
	cfg.PersistTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}
	switch c.StorageDriver {
	case StorageMemory:
	case StorageFile:
		if c.StorageFilePath == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required for the file driver")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis storage driver")
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %s (allowed: memory, file, postgres, redis)", c.StorageDriver)
	}
	switch c.CatalogDriver {
	case CatalogStatic:
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres catalog driver")
		}
	default:
		return fmt.Errorf("invalid CATALOG_DRIVER: %s (allowed: static, postgres)", c.CatalogDriver)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("PERSIST_TIMEOUT must be positive")
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("SESSION_COOKIE is required")
	}
	return nil
}

// NeedsDatabase reports whether any component is backed by Postgres.
func (c Config) NeedsDatabase() bool {
	return c.StorageDriver == StoragePostgres || c.CatalogDriver == CatalogPostgres
}
