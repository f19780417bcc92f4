package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageFile, cfg.StorageDriver)
	assert.Equal(t, CatalogStatic, cfg.CatalogDriver)
	assert.Equal(t, "en-IN", cfg.Locale)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "shop_session", cfg.SessionCookie)
	assert.Equal(t, 5*time.Second, cfg.PersistTimeout)
	assert.False(t, cfg.NeedsDatabase())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"STORAGE_DRIVER":  "Redis",
		"REDIS_ADDR":      "localhost:6379",
		"REDIS_DB":        "3",
		"PERSIST_TIMEOUT": "250ms",
		"SHOP_CURRENCY":   "usd",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 250*time.Millisecond, cfg.PersistTimeout)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown storage driver":   {"STORAGE_DRIVER": "s3"},
		"postgres without dsn":     {"STORAGE_DRIVER": "postgres"},
		"redis without addr":       {"STORAGE_DRIVER": "redis"},
		"postgres catalog w/o dsn": {"CATALOG_DRIVER": "postgres"},
		"unknown catalog driver":   {"CATALOG_DRIVER": "csv"},
		"bad redis db":             {"REDIS_DB": "x"},
		"bad timeout":              {"PERSIST_TIMEOUT": "soon"},
		"negative timeout":         {"PERSIST_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}

func TestNeedsDatabase(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"CATALOG_DRIVER": "postgres",
		"DATABASE_URL":   "postgres://localhost/shop?sslmode=disable",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.NeedsDatabase())
}
