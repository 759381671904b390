package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"SYNC_APP_NAME":                os.Getenv("SYNC_APP_NAME"),
		"SYNC_APP_ENV":                 os.Getenv("SYNC_APP_ENV"),
		"SYNC_APP_PORT":                os.Getenv("SYNC_APP_PORT"),
		"SYNC_SHOPIFY_STORE_DOMAIN":    os.Getenv("SYNC_SHOPIFY_STORE_DOMAIN"),
		"SYNC_SHOPIFY_ACCESS_TOKEN":    os.Getenv("SYNC_SHOPIFY_ACCESS_TOKEN"),
		"SYNC_STORE_BASE_URL":          os.Getenv("SYNC_STORE_BASE_URL"),
		"SYNC_STORE_SERVICE_KEY":       os.Getenv("SYNC_STORE_SERVICE_KEY"),
		"SYNC_SYNC_BATCH_SIZE":         os.Getenv("SYNC_SYNC_BATCH_SIZE"),
		"SYNC_HTTP_CORS_ALLOW_ORIGINS": os.Getenv("SYNC_HTTP_CORS_ALLOW_ORIGINS"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "inventory-sync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, 50, cfg.Sync.BatchSize)
		assert.Equal(t, 2*time.Second, cfg.Sync.InterBatchDelay)
		assert.Equal(t, 10*time.Minute, cfg.HTTP.WriteTimeout)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("loads values from environment variables with SYNC prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("SYNC_APP_NAME", "test-sync")
		os.Setenv("SYNC_APP_PORT", "9000")
		os.Setenv("SYNC_SHOPIFY_STORE_DOMAIN", "test-shop.myshopify.com")
		os.Setenv("SYNC_SHOPIFY_ACCESS_TOKEN", "shpat_test")
		os.Setenv("SYNC_STORE_BASE_URL", "https://store.example.co/rest/v1")
		os.Setenv("SYNC_STORE_SERVICE_KEY", "service-key")
		os.Setenv("SYNC_SYNC_BATCH_SIZE", "25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-sync", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "test-shop.myshopify.com", cfg.Shopify.StoreDomain)
		assert.Equal(t, "shpat_test", cfg.Shopify.AccessToken)
		assert.Equal(t, "https://store.example.co/rest/v1", cfg.Store.BaseURL)
		assert.Equal(t, "service-key", cfg.Store.ServiceKey)
		assert.Equal(t, 25, cfg.Sync.BatchSize)
	})

	t.Run("production requires record store settings", func(t *testing.T) {
		clearEnv()
		os.Setenv("SYNC_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.base_url")
	})

	t.Run("production rejects wildcard CORS origin", func(t *testing.T) {
		clearEnv()
		os.Setenv("SYNC_APP_ENV", "production")
		os.Setenv("SYNC_STORE_BASE_URL", "https://store.example.co/rest/v1")
		os.Setenv("SYNC_STORE_SERVICE_KEY", "service-key")
		os.Setenv("SYNC_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})
}
