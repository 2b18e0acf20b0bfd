/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doccontext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.Driver)
		assert.Equal(t, "doccontext", cfg.Database)
		assert.Equal(t, 10*time.Second, cfg.MongoDB.ConnectTimeout)
	})

	t.Run("file over defaults", func(t *testing.T) {
		path := writeFile(t, `
driver: mongodb
database: league
mongodb:
  uri: mongodb://db:27017
  connect_timeout: 3s
logging:
  level: debug
  format: json
metrics:
  enabled: true
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DriverMongoDB, cfg.Driver)
		assert.Equal(t, "league", cfg.Database)
		assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
		assert.Equal(t, 3*time.Second, cfg.MongoDB.ConnectTimeout)
		assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "us-east-1", cfg.DynamoDB.Region, "untouched sections keep defaults")
	})

	t.Run("environment over file", func(t *testing.T) {
		path := writeFile(t, "driver: mongodb\n")
		t.Setenv("DOCCONTEXT_DRIVER", "DynamoDB")
		t.Setenv("DOCCONTEXT_DYNAMODB_TABLE", "app-table")
		t.Setenv("DOCCONTEXT_DYNAMODB_ENDPOINT", "http://localhost:8000")
		t.Setenv("DOCCONTEXT_METRICS_ENABLED", "true")
		t.Setenv("DOCCONTEXT_MONGODB_CONNECT_TIMEOUT", "not-a-duration")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DriverDynamoDB, cfg.Driver)
		assert.Equal(t, "app-table", cfg.DynamoDB.Table)
		assert.Equal(t, "http://localhost:8000", cfg.DynamoDB.Endpoint)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 10*time.Second, cfg.MongoDB.ConnectTimeout, "unparsable values are ignored")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")

		_, err = Load(writeFile(t, "driver: [oops"))
		assert.ErrorContains(t, err, "failed to parse config file")

		_, err = Load(writeFile(t, "driver: cassandra\n"))
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Driver = "redis" }, "driver"},
		{"mongodb needs uri", func(c *Config) { c.Driver = DriverMongoDB; c.MongoDB.URI = "" }, "mongodb.uri"},
		{"dynamodb needs table", func(c *Config) { c.Driver = DriverDynamoDB }, "dynamodb.table"},
		{"dynamodb needs region", func(c *Config) {
			c.Driver = DriverDynamoDB
			c.DynamoDB.Table = "t"
			c.DynamoDB.Region = ""
		}, "dynamodb.region"},
		{"dynamodb keys come in pairs", func(c *Config) {
			c.Driver = DriverDynamoDB
			c.DynamoDB.Table = "t"
			c.DynamoDB.AccessKey = "AKIA"
		}, "dynamodb.access_key"},
		{"memory needs database", func(c *Config) { c.Database = "" }, "database"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
