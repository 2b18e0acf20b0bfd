/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads the settings used to open a doccontext database.
//
// Values come from a YAML file, then from a .env file when one is present,
// then from DOCCONTEXT_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/doccontext/errors"
	"gopkg.in/yaml.v3"
)

// Supported drivers.
const (
	DriverMongoDB  = "mongodb"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

var drivers = []string{DriverMongoDB, DriverDynamoDB, DriverMemory}

// Config is the top-level configuration.
type Config struct {
	Driver   string         `yaml:"driver"`
	Database string         `yaml:"database"`
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// MongoDBConfig configures the mongodb driver.
type MongoDBConfig struct {
	URI            string        `yaml:"uri"`
	AppName        string        `yaml:"app_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DynamoDBConfig configures the dynamodb driver. Empty keys fall back to the
// default AWS credential chain.
type DynamoDBConfig struct {
	Region    string `yaml:"region"`
	Table     string `yaml:"table"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoggingConfig sets the base logger level and format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig switches store instrumentation on.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns an in-memory configuration.
func Default() *Config {
	return &Config{
		Driver:   DriverMemory,
		Database: "doccontext",
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			ConnectTimeout: 10 * time.Second,
		},
		DynamoDB: DynamoDBConfig{Region: "us-east-1"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// A missing .env file is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OverrideFromEnv applies DOCCONTEXT_* environment variables.
func (c *Config) OverrideFromEnv() {
	if v := os.Getenv("DOCCONTEXT_DRIVER"); v != "" {
		c.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DOCCONTEXT_DATABASE"); v != "" {
		c.Database = v
	}

	if v := os.Getenv("DOCCONTEXT_MONGODB_URI"); v != "" {
		c.MongoDB.URI = v
	}
	if v := os.Getenv("DOCCONTEXT_MONGODB_APP_NAME"); v != "" {
		c.MongoDB.AppName = v
	}
	if v := os.Getenv("DOCCONTEXT_MONGODB_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MongoDB.ConnectTimeout = d
		}
	}

	if v := os.Getenv("DOCCONTEXT_DYNAMODB_REGION"); v != "" {
		c.DynamoDB.Region = v
	}
	if v := os.Getenv("DOCCONTEXT_DYNAMODB_TABLE"); v != "" {
		c.DynamoDB.Table = v
	}
	if v := os.Getenv("DOCCONTEXT_DYNAMODB_ENDPOINT"); v != "" {
		c.DynamoDB.Endpoint = v
	}
	if v := os.Getenv("DOCCONTEXT_DYNAMODB_ACCESS_KEY"); v != "" {
		c.DynamoDB.AccessKey = v
	}
	if v := os.Getenv("DOCCONTEXT_DYNAMODB_SECRET_KEY"); v != "" {
		c.DynamoDB.SecretKey = v
	}

	if v := os.Getenv("DOCCONTEXT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCCONTEXT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("DOCCONTEXT_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
}

// Validate reports the first setting the configured driver cannot start with.
func (c *Config) Validate() error {
	if !slices.Contains(drivers, c.Driver) {
		return errors.NewValidationError("driver", fmt.Sprintf("unsupported driver %q, supported drivers: %v", c.Driver, drivers))
	}
	switch c.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.NewValidationError("mongodb.uri", "required for the mongodb driver")
		}
	case DriverDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.NewValidationError("dynamodb.table", "required for the dynamodb driver")
		}
		if c.DynamoDB.Region == "" {
			return errors.NewValidationError("dynamodb.region", "required for the dynamodb driver")
		}
		if (c.DynamoDB.AccessKey == "") != (c.DynamoDB.SecretKey == "") {
			return errors.NewValidationError("dynamodb.access_key", "access and secret keys must be set together")
		}
		if c.Database == "" {
			return errors.NewValidationError("database", "required for the dynamodb driver")
		}
	case DriverMemory:
		if c.Database == "" {
			return errors.NewValidationError("database", "required for the memory driver")
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return errors.NewValidationError("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	return nil
}
