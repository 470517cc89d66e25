// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	API       APIConfig        `yaml:"api"`
	CORS      CORSConfig       `yaml:"cors"`
	Resources []ResourceConfig `yaml:"resources"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	OpenAPI   OpenAPIConfig    `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig configures the record store backing all resources.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // "sqlite", "mongo" or "memory"
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"` // mongo database name
}

// APIConfig configures where the resource routes are mounted.
type APIConfig struct {
	BasePath string `yaml:"base_path"`
}

// CORSConfig configures cross-origin access to the resource routes.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"` // default: ["*"]
}

// ResourceConfig declares one CRUD resource.
type ResourceConfig struct {
	Name       string        `yaml:"name"`
	Table      string        `yaml:"table"` // backing table/collection, defaults to name
	PrimaryKey string        `yaml:"primary_key"`
	Actions    []string      `yaml:"actions"` // subset of list, get, create, update, delete; empty = all
	Fields     []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one typed field of a resource.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // string, text, int, float, bool, time, json
	Required bool   `yaml:"required"`
	Unique   bool   `yaml:"unique"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"` // Enable OpenAPI endpoints
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Resource returns the declared resource with the given name.
func (c *Config) Resource(name string) (ResourceConfig, bool) {
	for _, res := range c.Resources {
		if res.Name == name {
			return res, true
		}
	}
	return ResourceConfig{}, false
}

// applyEnvOverrides applies CRUDGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CRUDGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CRUDGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CRUDGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("CRUDGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Storage configuration
	if v := os.Getenv("CRUDGATE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("CRUDGATE_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("CRUDGATE_STORAGE_DATABASE"); v != "" {
		cfg.Storage.Database = v
	}

	// API configuration
	if v := os.Getenv("CRUDGATE_API_BASE_PATH"); v != "" {
		cfg.API.BasePath = v
	}

	// CORS configuration
	if v := os.Getenv("CRUDGATE_CORS_ENABLED"); v != "" {
		cfg.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("CRUDGATE_CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}

	// Logging configuration
	if v := os.Getenv("CRUDGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRUDGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CRUDGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CRUDGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("CRUDGATE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		switch cfg.Storage.Driver {
		case "mongo":
			cfg.Storage.DSN = "mongodb://localhost:27017"
		case "sqlite":
			cfg.Storage.DSN = "crudgate.db"
		}
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = "crudgate"
	}

	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api"
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	for i := range cfg.Resources {
		res := &cfg.Resources[i]
		if res.Table == "" {
			res.Table = res.Name
		}
		if res.PrimaryKey == "" {
			res.PrimaryKey = "id"
		}
		for j := range res.Fields {
			if res.Fields[j].Type == "" {
				res.Fields[j].Type = "string"
			}
		}
	}
}

var validActions = map[string]bool{
	"list": true, "get": true, "create": true, "update": true, "delete": true,
}

var validFieldTypes = map[string]bool{
	"string": true, "text": true, "int": true, "float": true,
	"bool": true, "time": true, "json": true,
}

func validate(cfg *Config) error {
	validDrivers := map[string]bool{"sqlite": true, "mongo": true, "memory": true}
	if !validDrivers[cfg.Storage.Driver] {
		return fmt.Errorf("storage.driver must be 'sqlite', 'mongo' or 'memory', got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "mongo" && cfg.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required when storage.driver is 'mongo'")
	}

	if !strings.HasPrefix(cfg.API.BasePath, "/") {
		return fmt.Errorf("api.base_path must start with '/', got %q", cfg.API.BasePath)
	}

	if len(cfg.Resources) == 0 {
		return fmt.Errorf("at least one resource is required")
	}

	seen := make(map[string]bool)
	for i, res := range cfg.Resources {
		if res.Name == "" {
			return fmt.Errorf("resources[%d].name is required", i)
		}
		if !validResourceName(res.Name) {
			return fmt.Errorf("resources[%d].name %q must be lowercase letters, digits and underscores", i, res.Name)
		}
		if seen[res.Name] {
			return fmt.Errorf("duplicate resource %q", res.Name)
		}
		seen[res.Name] = true

		if !validResourceName(res.Table) {
			return fmt.Errorf("resource %q: table %q must be lowercase letters, digits and underscores", res.Name, res.Table)
		}
		if !validResourceName(res.PrimaryKey) {
			return fmt.Errorf("resource %q: primary key %q must be lowercase letters, digits and underscores", res.Name, res.PrimaryKey)
		}

		for _, action := range res.Actions {
			if !validActions[action] {
				return fmt.Errorf("resource %q: unknown action %q", res.Name, action)
			}
		}

		fields := make(map[string]bool)
		for _, f := range res.Fields {
			if f.Name == "" {
				return fmt.Errorf("resource %q: field name is required", res.Name)
			}
			if !validResourceName(f.Name) {
				return fmt.Errorf("resource %q: field name %q must be lowercase letters, digits and underscores", res.Name, f.Name)
			}
			if fields[f.Name] {
				return fmt.Errorf("resource %q: duplicate field %q", res.Name, f.Name)
			}
			fields[f.Name] = true
			if !validFieldTypes[f.Type] {
				return fmt.Errorf("resource %q: field %q has unknown type %q", res.Name, f.Name, f.Type)
			}
		}
	}

	return nil
}

// validResourceName keeps resource names usable as both URL path segments
// and SQL table names.
func validResourceName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
