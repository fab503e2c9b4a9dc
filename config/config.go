// ABOUTME: YAML configuration with struct-tag defaults, .env loading, and environment overrides.
// ABOUTME: Load never fails on a missing file; it falls back to the defaults declared on each field.

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/listingdesk/imaging"
)

// Environment variables that override file settings.
const (
	EnvBackendURL   = "LISTINGDESK_BACKEND_URL"
	EnvBackendToken = "LISTINGDESK_BACKEND_TOKEN"
	EnvAddr         = "LISTINGDESK_ADDR"
	EnvLogLevel     = "LISTINGDESK_LOG_LEVEL"
	EnvJournalPath  = "LISTINGDESK_JOURNAL_PATH"
)

// ErrNoBackendURL is returned by RequireBackend when no backend is configured.
var ErrNoBackendURL = errors.New("backend url is not configured (set backend.url or " + EnvBackendURL + ")")

var configLogger = zerolog.Nop()

// SetLogger sets the logger used while loading configuration.
func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Imaging ImagingConfig `yaml:"imaging"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" default:"127.0.0.1:8080"`
	SessionTTL      time.Duration `yaml:"session_ttl" default:"2h"`
	MaxSessions     int           `yaml:"max_sessions" default:"100"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	// SubmitWait bounds how long a submission waits for in-flight image insertions.
	SubmitWait time.Duration `yaml:"submit_wait" default:"30s"`
}

type BackendConfig struct {
	URL     string        `yaml:"url" default:""`
	Token   string        `yaml:"token" default:""`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

type ImagingConfig struct {
	MaxWidth  int   `yaml:"max_width" default:"800"`
	Quality   int   `yaml:"quality" default:"80"`
	MaxBytes  int64 `yaml:"max_bytes" default:"20971520"`
	MaxPixels int64 `yaml:"max_pixels" default:"40000000"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"listingdesk.db"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

// Default returns a Config holding only the declared defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read through lookup,
// typically os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		c.Backend.URL = v
	}
	if v, ok := lookup(EnvBackendToken); ok && v != "" {
		c.Backend.Token = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvJournalPath); ok && v != "" {
		c.Journal.Path = v
	}
}

// Validate checks settings that have no sensible fallback.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.MaxSessions <= 0 {
		problems = append(problems, "server.max_sessions must be positive")
	}
	if c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.session_ttl must be positive")
	}
	if c.Imaging.MaxWidth <= 0 {
		problems = append(problems, "imaging.max_width must be positive")
	}
	if c.Imaging.Quality < 1 || c.Imaging.Quality > 100 {
		problems = append(problems, "imaging.quality must be between 1 and 100")
	}
	if c.Imaging.MaxBytes <= 0 {
		problems = append(problems, "imaging.max_bytes must be positive")
	}
	if c.Imaging.MaxPixels <= 0 {
		problems = append(problems, "imaging.max_pixels must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireBackend reports ErrNoBackendURL when no backend URL is set.
func (c *Config) RequireBackend() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return ErrNoBackendURL
	}
	return nil
}

// ImagingOptions converts the imaging section to pipeline options.
func (c *Config) ImagingOptions() imaging.Options {
	return imaging.Options{
		MaxWidth:  c.Imaging.MaxWidth,
		Quality:   c.Imaging.Quality,
		MaxBytes:  c.Imaging.MaxBytes,
		MaxPixels: c.Imaging.MaxPixels,
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if d, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(d))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
