package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMissingDatabaseURL is returned when no connection string was supplied
// by the file, the environment or a flag override.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Scope selects which sections Validate checks. Sections a command never
// reads are not validated for it.
type Scope int

const (
	// ScopeAll validates every section.
	ScopeAll Scope = iota
	// ScopeImport validates Database, Import and Logging.
	ScopeImport
	// ScopeServe validates Database, Server, Logging, Metrics and Predictions.
	ScopeServe
)

// Options controls where Load reads configuration from.
type Options struct {
	// Scope limits validation to the sections the caller uses.
	Scope Scope

	// File is an optional YAML file. Its values sit between the defaults
	// and the environment.
	File string

	// Overrides win over everything else. Keys are env var names
	// (e.g. "IMPORT_FILE"); empty values are ignored.
	Overrides map[string]string
}

// Load reads configuration from the optional YAML file, the environment and
// the overrides, in increasing order of precedence. It applies defaults for
// unset values and validates the result.
func Load(opts Options) (*Config, error) {
	environ := make(map[string]string)

	if opts.File != "" {
		fileEnv, err := readFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		for k, v := range fileEnv {
			environ[k] = v
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		if v != "" {
			environ[k] = v
		}
	}

	// DB_URL fallback only when nothing else supplied DATABASE_URL
	if environ["DATABASE_URL"] == "" {
		if alt := os.Getenv("DB_URL"); alt != "" {
			environ["DATABASE_URL"] = alt
		}
	}

	for k, v := range opts.Overrides {
		if v != "" {
			environ[k] = v
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	if err := cfg.ValidateFor(opts.Scope); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// readFile flattens a sectioned YAML document into env var names:
//
//	database:
//	  url: postgres://...   ->  DATABASE_URL
//	log:
//	  level: debug          ->  LOG_LEVEL
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make(map[string]string)
	for section, fields := range doc {
		for key, val := range fields {
			if val == nil {
				continue
			}
			name := strings.ToUpper(section + "_" + key)
			if list, ok := val.([]any); ok {
				items := make([]string, len(list))
				for i, item := range list {
					items[i] = fmt.Sprint(item)
				}
				out[name] = strings.Join(items, ",")
				continue
			}
			out[name] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// Validate checks every section of the configuration.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	return c.ValidateFor(ScopeAll)
}

// ValidateFor checks the sections used by scope.
func (c *Config) ValidateFor(scope Scope) error {
	var errs []string

	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}

	validate := validator.New()
	for _, section := range c.sections(scope) {
		if err := validate.Struct(section); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		}
	}

	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DATABASE_MAX_CONNS (%d) must be >= DATABASE_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func (c *Config) sections(scope Scope) []any {
	switch scope {
	case ScopeImport:
		return []any{&c.Database, &c.Import, &c.Logging}
	case ScopeServe:
		return []any{&c.Database, &c.Server, &c.Logging, &c.Metrics, &c.Predictions}
	default:
		return []any{&c.Database, &c.Import, &c.Server, &c.Logging, &c.Metrics, &c.Predictions}
	}
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {File: %q, ProgressInterval: %d}, ",
		c.Import.File, c.Import.ProgressInterval))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d, APIKeys: [%d MASKED]}, ",
		c.Server.Host, c.Server.Port, len(c.Server.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
