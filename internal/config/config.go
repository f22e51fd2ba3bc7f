package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "TABSCOPE"
	dirName   = ".tabscope"
)

// Global configuration structure.
type Global struct {
	// Remote analysis service
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Uploads per minute against one backend; 0 disables the limiter
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	WorkspaceDir string `mapstructure:"workspace_dir" yaml:"workspace_dir"`

	// Input guards
	MaxRows    int `mapstructure:"max_rows" yaml:"max_rows"`
	MaxFileMB  int `mapstructure:"max_file_mb" yaml:"max_file_mb"`
	MaxColumns int `mapstructure:"max_columns" yaml:"max_columns"`

	// Report shape
	SampleRows        int `mapstructure:"sample_rows" yaml:"sample_rows"`
	HistogramBins     int `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	HistogramDecimals int `mapstructure:"histogram_decimals" yaml:"histogram_decimals"`
}

var defaults = map[string]any{
	"backend_url":           "http://localhost:8000",
	"http_timeout_sec":      30,
	"retry_max_attempts":    1,
	"retry_base_delay_ms":   500,
	"retry_max_delay_ms":    4000,
	"rate_limit_per_minute": 60,
	"workspace_dir":         "",
	"max_rows":              100000,
	"max_file_mb":           100,
	"max_columns":           500,
	"sample_rows":           5,
	"histogram_bins":        0,
	"histogram_decimals":    1,
}

// Dir returns ~/.tabscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, the config file (if present), a .env file in
// the working directory and TABSCOPE_* environment variables, in increasing
// precedence. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read: a missing file means defaults, a malformed one is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspaceDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.WorkspaceDir = filepath.Join(dir, "workspace")
	}
	return &c, nil
}

type field struct {
	get func(c *Global) string
	set func(c *Global, v string) error
}

func intField(ptr func(c *Global) *int, floor int) field {
	return field{
		get: func(c *Global) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Global, v string) error {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || i < floor {
				return fmt.Errorf("invalid int %q (minimum %d)", v, floor)
			}
			*ptr(c) = i
			return nil
		},
	}
}

var fields = map[string]field{
	"backend_url": {
		get: func(c *Global) string { return c.BackendURL },
		set: func(c *Global, v string) error {
			v = strings.TrimRight(strings.TrimSpace(v), "/")
			if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
				return fmt.Errorf("backend_url must start with http:// or https://")
			}
			c.BackendURL = v
			return nil
		},
	},
	"workspace_dir": {
		get: func(c *Global) string { return c.WorkspaceDir },
		set: func(c *Global, v string) error { c.WorkspaceDir = strings.TrimSpace(v); return nil },
	},
	"http_timeout_sec":      intField(func(c *Global) *int { return &c.HTTPTimeoutSec }, 1),
	"retry_max_attempts":    intField(func(c *Global) *int { return &c.RetryMaxAttempts }, 1),
	"retry_base_delay_ms":   intField(func(c *Global) *int { return &c.RetryBaseDelayMs }, 0),
	"retry_max_delay_ms":    intField(func(c *Global) *int { return &c.RetryMaxDelayMs }, 0),
	"rate_limit_per_minute": intField(func(c *Global) *int { return &c.RateLimitPerMinute }, 0),
	"max_rows":              intField(func(c *Global) *int { return &c.MaxRows }, 0),
	"max_file_mb":           intField(func(c *Global) *int { return &c.MaxFileMB }, 0),
	"max_columns":           intField(func(c *Global) *int { return &c.MaxColumns }, 0),
	"sample_rows":           intField(func(c *Global) *int { return &c.SampleRows }, 0),
	"histogram_bins":        intField(func(c *Global) *int { return &c.HistogramBins }, 0),
	"histogram_decimals":    intField(func(c *Global) *int { return &c.HistogramDecimals }, 0),
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value of key as text.
func (c *Global) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	return f.get(c), nil
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := f.set(c, val); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
