// Package config loads the deck configuration from a TOML file using Viper.
//
// The file carries the five keys consumed by the build and serve loops:
//
//	src      = "slides.md"   # the single markup source
//	out      = "out"         # output directory
//	template = "slide.html"  # page template
//	static   = "static"      # asset tree mirrored to out/static
//	deploy   = "host:/www"   # optional deploy destination
//
// An optional [s3] table tunes deploys to s3:// destinations (endpoint,
// region, static credentials, path-style addressing for MinIO).
//
// Each key can be overridden from the environment with the DECK_ prefix
// (DECK_SRC, DECK_OUT, ...). Relative paths are left relative and therefore
// resolve against the working directory. The loaded Config is never mutated
// afterwards.
package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olynch/presentations/internal/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "config.toml"

// EnvPrefix is prepended to upper-cased keys for environment overrides.
const EnvPrefix = "DECK"

// Config is the deck configuration read from config.toml.
type Config struct {
	Src      string    `mapstructure:"src" toml:"src" yaml:"src"`
	Out      string    `mapstructure:"out" toml:"out" yaml:"out"`
	Template string    `mapstructure:"template" toml:"template" yaml:"template"`
	Static   string    `mapstructure:"static" toml:"static" yaml:"static"`
	Deploy   string    `mapstructure:"deploy" toml:"deploy,omitempty" yaml:"deploy,omitempty"`
	S3       *S3Config `mapstructure:"s3" toml:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config holds connection settings for s3:// deploy destinations. Unset
// fields fall back to the standard AWS environment.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint" toml:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region          string `mapstructure:"region" toml:"region,omitempty" yaml:"region,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" toml:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `mapstructure:"use_path_style" toml:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
}

var keys = []string{
	"src", "out", "template", "static", "deploy",
	"s3.endpoint", "s3.region", "s3.access_key_id", "s3.secret_access_key", "s3.use_path_style",
}

// Load reads and validates the TOML configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "binding environment for "+key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigRead, "could not read config", err).WithPath(path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "could not decode config", err).WithPath(path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every required key is present.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"src", c.Src},
		{"out", c.Out},
		{"template", c.Template},
		{"static", c.Static},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return errors.NewConfigError(
			errors.ErrCodeConfigMissing,
			fmt.Sprintf("missing required key(s): %s", strings.Join(missing, ", ")),
			nil,
		)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if c.S3 != nil {
		s3 := *c.S3
		if s3.SecretAccessKey != "" {
			s3.SecretAccessKey = "********"
		}
		out.S3 = &s3
	}
	return &out
}

// Encode serialises the configuration as "toml" or "yaml".
func (c *Config) Encode(format string) ([]byte, error) {
	switch format {
	case "", "toml":
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("encoding toml: %w", err)
		}
		return buf.Bytes(), nil
	case "yaml":
		out, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: toml, yaml)", format)
	}
}
