package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "DATABLASE_"
	envFileVar = "DATABLASE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DATABLASE_CONFIG is set
//  3. env (prefix DATABLASE_)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(defaultsProvider(New()), nil); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadConfig, err)
	}

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DATABLASE_MAX_LIMIT -> max_limit. Underscores are kept to match the koanf tags.
	// Comma separated values become lists.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(c.ExpandedPhaseIDs) == 0 && c.ExpandedPhaseFromSeason > 0 {
		return fmt.Errorf("%w: expanded_phase_ids must not be empty when expanded_phase_from_season is set", ErrInvalidConfig)
	}
	return nil
}

// structProvider exposes a Config's fields as a flat koanf map.
type structProvider map[string]any

func defaultsProvider(c *Config) structProvider {
	m := structProvider{}
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" {
			m[tag] = v.Field(i).Interface()
		}
	}
	return m
}

func (p structProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: struct provider does not support ReadBytes", ErrLoadConfig)
}

func (p structProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}
