package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/convrelay/internal/audit"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CONVRELAY_CONFIG is set
//  3. env (prefix CONVRELAY_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CONVRELAY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CONVRELAY_ADDR, CONVRELAY_AUDIT_POLICY, ...
	// Keys under the conversion block nest one level:
	// CONVRELAY_CONVERSION_CUSTOMER_ID -> conversion.customer_id.
	// Other underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("CONVRELAY_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "CONVRELAY_"))
		if rest, ok := strings.CutPrefix(s, "conversion_"); ok {
			return "conversion." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := audit.ParsePolicy(cfg.AuditPolicy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}
