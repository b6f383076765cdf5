// Package config defines the validated guard configuration.
// Configuration problems are surfaced here, at load time, never during
// evaluation: a Config that passed Validate cannot fail mid-decision.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/waftester/mcpguard/pkg/regexcache"
	"github.com/waftester/mcpguard/pkg/whitelist"
)

// Config holds all guard options. The zero value is not usable; start
// from Default() or Load() so the typosquat threshold is in range.
type Config struct {
	// WhitelistEnabled turns the whole whitelist stage on. When false,
	// server connections are allowed without inspection.
	WhitelistEnabled bool `yaml:"whitelist_enabled" json:"whitelist_enabled"`

	// Whitelist is the ordered set of trusted-server records.
	Whitelist []whitelist.Entry `yaml:"whitelist" json:"whitelist"`

	// BlockUnknownServers denies servers absent from the whitelist
	// instead of allowing them with a warning.
	BlockUnknownServers bool `yaml:"block_unknown_servers" json:"block_unknown_servers"`

	// TyposquatDetectionEnabled turns on name-similarity checks against
	// whitelisted names. Independent of BlockUnknownServers.
	TyposquatDetectionEnabled bool `yaml:"typosquat_detection_enabled" json:"typosquat_detection_enabled"`

	// TyposquatSimilarityThreshold is the minimum similarity ratio, in
	// [0,1], for a name to count as a typosquat of a whitelisted name.
	TyposquatSimilarityThreshold float64 `yaml:"typosquat_similarity_threshold" json:"typosquat_similarity_threshold"`

	// ToolMimicryDetectionEnabled turns on tool fingerprinting for
	// tools-list and tool-invoke events.
	ToolMimicryDetectionEnabled bool `yaml:"tool_mimicry_detection_enabled" json:"tool_mimicry_detection_enabled"`

	// HealthValidationEnabled gates the connection-health checks
	// (currently TLS validity) supplied by the host.
	HealthValidationEnabled bool `yaml:"health_validation_enabled" json:"health_validation_enabled"`

	// RequireValidTLS denies connections whose TLS status the host
	// reports as invalid or unvalidated. Only consulted when
	// HealthValidationEnabled is true.
	RequireValidTLS bool `yaml:"require_valid_tls" json:"require_valid_tls"`
}

// Default returns the recommended configuration: all detections on,
// unknown servers warned about but not blocked.
func Default() *Config {
	return &Config{
		WhitelistEnabled:             true,
		BlockUnknownServers:          false,
		TyposquatDetectionEnabled:    true,
		TyposquatSimilarityThreshold: 0.85,
		ToolMimicryDetectionEnabled:  true,
		HealthValidationEnabled:      false,
		RequireValidTLS:              false,
	}
}

// Load reads a YAML config file, applies it over Default(), and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed configuration: thresholds outside [0,1],
// duplicate whitelist names, and URL patterns that do not compile.
// Every returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.TyposquatSimilarityThreshold < 0 || c.TyposquatSimilarityThreshold > 1 {
		return fmt.Errorf("%w: typosquat_similarity_threshold %v outside [0,1]",
			ErrInvalidConfig, c.TyposquatSimilarityThreshold)
	}

	seen := make(map[string]struct{}, len(c.Whitelist))
	for _, e := range c.Whitelist {
		if e.Name == "" {
			return fmt.Errorf("%w: whitelist entry with empty name", ErrInvalidConfig)
		}
		key := strings.ToLower(e.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate whitelist entry %q", ErrInvalidConfig, e.Name)
		}
		seen[key] = struct{}{}

		if _, err := regexcache.Anchored(e.URLPattern); err != nil {
			return fmt.Errorf("%w: whitelist entry %q: url pattern %q does not compile",
				ErrInvalidConfig, e.Name, e.URLPattern)
		}
	}
	return nil
}
