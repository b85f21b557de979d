// Package config loads the service configuration from a file with optional
// environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/fieldserve/dispatch/core/metrics"
	"github.com/fieldserve/dispatch/infra/mongo"
	"github.com/fieldserve/dispatch/infra/push"
	"github.com/fieldserve/dispatch/infra/redisgeo"
)

// Config is the root configuration document.
type Config struct {
	HTTP     HTTPConfig         `json:"http"`
	Mongo    mongo.Config       `json:"mongo"`
	Redis    redisgeo.Config    `json:"redis"`
	MQTT     push.Config        `json:"mqtt"`
	Dispatch DispatchConfig     `json:"dispatch"`
	Metrics  coremetrics.Config `json:"metrics"`
}

// HTTPConfig defines the API listener.
type HTTPConfig struct {
	Address string `json:"address"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

// DispatchConfig carries the dispatch tunables.
type DispatchConfig struct {
	// RadiusMeters is the candidate search radius around the customer.
	RadiusMeters float64 `json:"radius_meters"`
	// OfferTimeoutSeconds bounds the wait per candidate in negotiated mode.
	OfferTimeoutSeconds int `json:"offer_timeout_seconds"`
	// RequireActive restricts assignment to approved, active technicians.
	RequireActive bool `json:"require_active"`
	// PushEnabled wires the MQTT gateway; without it only greedy dispatch
	// is available.
	PushEnabled bool `json:"push_enabled"`
}

// SetDefaults applies sane defaults.
func (c *DispatchConfig) SetDefaults() {
	if c.RadiusMeters <= 0 {
		c.RadiusMeters = 10000
	}
	if c.OfferTimeoutSeconds <= 0 {
		c.OfferTimeoutSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c DispatchConfig) Validate() error {
	if c.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be positive")
	}
	if c.OfferTimeoutSeconds <= 0 {
		return fmt.Errorf("offer_timeout_seconds must be positive")
	}
	return nil
}

// Load reads the configuration from path. YAML and JSON are supported, chosen
// by file extension. Environment variables prefixed with FS_ override file
// values, with __ separating nesting levels.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("FS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fs_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Mongo.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Mongo.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
