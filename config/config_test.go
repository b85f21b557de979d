package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `
http:
  address: ":9090"
mongo:
  uri: "mongodb://localhost:27017"
  database: "fieldserve"
redis:
  address: "localhost:6380"
dispatch:
  radius_meters: 5000
  offer_timeout_seconds: 10
  require_active: true
  push_enabled: true
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "dispatch-test"
`

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "fieldserve", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6380", cfg.Redis.Address)
	assert.Equal(t, float64(5000), cfg.Dispatch.RadiusMeters)
	assert.Equal(t, 10, cfg.Dispatch.OfferTimeoutSeconds)
	assert.True(t, cfg.Dispatch.RequireActive)
	assert.True(t, cfg.Dispatch.PushEnabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
mongo:
  uri: "mongodb://localhost:27017"
  database: "fieldserve"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, float64(10000), cfg.Dispatch.RadiusMeters)
	assert.Equal(t, 30, cfg.Dispatch.OfferTimeoutSeconds)
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "mongo": {"uri": "mongodb://localhost:27017", "database": "fieldserve"},
  "dispatch": {"radius_meters": 2500}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, float64(2500), cfg.Dispatch.RadiusMeters)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", sampleYAML)
	t.Setenv("FS_HTTP__ADDRESS", ":7070")
	t.Setenv("FS_MONGO__DATABASE", "override")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, ":7070", cfg.HTTP.Address)
	assert.Equal(t, "override", cfg.Mongo.Database)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "config.toml", "a = 1")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for unsupported format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
