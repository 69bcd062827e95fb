package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hangboard.toml")

	cfg := Default()
	cfg.Name = "Progressor_7"
	cfg.ProgressorID = 7
	cfg.MedianWindow = 9
	cfg.ByteOrder = "little"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hangboard.toml")
	require.NoError(t, os.WriteFile(path, []byte("median_window = 7\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MedianWindow)
	assert.Equal(t, Default().Name, cfg.Name)
	assert.Equal(t, Default().SamplingHz, cfg.SamplingHz)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hangboard.toml")
	require.NoError(t, os.WriteFile(path, []byte("median_window = 4\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sampling", func(c *Config) { c.SamplingHz = 0 }},
		{"even window", func(c *Config) { c.MedianWindow = 4 }},
		{"zero window", func(c *Config) { c.MedianWindow = 0 }},
		{"zero capacity", func(c *Config) { c.CapacityKg = 0 }},
		{"bad byte order", func(c *Config) { c.ByteOrder = "middle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
