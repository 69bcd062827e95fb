// Package config holds the device configuration, persisted as a TOML file.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	pkgerrors "github.com/pkg/errors"
)

// Config is the device configuration. Zero values are filled from Default
// on load so a partial file stays valid.
type Config struct {
	// Name is the advertised device name. Compatible applications match on
	// the "Progressor" prefix.
	Name string `toml:"name"`
	// ProgressorID is returned by the GetProgressorID command.
	ProgressorID uint64 `toml:"progressor_id"`
	// AppVersion is returned by the GetAppVersion command.
	AppVersion string `toml:"app_version"`

	// SamplingHz is the raw sample cadence of the ADC source.
	SamplingHz int `toml:"sampling_hz"`
	// MedianWindow is the median filter window size; must be odd.
	MedianWindow int `toml:"median_window"`

	// ByteOrder selects how the AddCalibrationPoint float payload is
	// decoded: "little", "big" or "auto".
	ByteOrder string `toml:"byte_order"`
	// CapacityKg bounds plausible reference weights; used by the "auto"
	// byte-order mode.
	CapacityKg float32 `toml:"capacity_kg"`

	// StoragePath is the file backing the calibration store.
	StoragePath string `toml:"storage_path"`

	// LowBatteryMillivolts is the threshold below which the device warns
	// the peer before handling commands.
	LowBatteryMillivolts uint32 `toml:"low_battery_mv"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Name:                 "Progressor_4242",
		ProgressorID:         42,
		AppVersion:           "1.2.3.4",
		SamplingHz:           80,
		MedianWindow:         5,
		ByteOrder:            "auto",
		CapacityKg:           150,
		StoragePath:          defaultStoragePath(),
		LowBatteryMillivolts: 3300,
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hangboard-nvm.bin"
	}
	return filepath.Join(dir, "hangboard", "nvm.bin")
}

// Load reads path and overlays it on the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, pkgerrors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pkgerrors.Wrap(err, "create config dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(err, "create config file")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return pkgerrors.Wrap(err, "encode config")
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.SamplingHz <= 0 {
		return pkgerrors.Errorf("sampling_hz must be positive, got %d", c.SamplingHz)
	}
	if c.MedianWindow < 1 || c.MedianWindow%2 == 0 {
		return pkgerrors.Errorf("median_window must be odd and positive, got %d", c.MedianWindow)
	}
	if c.CapacityKg <= 0 {
		return pkgerrors.Errorf("capacity_kg must be positive, got %v", c.CapacityKg)
	}
	switch c.ByteOrder {
	case "little", "big", "auto":
	default:
		return pkgerrors.Errorf("byte_order must be little, big or auto, got %q", c.ByteOrder)
	}
	return nil
}
