// Package config loads runtime settings for the loan arm.
//
// Settings come from loanarm.yaml in the working directory (or an
// explicit path); every key has a default matching the calibrated
// production values, so a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultFile is the settings file looked up when no path is given.
const DefaultFile = "loanarm.yaml"

// Settings holds every runtime tunable.
type Settings struct {
	// Hardware
	SerialPort    string `mapstructure:"serial_port"`
	PositionsFile string `mapstructure:"positions_file"`

	// Detection
	ClassifierURL       string        `mapstructure:"classifier_url"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	DetectionInterval   time.Duration `mapstructure:"detection_interval"`
	InitialWait         time.Duration `mapstructure:"initial_wait"`
	SafetyWait          time.Duration `mapstructure:"safety_wait"`
	StableCount         int           `mapstructure:"stable_count"`

	// Movement (ms per commanded move)
	SpeedNormal int `mapstructure:"speed_normal"`
	SpeedSlow   int `mapstructure:"speed_slow"`
	SpeedFast   int `mapstructure:"speed_fast"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial_port", "/dev/ttyUSB0")
	v.SetDefault("positions_file", "positions.json")
	v.SetDefault("classifier_url", "http://127.0.0.1:8090/classify")
	v.SetDefault("confidence_threshold", 0.80)
	v.SetDefault("detection_interval", time.Second)
	v.SetDefault("initial_wait", 3*time.Second)
	v.SetDefault("safety_wait", 2*time.Second)
	v.SetDefault("stable_count", 3)
	v.SetDefault("speed_normal", 1000)
	v.SetDefault("speed_slow", 500)
	v.SetDefault("speed_fast", 1500)
}

// Load reads settings from path, or from loanarm.yaml when path is
// empty. A missing file yields the defaults; a malformed file is an
// error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.StableCount < 1 {
		return fmt.Errorf("stable_count must be at least 1, got %d", s.StableCount)
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %g", s.ConfidenceThreshold)
	}
	if s.DetectionInterval <= 0 {
		return fmt.Errorf("detection_interval must be positive, got %s", s.DetectionInterval)
	}
	return nil
}
