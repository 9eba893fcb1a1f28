package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "45s"
// or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PipelineProfile tunes the executor: per-call timeouts, the retry budget
// and the options enums the submission endpoint accepts. The defaults are
// production values; a YAML file can override them per deployment.
type PipelineProfile struct {
	Retry struct {
		MaxAttempts  int      `yaml:"max_attempts"`
		InitialDelay Duration `yaml:"initial_delay"`
	} `yaml:"retry"`

	Timeouts struct {
		ImageGeneration Duration `yaml:"image_generation"`
		AudioGeneration Duration `yaml:"audio_generation"`
		Composition     Duration `yaml:"composition"`
	} `yaml:"timeouts"`

	Limits struct {
		AllowedResolutions []string `yaml:"allowed_resolutions"`
		MinDurationSec     int      `yaml:"min_duration_sec"`
		MaxDurationSec     int      `yaml:"max_duration_sec"`
		AllowedQualities   []string `yaml:"allowed_qualities"`
	} `yaml:"limits"`
}

// DefaultPipelineProfile returns the built-in production profile.
// Composition gets a minutes-scale ceiling; single provider calls get
// tens of seconds.
func DefaultPipelineProfile() *PipelineProfile {
	p := &PipelineProfile{}
	p.Retry.MaxAttempts = 3
	p.Retry.InitialDelay = Duration(1 * time.Second)
	p.Timeouts.ImageGeneration = Duration(45 * time.Second)
	p.Timeouts.AudioGeneration = Duration(60 * time.Second)
	p.Timeouts.Composition = Duration(10 * time.Minute)
	p.Limits.AllowedResolutions = []string{"1920x1080", "1280x720", "3840x2160"}
	p.Limits.MinDurationSec = 30
	p.Limits.MaxDurationSec = 600
	p.Limits.AllowedQualities = []string{"high", "medium", "low"}
	return p
}

// LoadPipelineProfile reads a YAML profile file over the defaults.
// An empty path returns the defaults unchanged.
func LoadPipelineProfile(path string) (*PipelineProfile, error) {
	profile := DefaultPipelineProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline profile %s: %w", path, err)
	}

	if profile.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("pipeline profile %s: retry.max_attempts must be >= 1", path)
	}
	if profile.Limits.MinDurationSec >= profile.Limits.MaxDurationSec {
		return nil, fmt.Errorf("pipeline profile %s: duration limits are inverted", path)
	}
	return profile, nil
}
