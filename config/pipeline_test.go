package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineProfile(t *testing.T) {
	p := DefaultPipelineProfile()
	assert.Equal(t, 3, p.Retry.MaxAttempts)
	assert.Equal(t, time.Second, p.Retry.InitialDelay.Std())
	assert.Equal(t, 10*time.Minute, p.Timeouts.Composition.Std())
	assert.Contains(t, p.Limits.AllowedResolutions, "1920x1080")
	assert.Equal(t, 30, p.Limits.MinDurationSec)
	assert.Equal(t, 600, p.Limits.MaxDurationSec)
}

func TestLoadPipelineProfileEmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPipelineProfile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPipelineProfile(), p)
}

func TestLoadPipelineProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
retry:
  max_attempts: 5
  initial_delay: 250ms
timeouts:
  image_generation: 20s
limits:
  allowed_resolutions: ["1280x720"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPipelineProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.Retry.InitialDelay.Std())
	assert.Equal(t, 20*time.Second, p.Timeouts.ImageGeneration.Std())
	assert.Equal(t, []string{"1280x720"}, p.Limits.AllowedResolutions)
	// Untouched sections keep their defaults.
	assert.Equal(t, 60*time.Second, p.Timeouts.AudioGeneration.Std())
	assert.Equal(t, []string{"high", "medium", "low"}, p.Limits.AllowedQualities)
}

func TestLoadPipelineProfileValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero attempts", "retry:\n  max_attempts: 0\n"},
		{"inverted durations", "limits:\n  min_duration_sec: 700\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := LoadPipelineProfile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadPipelineProfileMissingFile(t *testing.T) {
	_, err := LoadPipelineProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
