package model_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ncradle/GuiTimeoutSample/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
deadline: 3s
stages:
  - name: fetch
    duration: 500ms
  - name: render
    duration: 1m30s
pool:
  workers: 2
schedule:
  every: 10s
log:
  format: text
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Deadline)
	require.Equal(t, []model.Stage{
		{Name: "fetch", Duration: 500 * time.Millisecond},
		{Name: "render", Duration: 90 * time.Second},
	}, cfg.Stages)
	require.Equal(t, 2, cfg.Pool.Workers)
	require.Equal(t, 16, cfg.Pool.Queue)
	require.Equal(t, 10*time.Second, cfg.Schedule.Every)
	require.True(t, cfg.Schedule.Enabled())
	require.Equal(t, model.LogFormatText, cfg.Log.Format)
	require.Equal(t, 90*time.Second+500*time.Millisecond, cfg.Total())
}

func TestDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	require.Equal(t, 5*time.Second, cfg.Deadline)
	require.Len(t, cfg.Stages, 2)
	require.Equal(t, 4*time.Second, cfg.Total())
	require.Equal(t, 4, cfg.Pool.Workers)
	require.False(t, cfg.Schedule.Enabled())
	require.Equal(t, model.LogFormatJSON, cfg.Log.Format)

	empty, err := model.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, cfg, empty)
}

func TestLoadConfig_NoDeadline(t *testing.T) {
	t.Parallel()
	cfg, err := model.LoadConfig(strings.NewReader("deadline: 0s\n"))
	require.NoError(t, err)
	require.Zero(t, cfg.Deadline)
	require.Len(t, cfg.Stages, 2)
}

func TestLoadConfig_Env(t *testing.T) {
	// can't be parallel as touches the environment
	t.Setenv("WATCHDOG_DEADLINE", "1s")
	t.Setenv("WATCHDOG_POOL_WORKERS", "1")
	t.Setenv("WATCHDOG_SCHEDULE_CRON", "@hourly")

	cfg, err := model.LoadConfig(strings.NewReader("deadline: 9s\n"))
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.Deadline)
	require.Equal(t, 1, cfg.Pool.Workers)
	require.Equal(t, "@hourly", cfg.Schedule.Cron)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		given    string
	}{
		{"no stages", "stages: []\n"},
		{"empty stage name", "stages:\n  - name: \"\"\n    duration: 1s\n"},
		{"zero workers", "pool:\n  workers: 0\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"negative stage", "stages:\n  - name: a\n    duration: -1s\n"},
		{"negative deadline", "deadline: -1s\n"},
		{"duplicate stages", "stages:\n  - {name: a, duration: 1s}\n  - {name: a, duration: 1s}\n"},
		{"unknown key", "retries: 3\n"},
		{"bad duration", "deadline: soon\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tc.given))
			require.Error(t, err)
			require.NotEmpty(t, model.ConfigErrDetails(err))
		})
	}
}

func TestConfigErrDetails(t *testing.T) {
	_, err := model.LoadConfig(strings.NewReader("pool:\n  workers: 0\n"))
	require.Error(t, err)
	details := model.ConfigErrDetails(err)
	require.NotEmpty(t, details)

	var paths []string
	for _, d := range details {
		paths = append(paths, d.Path)
	}
	require.Contains(t, strings.Join(paths, " "), "workers")

	require.Nil(t, model.ConfigErrDetails(nil))
	gen := model.ConfigErrDetails(model.ErrNoStages)
	require.Len(t, gen, 1)
	require.Equal(t, "validation_error", gen[0].Code)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "watchdog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deadline: 1s\n"), 0o644))

	cfg, err := model.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.Deadline)
	require.Len(t, cfg.Stages, 2)

	_, err = model.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWatchFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "watchdog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deadline: 1s\n"), 0o644))

	applied := make(chan model.Config, 4)
	err := model.WatchFile(t.Context(), path, func(cfg model.Config) {
		applied <- cfg
	})
	require.NoError(t, err)

	// an invalid version is never applied
	require.NoError(t, os.WriteFile(path, []byte("deadline: nope\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("deadline: 7s\n"), 0o644))

	require.Eventually(t, func() bool {
		select {
		case cfg := <-applied:
			return cfg.Deadline == 7*time.Second
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
