package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/serialbridge/internal/escape"
)

func TestConfig_LoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, escape.DefaultCannedCommand, cfg.CannedCommand)
	assert.True(t, cfg.ClearScreen)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Debug)
}

func TestConfig_LoadWithFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
canned_command: "dir\r\n"
clear_screen: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "dir\r\n", cfg.CannedCommand)
	assert.False(t, cfg.ClearScreen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfig_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SERIALBRIDGE_CANNED_COMMAND", "status\n")
	t.Setenv("SERIALBRIDGE_LOG_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "status\n", cfg.CannedCommand)
	assert.True(t, cfg.Log.Debug)
}

func TestConfig_InvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log: [unterminated"), 0644))

	_, err := Load(configFile)
	require.Error(t, err)
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLogConfig_ZerologLevel(t *testing.T) {
	tests := []struct {
		cfg  LogConfig
		want zerolog.Level
	}{
		{LogConfig{Level: "trace"}, zerolog.TraceLevel},
		{LogConfig{Level: "DEBUG"}, zerolog.DebugLevel},
		{LogConfig{Level: "info"}, zerolog.InfoLevel},
		{LogConfig{Level: "warning"}, zerolog.WarnLevel},
		{LogConfig{Level: "error"}, zerolog.ErrorLevel},
		{LogConfig{Level: "bogus"}, zerolog.WarnLevel},
		{LogConfig{Level: "error", Debug: true}, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.ZerologLevel(), "%+v", tt.cfg)
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
