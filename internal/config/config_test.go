package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("INKWELL_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "INKWELL_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "INKWELL_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "INKWELL_TEST_MISSING", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"banana", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "UNSET", true))
		})
	}

	// Empty falls back to the default.
	assert.True(t, getBoolConfigValue("", "UNSET", true))
	assert.False(t, getBoolConfigValue("", "UNSET", false))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 42, getIntConfigValue("42", "UNSET", 10))
	assert.Equal(t, 10, getIntConfigValue("", "UNSET", 10))
	assert.Equal(t, 10, getIntConfigValue("not-a-number", "UNSET", 10))
}

func TestValidate(t *testing.T) {
	valid := &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Library: LibraryConfig{StoragePath: "/tmp/library"},
		Cache:   CacheConfig{Capacity: 10},
		Server:  ServerConfig{Port: "8123", ReadTimeout: 15 * time.Second},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "prod" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty storage path", func(c *Config) { c.Library.StoragePath = "" }},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), expanded)

	expanded, err = expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", expanded)

	expanded, err = expandPath("/already/abs", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/already/abs", expanded)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nINKWELL_ENVFILE_A=hello\nINKWELL_ENVFILE_B=\"quoted\"\nnot-a-pair\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

	t.Setenv("INKWELL_ENVFILE_A", "")
	t.Setenv("INKWELL_ENVFILE_B", "")
	os.Unsetenv("INKWELL_ENVFILE_A")
	os.Unsetenv("INKWELL_ENVFILE_B")

	require.NoError(t, loadEnvFile(envPath))

	assert.Equal(t, "hello", os.Getenv("INKWELL_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("INKWELL_ENVFILE_B"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := loadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
