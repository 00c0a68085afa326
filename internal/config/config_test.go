package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
model_dir: ./domain
format: json
catalog: build/catalog.db
ddl: true
log_level: debug
naming:
  max_length: 63
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		ModelDir: "./domain",
		Format:   "json",
		Catalog:  "build/catalog.db",
		DDL:      true,
		LogLevel: "debug",
		Naming:   NamingConfig{MaxLength: 63},
	}, cfg)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ddl: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.DDL)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_NoPathWithoutDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("format: json\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "formats: json\n", "field formats not found"},
		{"bad yaml", "format: [\n", "parse config"},
		{"bad format", "format: xml\n", `format: must be one of [text json], got "xml"`},
		{"bad level", "log_level: trace\n", "log_level: must be one of"},
		{"short names", "naming:\n  max_length: 4\n", "naming.max_length: must be at least 16, got 4"},
		{"long names", "naming:\n  max_length: 5000\n", "naming.max_length: must be at most 1024"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := &Config{Format: "xml", LogLevel: "loud"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t,
		`format: must be one of [text json], got "xml"; log_level: must be one of [debug info warn error], got "loud"`,
		err.Error())
}

func TestLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range testCases {
		assert.Equal(t, want, (&Config{LogLevel: in}).Level(), in)
	}
}
