package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GUIDEBOARD_CONFIG_PATH", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "disk", cfg.Driver)
	assert.Equal(t, filepath.Join(home, ".guideboard"), cfg.DataDir)
	assert.Equal(t, "http://localhost:5000", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.True(t, cfg.Watch)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, cfg.DataDir, cfg.StorePath())
}

func TestFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "guideboard.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"port: 8080\ndriver: SQLite\ndata_dir: "+dir+"\ndebounce: 2s\n"), 0644))

	t.Setenv("GUIDEBOARD_PORT", "9090")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port, "l'ambiente vince sul file")
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, filepath.Join(dir, "guideboard.db"), cfg.StorePath())
	assert.Equal(t, 2*time.Second, cfg.Debounce)
	assert.Equal(t, file, cfg.File)
}

func TestConfigPathSearch(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guideboard.yaml"), []byte("server_url: http://guide.local:7000\n"), 0644))
	t.Setenv("GUIDEBOARD_CONFIG_PATH", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://guide.local:7000", cfg.ServerURL)
}

func TestInvalidValues(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{"porta", "port: 70000\n"},
		{"driver", "driver: postgres\n"},
		{"upload", "max_upload_mb: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(file, []byte(tt.yaml), 0644))
			_, err := Load(file)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "manca.yaml"))
	assert.Error(t, err)
}
