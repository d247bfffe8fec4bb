// Package config legge la configurazione da guideboard.yaml e dalle variabili GUIDEBOARD_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Chiavi di configurazione
const (
	KeyPort        = "port"
	KeyDataDir     = "data_dir"
	KeyDriver      = "driver"
	KeyStaticDir   = "static_dir"
	KeyCORS        = "cors"
	KeyDebug       = "debug"
	KeyWatch       = "watch"
	KeyDebounce    = "debounce"
	KeyMaxUploadMB = "max_upload_mb"
	KeyServerURL   = "server_url"
	KeyProfileDir  = "profile_dir"
)

// Config impostazioni del server e della riga di comando
type Config struct {
	Port        int
	DataDir     string
	Driver      string
	StaticDir   string
	CORS        bool
	Debug       bool
	Watch       bool
	Debounce    time.Duration
	MaxUploadMB int
	ServerURL   string
	ProfileDir  string

	// File letto, vuoto se si usano solo default e ambiente
	File string
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 5000)
	v.SetDefault(KeyDataDir, "~/.guideboard")
	v.SetDefault(KeyDriver, "disk")
	v.SetDefault(KeyStaticDir, "")
	v.SetDefault(KeyCORS, true)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyWatch, true)
	v.SetDefault(KeyDebounce, "500ms")
	v.SetDefault(KeyMaxUploadMB, 10)
	v.SetDefault(KeyServerURL, "http://localhost:5000")
	v.SetDefault(KeyProfileDir, "~/.guideboard/profile")
}

// Load legge la configurazione. Con file vuoto cerca guideboard.yaml nella
// directory corrente, in GUIDEBOARD_CONFIG_PATH e in ~/.guideboard.
func Load(file string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("GUIDEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("guideboard") // .yaml implicito
		if override := os.Getenv("GUIDEBOARD_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".guideboard"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("errore lettura configurazione: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt(KeyPort),
		Driver:      strings.ToLower(v.GetString(KeyDriver)),
		CORS:        v.GetBool(KeyCORS),
		Debug:       v.GetBool(KeyDebug),
		Watch:       v.GetBool(KeyWatch),
		Debounce:    v.GetDuration(KeyDebounce),
		MaxUploadMB: v.GetInt(KeyMaxUploadMB),
		ServerURL:   v.GetString(KeyServerURL),
		File:        v.ConfigFileUsed(),
	}

	var err error
	if cfg.DataDir, err = homedir.Expand(v.GetString(KeyDataDir)); err != nil {
		return nil, fmt.Errorf("data_dir non valida: %w", err)
	}
	if cfg.ProfileDir, err = homedir.Expand(v.GetString(KeyProfileDir)); err != nil {
		return nil, fmt.Errorf("profile_dir non valida: %w", err)
	}
	if cfg.StaticDir, err = homedir.Expand(v.GetString(KeyStaticDir)); err != nil {
		return nil, fmt.Errorf("static_dir non valida: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("porta non valida: %d", c.Port)
	}
	switch c.Driver {
	case "disk", "sqlite":
	default:
		return fmt.Errorf("driver di storage sconosciuto: %q", c.Driver)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb deve essere positivo")
	}
	return nil
}

// StorePath restituisce il percorso da passare a store.Open per il driver scelto
func (c *Config) StorePath() string {
	if c.Driver == "sqlite" {
		return filepath.Join(c.DataDir, "guideboard.db")
	}
	return c.DataDir
}

// MaxUploadBytes limite di upload in byte
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
