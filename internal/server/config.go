package server

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the HTTP surface settings
type Config struct {
	Addr              string        `json:"addr" mapstructure:"addr"`
	MaxUploadBytes    int64         `json:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedExtensions []string      `json:"allowed_extensions" mapstructure:"allowed_extensions"`
	ReadTimeout       time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultConfig accepts WAV uploads of up to 20 MiB on :8080
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		MaxUploadBytes:    20 << 20,
		AllowedExtensions: []string{".wav"},
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Validate checks the server configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one upload extension must be allowed")
	}
	return nil
}

// allows reports whether an uploaded file name has a permitted extension
func (c *Config) allows(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range c.AllowedExtensions {
		a := strings.ToLower(allowed)
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if ext == a {
			return ext, true
		}
	}
	return ext, false
}
