package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Port    int           `yaml:"port" env:"SAMPLE_PORT"`
	Timeout time.Duration `yaml:"timeout"`
	Nested  struct {
		URL string `yaml:"url" env:"SAMPLE_URL"`
	} `yaml:"nested"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsAndOverlays(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "gateway")
	t.Setenv("SAMPLE_URL", "http://override")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 8080\ntimeout: 15s\nnested:\n  url: http://file\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "gateway" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.Nested.URL != "http://override" {
		t.Errorf("env should override file: url = %q", cfg.Nested.URL)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "port: 1\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("missing name should fail validation")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "9090")
	cfg := sample{Name: "defaults"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want env value 9090", cfg.Port)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "name: [unterminated\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("malformed yaml should fail")
	}
}
