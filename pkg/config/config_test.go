package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeFile(t, "name: ${SAMPLE_NAME}\nport: 8080\n")

	cfg := sample{}
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-env" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeFile(t, "name: x\n")
	cfg := sample{Port: 9}
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9 {
		t.Errorf("port = %d, want default 9", cfg.Port)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	p := writeFile(t, "port: 1\nprot: 2\n")
	if err := Load(p, &sample{}); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoad_Validation(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	err := Load(p, &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Port: 1}
	if err := LoadOptional(missing, &cfg); err != nil {
		t.Fatalf("missing file with valid defaults: %v", err)
	}
	if err := LoadOptional(missing, &sample{}); err == nil {
		t.Error("missing file with invalid defaults should fail")
	}
	if err := Load(missing, &cfg); err == nil {
		t.Error("Load should require the file")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeFile(t, "")
	cfg := sample{Port: 3}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("empty file: %v", err)
	}
}
