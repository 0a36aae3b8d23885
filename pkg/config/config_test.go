package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Name    string        `yaml:"name" env:"TESTCFG_NAME"`
	Port    int           `yaml:"port" env:"TESTCFG_PORT"`
	Timeout time.Duration `yaml:"timeout"`
	Nested  struct {
		Path string `yaml:"path" env:"TESTCFG_NESTED_PATH"`
	} `yaml:"nested"`
}

func (c *testConfig) Validate() error {
	if c.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsAndOverrides(t *testing.T) {
	t.Setenv("TESTCFG_FROM_FILE", "expanded")
	t.Setenv("TESTCFG_PORT", "9090")
	t.Setenv("TESTCFG_NESTED_PATH", "/data")

	path := writeFile(t, "name: ${TESTCFG_FROM_FILE}\nport: 8080\ntimeout: 3s\nnested:\n  path: ./local\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "expanded" {
		t.Errorf("name = %q, want expanded", cfg.Name)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Port)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.Nested.Path != "/data" {
		t.Errorf("nested path = %q", cfg.Nested.Path)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	def := writeFile(t, "port: 7000\n")
	var cfg testConfig
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), def, &cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Port)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TESTCFG_PORT", "1234")
	cfg := testConfig{Name: "kept"}
	if err := LoadEnv(&cfg); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Port != 1234 || cfg.Name != "kept" {
		t.Errorf("cfg = %+v", cfg)
	}
}
