package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not be an error: %v", err)
	}
	if cfg.Addr != ":15147" || cfg.ZdbkBaseURL != "http://zdbk.zju.edu.cn/jwglxt" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":8080\"\nchalaoshi_base_url: \"http://localhost:9999\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.ChalaoshiBaseURL != "http://localhost:9999" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// 没写的字段保持缺省
	if cfg.DataDir != "data" {
		t.Errorf("data_dir = %q, want default", cfg.DataDir)
	}
}

func TestLoadConfigBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [broken"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
