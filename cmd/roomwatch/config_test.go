package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCLIConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadCLIConfig("")
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:8000" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if filepath.Base(cfg.LogFile) != "roomwatch.log" {
		t.Fatalf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadCLIConfigFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yml")
	data := "api-url: https://rooms.example.edu\nrequest-timeout: 5s\nlog-format: json\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROOMWATCH_REQUEST_TIMEOUT", "9s")

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.APIURL != "https://rooms.example.edu" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 9*time.Second {
		t.Fatalf("RequestTimeout = %v, want env override 9s", cfg.RequestTimeout)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoadCLIConfigRejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	t.Setenv("ROOMWATCH_LOG_FORMAT", "xml")
	if _, err := loadCLIConfig(""); err == nil {
		t.Fatalf("expected error for log-format xml")
	}

	t.Setenv("ROOMWATCH_LOG_FORMAT", "text")
	t.Setenv("ROOMWATCH_TIMEZONE", "Mars/Olympus")
	if _, err := loadCLIConfig(""); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
