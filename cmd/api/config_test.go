package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := ReadConfigJson(writeConfig(t, `{"verify_token":"secret"}`))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if cfg.HttpPort != 6060 || cfg.MessagePageSize != 100 || cfg.IndexMode != indexModeCached {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StoreTimeout != 5*time.Second || cfg.SummaryTTL != 24*time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.StoreTimeout, cfg.SummaryTTL)
	}
}

func TestReadConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"bad duration":   `{"store_timeout":"soon"}`,
		"bad index mode": `{"index_mode":"lazy"}`,
		"bad json":       `{`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadConfigJson(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
