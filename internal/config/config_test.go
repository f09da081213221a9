package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected default provider google, got %q", cfg.Provider)
	}
	if cfg.EmbeddingProvider != "" {
		t.Errorf("semantic search should be disabled by default, got %q", cfg.EmbeddingProvider)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("expected default port 8787, got %d", cfg.Server.Port)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".compliagent.yml")
	yaml := "provider: openai\nmodel: gpt-4o\nserver:\n  port: 9000\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected provider openai, got %q", cfg.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.SessionTTLMinutes != 120 {
		t.Errorf("expected session ttl 120, got %d", cfg.SessionTTLMinutes)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("COMPLIAGENT_MODEL", "gemini-3-flash-preview")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gemini-3-flash-preview" {
		t.Errorf("expected env override, got %q", cfg.Model)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "grok" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad ttl", func(c *Config) { c.SessionTTLMinutes = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".compliagent.yml")
	cfg := DefaultConfig()
	cfg.Provider = ProviderOllama
	cfg.Model = "llama3"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Provider != ProviderOllama || loaded.Model != "llama3" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
