package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnv = []string{
	"PORT", "FRONTEND_URL", "PATTERNS_PATH", "PATTERN_STORE", "DB_PATH", "WATCH_PATTERNS",
	"HOST_RUNNER", "COMMAND_TIMEOUT", "OUTPUT_LIMIT", "WORK_DIR",
	"SANDBOX_IMAGE", "SANDBOX_ROOT", "SANDBOX_IDLE_TTL", "CONTAINER_RUNTIME",
	"STT_ADDR", "STT_METHOD", "STT_TIMEOUT",
	"JOURNAL_ENABLED", "JOURNAL_PATH", "JOURNAL_QUEUE_SIZE",
	"LOG_LEVEL", "LOG_FILE",
}

// clearEnv makes Load see only the variables a test sets.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		// Setenv registers the restore; Unsetenv then hides the key.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.PatternsPath != "./commands.json" || cfg.PatternStore != StoreFile {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.HostRunner != RunnerShell || cfg.CommandTimeout != 2*time.Minute || cfg.OutputLimit != 64*1024 {
		t.Errorf("unexpected runner defaults: %+v", cfg)
	}
	if !cfg.WatchPatterns || cfg.Journal.Enabled || cfg.Journal.QueueSize != 1000 {
		t.Errorf("unexpected toggles: %+v", cfg)
	}
	if cfg.Sandbox.Image != "busybox:latest" || cfg.Sandbox.IdleTTL != 30*time.Minute {
		t.Errorf("unexpected sandbox defaults: %+v", cfg.Sandbox)
	}
	if cfg.Speech.Method != "/speech.v1.Transcriber/Listen" || cfg.Speech.Timeout != 30*time.Second {
		t.Errorf("unexpected speech defaults: %+v", cfg.Speech)
	}
	if !cfg.IsDevelopment() {
		t.Error("empty FRONTEND_URL should mean development mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PATTERN_STORE", "SQLite")
	t.Setenv("DB_PATH", "/var/lib/shsh/patterns.db")
	t.Setenv("HOST_RUNNER", "docker")
	t.Setenv("COMMAND_TIMEOUT", "15s")
	t.Setenv("WATCH_PATTERNS", "off")
	t.Setenv("JOURNAL_ENABLED", "yes")
	t.Setenv("JOURNAL_QUEUE_SIZE", "-4")
	t.Setenv("OUTPUT_LIMIT", "not-a-number")
	t.Setenv("FRONTEND_URL", "https://voice.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PatternStore != StoreSQLite || cfg.DBPath != "/var/lib/shsh/patterns.db" {
		t.Errorf("store = %q at %q", cfg.PatternStore, cfg.DBPath)
	}
	if cfg.HostRunner != RunnerDocker || cfg.CommandTimeout != 15*time.Second {
		t.Errorf("runner = %q, timeout = %v", cfg.HostRunner, cfg.CommandTimeout)
	}
	if cfg.WatchPatterns || !cfg.Journal.Enabled {
		t.Errorf("watch = %v, journal = %v", cfg.WatchPatterns, cfg.Journal.Enabled)
	}
	if cfg.Journal.QueueSize != 1000 {
		t.Errorf("non-positive queue size should fall back, got %d", cfg.Journal.QueueSize)
	}
	if cfg.OutputLimit != 64*1024 {
		t.Errorf("malformed OUTPUT_LIMIT should fall back, got %d", cfg.OutputLimit)
	}
	if cfg.IsDevelopment() {
		t.Error("public FRONTEND_URL should not be development mode")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           "8080",
			PatternsPath:   "commands.json",
			PatternStore:   StoreFile,
			DBPath:         "patterns.db",
			HostRunner:     RunnerShell,
			CommandTimeout: time.Minute,
			OutputLimit:    1024,
			Sandbox:        SandboxConfig{Image: "busybox:latest"},
			Journal:        JournalConfig{Path: "voice.ndjson", QueueSize: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"unknown store", func(c *Config) { c.PatternStore = "redis" }, "PATTERN_STORE"},
		{"empty patterns path", func(c *Config) { c.PatternsPath = "" }, "PATTERNS_PATH"},
		{"empty db path", func(c *Config) { c.PatternStore = StoreSQLite; c.DBPath = "" }, "DB_PATH"},
		{"unknown runner", func(c *Config) { c.HostRunner = "ssh" }, "HOST_RUNNER"},
		{"docker without image", func(c *Config) { c.HostRunner = RunnerDocker; c.Sandbox.Image = "" }, "SANDBOX_IMAGE"},
		{"zero timeout", func(c *Config) { c.CommandTimeout = 0 }, "COMMAND_TIMEOUT"},
		{"zero output limit", func(c *Config) { c.OutputLimit = 0 }, "OUTPUT_LIMIT"},
		{"journal without path", func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }, "JOURNAL_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
