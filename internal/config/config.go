// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Pattern store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Host runner kinds.
const (
	RunnerShell  = "shell"
	RunnerDocker = "docker"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	PatternsPath  string
	PatternStore  string // "file" (JSON or YAML by extension) or "sqlite"
	DBPath        string
	WatchPatterns bool

	HostRunner     string // "shell" or "docker"
	CommandTimeout time.Duration
	OutputLimit    int
	WorkDir        string
	Sandbox        SandboxConfig

	Speech  SpeechConfig
	Journal JournalConfig

	LogLevel string
	LogFile  string
}

// SandboxConfig controls the Docker host runner.
type SandboxConfig struct {
	Image            string
	Root             string
	IdleTTL          time.Duration
	ContainerRuntime string // Docker runtime: "" = default (runc), "runsc" = gVisor
}

// SpeechConfig points at an optional speech-to-text service.
type SpeechConfig struct {
	Addr    string
	Method  string
	Timeout time.Duration
}

// JournalConfig controls the NDJSON command journal.
type JournalConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("JOURNAL_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		PatternsPath:  getEnv("PATTERNS_PATH", "./commands.json"),
		PatternStore:  strings.ToLower(getEnv("PATTERN_STORE", StoreFile)),
		DBPath:        getEnv("DB_PATH", "./data/patterns.db"),
		WatchPatterns: getEnvBool("WATCH_PATTERNS", true),

		HostRunner:     strings.ToLower(getEnv("HOST_RUNNER", RunnerShell)),
		CommandTimeout: getEnvDuration("COMMAND_TIMEOUT", 2*time.Minute),
		OutputLimit:    getEnvInt("OUTPUT_LIMIT", 64*1024),
		WorkDir:        getEnv("WORK_DIR", ""),
		Sandbox: SandboxConfig{
			Image:            getEnv("SANDBOX_IMAGE", "busybox:latest"),
			Root:             getEnv("SANDBOX_ROOT", ""),
			IdleTTL:          getEnvDuration("SANDBOX_IDLE_TTL", 30*time.Minute),
			ContainerRuntime: getEnv("CONTAINER_RUNTIME", ""),
		},

		Speech: SpeechConfig{
			Addr:    getEnv("STT_ADDR", ""),
			Method:  getEnv("STT_METHOD", "/speech.v1.Transcriber/Listen"),
			Timeout: getEnvDuration("STT_TIMEOUT", 30*time.Second),
		},
		Journal: JournalConfig{
			Enabled:   getEnvBool("JOURNAL_ENABLED", false),
			Path:      getEnv("JOURNAL_PATH", "./data/logs/voice.ndjson"),
			QueueSize: queueSize,
		},

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.PatternStore {
	case StoreFile:
		if c.PatternsPath == "" {
			return fmt.Errorf("PATTERNS_PATH cannot be empty")
		}
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("PATTERN_STORE must be %q or %q, got %q", StoreFile, StoreSQLite, c.PatternStore)
	}
	switch c.HostRunner {
	case RunnerShell:
	case RunnerDocker:
		if c.Sandbox.Image == "" {
			return fmt.Errorf("SANDBOX_IMAGE cannot be empty")
		}
	default:
		return fmt.Errorf("HOST_RUNNER must be %q or %q, got %q", RunnerShell, RunnerDocker, c.HostRunner)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("COMMAND_TIMEOUT must be > 0")
	}
	if c.OutputLimit <= 0 {
		return fmt.Errorf("OUTPUT_LIMIT must be > 0")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH cannot be empty")
	}
	if c.Journal.QueueSize <= 0 {
		return fmt.Errorf("JOURNAL_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
