// shsh-voice maps spoken phrases to shell commands and runs them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ashureev/shsh-voice/internal/config"
	"github.com/ashureev/shsh-voice/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the global flags. Empty values leave the environment
// configuration untouched.
type rootOptions struct {
	envFile   string
	patterns  string
	storeKind string
	workDir   string
	runner    string
	logLevel  string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "shsh-voice",
		Short: "Voice-driven shell command runner",
		Long: `shsh-voice turns spoken phrases into shell commands.

Phrases are matched against an editable pattern table ("list files",
"move to 3", "create folder reports", ...) and executed against a session
that remembers the last listing and the last deleted file.

Run without arguments to start the listening loop on standard input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.closeLog != nil {
				_ = opts.closeLog()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListen(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "load environment from this file instead of .env")
	flags.StringVar(&opts.patterns, "patterns", "", "pattern table document (overrides PATTERNS_PATH)")
	flags.StringVar(&opts.storeKind, "store", "", "pattern store: file or sqlite (overrides PATTERN_STORE)")
	flags.StringVar(&opts.workDir, "workdir", "", "initial working directory (overrides WORK_DIR)")
	flags.StringVar(&opts.runner, "runner", "", "host runner: shell or docker (overrides HOST_RUNNER)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(opts),
		newListenCmd(opts),
		newRunCmd(opts),
		newExecCmd(opts),
		newPatternsCmd(opts),
	)
	return root
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", o.envFile, err)
		}
	} else if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.patterns != "" {
		cfg.PatternsPath = o.patterns
	}
	if o.storeKind != "" {
		cfg.PatternStore = strings.ToLower(o.storeKind)
	}
	if o.workDir != "" {
		cfg.WorkDir = o.workDir
	}
	if o.runner != "" {
		cfg.HostRunner = strings.ToLower(o.runner)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	o.cfg = cfg
	o.logger = logger
	o.closeLog = closeLog
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
