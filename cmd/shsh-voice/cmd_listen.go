package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/shsh-voice/internal/speech"
	"github.com/spf13/cobra"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Run the continuous listening loop",
		Long: `Reads transcripts one at a time and executes them until "stop" is heard.

Transcripts come from the speech-to-text service at STT_ADDR when it is set,
otherwise one per line from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListen(cmd, opts)
		},
	}
}

func runListen(cmd *cobra.Command, opts *rootOptions) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var listener speech.Listener
	if addr := opts.cfg.Speech.Addr; addr != "" {
		grpcCfg := speech.DefaultGrpcConfig(addr)
		grpcCfg.Method = opts.cfg.Speech.Method
		grpcCfg.RequestTimeout = opts.cfg.Speech.Timeout
		grpcCfg.SessionID = a.session.ID()
		gl, err := speech.NewGrpcListener(grpcCfg, opts.logger)
		if err != nil {
			return err
		}
		defer gl.Close()
		listener = gl
	} else {
		listener = speech.NewLineListener(cmd.InOrStdin())
	}

	return a.session.Listen(ctx, listener, cmd.OutOrStdout())
}
