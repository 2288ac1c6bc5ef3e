package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/betbot/transferdesk/internal/app"
	"github.com/betbot/transferdesk/internal/metrics"
	"github.com/betbot/transferdesk/internal/provider"
	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/internal/tui"
	"github.com/betbot/transferdesk/pkg/config"
	"github.com/betbot/transferdesk/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("WALLETD_CONFIG"), "config file (.yaml/.json), optional")
		logFile    = flag.String("log-file", "logs/transfer-tui.log", "log file; the terminal is owned by the UI")
		debugAddr  = flag.String("debug-addr", "", "serve /debug/vars on this address, empty = off")
		prompt     = flag.Bool("prompt", true, "ask in the UI before granting wallet access; false = use auto_approve")
	)
	flag.Parse()

	if err := run(*configPath, *logFile, *debugAddr, *prompt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logFile, debugAddr string, prompt bool) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Log.File == "" {
		cfg.Log.File = logFile
	}
	if err := app.InitLogger(cfg, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if debugAddr != "" {
		if _, err := metrics.StartAsync(ctx, debugAddr); err != nil {
			return fmt.Errorf("debug server: %w", err)
		}
	}

	var (
		prompter *tui.Prompter
		approver provider.Approver
	)
	if prompt {
		prompter = tui.NewPrompter()
		approver = prompter.Approve
	}

	sess, closeProvider, err := app.NewSession(ctx, cfg, session.Options{}, approver)
	if err != nil {
		return err
	}
	defer closeProvider()

	go func() {
		if err := sess.Start(ctx); err != nil {
			logger.Warnf("restore wallet session: %v", err)
		}
	}()

	return tui.Run(ctx, sess, prompter)
}
