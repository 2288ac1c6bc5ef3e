package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betbot/transferdesk/internal/app"
	"github.com/betbot/transferdesk/internal/server"
	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/pkg/config"
	"github.com/betbot/transferdesk/pkg/logger"
	"github.com/betbot/transferdesk/pkg/shutdown"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath    = flag.String("config", os.Getenv("WALLETD_CONFIG"), "config file (.yaml/.json), optional")
		listenAddr    = flag.String("listen", "", "HTTP listen address (overrides config)")
		submitTimeout = flag.Duration("submit-timeout", 5*time.Minute, "max time for one submission, 0 = no limit")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(1)
	}
	if err := app.InitLogger(cfg, true); err != nil {
		logger.Errorf("init logger: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	sess, closeProvider, err := app.NewSession(ctx, cfg, session.Options{}, nil)
	if err != nil {
		logger.Errorf("init session: %v", err)
		os.Exit(1)
	}

	if err := sess.Start(ctx); err != nil {
		logger.Warnf("restore wallet session: %v", err)
	}

	srv := server.New(server.Config{SubmitTimeout: *submitTimeout}, sess)
	router, err := srv.Router()
	if err != nil {
		logger.Errorf("init router: %v", err)
		os.Exit(1)
	}
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("walletd listening on %s", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	sm := shutdown.NewManager()
	sm.OnShutdown("http", httpSrv.Shutdown)
	sm.OnShutdown("api", func(context.Context) error { return srv.Close() })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sm.Shutdown(shutdownCtx)
	closeProvider()

	logger.Info("walletd stopped")
}
