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

	"github.com/robfig/cron/v3"

	"slotplan/internal/config"
	applog "slotplan/internal/log"
	"slotplan/internal/notify"
	"slotplan/internal/store"
	"slotplan/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath  string
	listen      string
	dataDir     string
	logLevel    string
	onceCapture bool
}

func main() {
	applog.Info("slotplan starting", "version", notify.Version)

	flags := parseFlags()
	applog.SetLevel(applog.ParseLevel(flags.logLevel))

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if errors.Is(err, config.ErrCreatedDefault) {
			applog.Error("no config file found, wrote a default one", err, "config_path", flags.configPath)
			applog.Info("edit the config (admin_password, participants_emails, ...) and start again")
			os.Exit(1)
		}
		applog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataDir != "" {
		conf.DataDir = flags.dataDir
	}

	if err := conf.Validate(); err != nil {
		applog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	applog.Info("effective config",
		"listen", conf.Listen,
		"event", conf.Event,
		"data_dir", conf.DataDir,
		"timezone", conf.Timezone,
		"max_level1", conf.MaxLevel1,
		"participants", len(conf.ParticipantsEmails),
		"email_host", conf.Email.Host,
		"preview_refresh", conf.PreviewRefresh,
	)

	mailer := notify.NewMailer(conf.Email, conf.Event)
	if !mailer.Enabled() {
		applog.Info("email notifications disabled (no SMTP host configured)")
	}

	st, err := store.Open(conf.DataDir, store.Options{
		MaxLevel1:  conf.MaxLevel1,
		MaxBackups: conf.MaxBackups,
		Notifier:   mailer,
	})
	if err != nil {
		applog.Error("failed to open store", err, "data_dir", conf.DataDir)
		os.Exit(1)
	}

	srv, err := web.NewServer(conf, st)
	if err != nil {
		applog.Error("failed to build web server", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		applog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		serveErr <- httpServer.ListenAndServe()
	}()

	if flags.onceCapture {
		// Give the listener a moment, capture, then exit.
		time.Sleep(300 * time.Millisecond)
		srv.CapturePreview(ctx)
		shutdown(httpServer)
		return
	}

	// Periodic preview capture.
	c := cron.New()
	if conf.PreviewRefresh != "" {
		if _, err := c.AddFunc(conf.PreviewRefresh, func() {
			srv.CapturePreview(context.Background())
		}); err != nil {
			applog.Error("invalid preview_refresh cron expression", err, "expr", conf.PreviewRefresh)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	select {
	case <-ctx.Done():
		applog.Info("signal received, shutting down")
		shutdown(httpServer)
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}

	applog.Info("slotplan exiting")
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		applog.Error("HTTP shutdown failed", err)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./slotplan.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataDir, "data", "", "Data directory (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, error")
	flag.BoolVar(&cfg.onceCapture, "once-capture", false, "Capture one slot plan preview PNG and exit")

	flag.Parse()

	return cfg
}
