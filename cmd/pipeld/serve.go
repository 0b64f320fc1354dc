package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pipeld/internal/common/fsutil"
	"pipeld/internal/config"
	"pipeld/internal/container"
	"pipeld/internal/httpapi"
	"pipeld/internal/preset"
	"pipeld/internal/service"
	"pipeld/internal/session"
)

func newServeCommand(configFlag *string) *cobra.Command {
	var addrFlag string
	var corsOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if v := os.Getenv("PIPELD_ADDR"); v != "" {
				cfg.Addr = v
			}
			if addrFlag != "" {
				cfg.Addr = addrFlag
			}
			return runServe(cfg, corsOrigins)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origins (repeatable); empty disables CORS")

	return cmd
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("PIPELD_LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func runServe(cfg config.Config, corsOrigins []string) error {
	log := newLogger()

	dataDir, err := fsutil.ExpandHome(cfg.DataDir)
	if err != nil {
		return err
	}
	runtimeDir, err := fsutil.ExpandHome(cfg.RuntimeDir)
	if err != nil {
		return err
	}
	for _, dir := range []string{dataDir, runtimeDir} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return err
		}
	}

	presets, err := preset.Open(filepath.Join(dataDir, "presets.json"), log)
	if err != nil {
		return err
	}
	defer presets.Close()

	settings, err := preset.OpenSettings(filepath.Join(dataDir, "settings.json"))
	if err != nil {
		return err
	}

	orch := container.NewCLIOrchestrator(cfg.Runner.Bin, log)
	sup := session.New(session.Config{
		CompositorBin:     cfg.Sidecar.CompositorBin,
		CompositorSocket:  filepath.Join(runtimeDir, cfg.Sidecar.CompositorSocket),
		EndpointBin:       cfg.Sidecar.EndpointBin,
		RuntimeDir:        runtimeDir,
		HealthBaseURLs:    cfg.Sidecar.HealthURLs,
		SocketWaitTimeout: time.Duration(cfg.Sidecar.SocketWaitSeconds) * time.Second,
		RestartBackoff:    time.Duration(cfg.Sidecar.RestartBackoffSecs) * time.Second,
		StopGrace:         time.Duration(cfg.Sidecar.StopGraceSeconds) * time.Second,
		IdlePollInterval:  time.Duration(cfg.Sidecar.IdlePollSeconds) * time.Second,
	}, orch, log)

	svc := service.New(cfg, presets, settings, sup, log)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	if len(corsOrigins) > 0 {
		httpapi.SetCORSOptions(true, corsOrigins,
			[]string{"GET", "POST", "PUT", "DELETE"},
			[]string{"Content-Type", "X-Log-Level"})
	}

	mux := httpapi.NewMux(svc, svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("data_dir", dataDir).Msg("pipeld listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	cancelBase()
	if err := sup.Stop(); err != nil && !session.IsNoSession(err) {
		log.Warn().Err(err).Msg("session stop during shutdown")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
