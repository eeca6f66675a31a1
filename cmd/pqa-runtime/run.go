package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	pqaruntime "github.com/project-qa/pqa-runtime"
	"github.com/project-qa/pqa-runtime/internal/config"
	"github.com/project-qa/pqa-runtime/internal/logger"
	"github.com/project-qa/pqa-runtime/internal/metrics"
	"github.com/project-qa/pqa-runtime/internal/plan"
	"github.com/project-qa/pqa-runtime/internal/server"
	"github.com/project-qa/pqa-runtime/internal/supervisor"
)

const shutdownGrace = 15 * time.Second

func resolvePlan(flags RunFlags) (plan.Config, plan.Plan) {
	cfg := config.Resolve(config.Options{
		ProfilePath: flags.ProfilePath,
		Mode:        flags.Mode,
		MongoBin:    flags.MongoBin,
		PythonBin:   flags.PythonBin,
		WebDev:      flags.WebDev,
	})
	return cfg, plan.Build(cfg)
}

func printPlan(w io.Writer, flags RunFlags) error {
	_, p := resolvePlan(flags)
	return pqaruntime.DryRun(w, p)
}

func runLauncher(flags RunFlags) error {
	if flags.DryRun {
		return printPlan(os.Stdout, flags)
	}

	log := logger.New(os.Stderr, flags.LogLevel, stderrIsTerminal())
	cfg, launch := resolvePlan(flags)

	if err := config.ValidateWorkspace(cfg.WorkspaceRoot, cfg.Mode); err != nil {
		return err
	}
	if !flags.WebDev {
		// npm run start:standalone needs a prior next build.
		standalone := filepath.Join(cfg.WorkspaceRoot, "web", ".next", "standalone")
		if fi, err := os.Stat(standalone); err != nil || !fi.IsDir() {
			return fmt.Errorf("standalone web build missing at %s; run the web build first or pass --web-dev", standalone)
		}
	}

	ring := pqaruntime.NewDiagRing(cfg.DataDir)
	ring.Push("info", "launcher", fmt.Sprintf("starting mode %s session %s", cfg.Mode, cfg.SessionID))

	opts := supervisor.Options{
		AutoRestart: !flags.NoAutoRestart,
		Log:         log,
		Diag:        ring,
	}
	switch {
	case flags.LogDir != "":
		opts.SidecarLog.Dir = flags.LogDir
	case cfg.DataDir != "":
		opts.SidecarLog.Dir = filepath.Join(cfg.DataDir, "logs")
	}
	if flags.HistoryDSN != "" {
		sink, err := pqaruntime.NewHistorySink(flags.HistoryDSN)
		if err != nil {
			return fmt.Errorf("history sink: %w", err)
		}
		opts.History = sink
	}

	if flags.MetricsListen != "" {
		if err := metrics.RegisterDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		go func() {
			if err := metrics.Serve(flags.MetricsListen); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", "error", err)
			}
		}()
	}

	sup := supervisor.New(opts)
	if err := sup.Start(launch); err != nil {
		return err
	}
	log.Info("launch plan started",
		"mode", cfg.Mode.String(),
		"sidecars", len(launch.Specs),
		"session", cfg.SessionID)

	var ctrl *http.Server
	if flags.Listen != "" {
		var err error
		ctrl, err = server.NewServer(flags.Listen, "", sup, ring, launch)
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = sup.Shutdown(shutdownCtx)
			return fmt.Errorf("control API listen on %s: %w", flags.Listen, err)
		}
		log.Info("control API listening", "addr", flags.Listen)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("signal received, shutting down", "signal", sig.String())
	ring.Push("info", "launcher", "shutdown requested: "+sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if ctrl != nil {
		_ = ctrl.Shutdown(ctx)
	}
	if err := sup.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete, sidecars were force-killed", "error", err)
	}
	return nil
}

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
