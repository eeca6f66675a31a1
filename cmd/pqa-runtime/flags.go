package main

import "github.com/spf13/cobra"

// RunFlags holds the flags shared by the run and plan commands.
type RunFlags struct {
	ProfilePath string
	Mode        string
	MongoBin    string
	PythonBin   string
	WebDev      bool

	DryRun        bool
	NoAutoRestart bool
	LogDir        string
	LogLevel      string

	Listen        string
	MetricsListen string
	HistoryDSN    string
}

func addRunFlags(cmd *cobra.Command, flags *RunFlags) {
	cmd.Flags().StringVar(&flags.ProfilePath, "profile", "", "path to the runtime profile JSON")
	cmd.Flags().StringVar(&flags.Mode, "mode", "", "runtime mode: local_fullstack or remote_slim")
	cmd.Flags().StringVar(&flags.MongoBin, "mongo-bin", "", "path to mongod; empty skips the mongo sidecar")
	cmd.Flags().StringVar(&flags.PythonBin, "python-bin", "", "python interpreter for the backend (default python3)")
	cmd.Flags().BoolVar(&flags.WebDev, "web-dev", false, "run the web sidecar with npm run dev instead of the standalone build")

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "print the resolved plan and exit without spawning")
	cmd.Flags().BoolVar(&flags.NoAutoRestart, "no-auto-restart", false, "leave crashed sidecars stopped")
	cmd.Flags().StringVar(&flags.LogDir, "log-dir", "", "directory for rotated sidecar stdout/stderr logs")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "info", "launcher log level: debug, info, warn, error")

	cmd.Flags().StringVar(&flags.Listen, "listen", "", "control API address (e.g. 127.0.0.1:7600); empty disables it")
	cmd.Flags().StringVar(&flags.MetricsListen, "metrics-listen", "", "Prometheus /metrics address; empty disables it")
	cmd.Flags().StringVar(&flags.HistoryDSN, "history-dsn", "", "lifecycle event sink DSN (sqlite, postgres, clickhouse, opensearch)")
}
