package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/client-dashboard/internal/config"
	"github.com/jwalitptl/client-dashboard/internal/tui"
)

var logFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the dashboard in the terminal",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file (default: discard)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	out, closeLog, err := openLog(logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, a.newController())
}
