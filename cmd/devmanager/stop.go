package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/daemon"
)

func newStopCmd(a *app) *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running serve via its PID file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("pidfile") {
				a.cfg.Serve.PIDFile = pidFile
			}

			pid := daemon.NewPIDFile(a.cfg.PIDFilePath())
			n, err := pid.Stop()
			if errors.Is(err, daemon.ErrNotRunning) {
				return fmt.Errorf("serve is not running (no live process in %s)", pid.Path())
			}
			if err != nil {
				return err
			}

			successColor.Fprintf(cmd.OutOrStdout(), "Sent stop signal to serve (pid %d)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&pidFile, "pidfile", "", "PID file path (default: <data-dir>/serve.pid)")
	return cmd
}
