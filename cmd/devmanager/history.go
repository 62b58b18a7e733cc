package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/config"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/progress"
	"github.com/Ning0612/devmanager/internal/state"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded staging runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			filter := ""
			if manifestPath != "" {
				abs, err := filepath.Abs(config.ExpandPath(manifestPath))
				if err != nil {
					return err
				}
				filter = abs
			}

			history, err := state.Open(config.ExpandPath(a.cfg.DataDir))
			if err != nil {
				return err
			}
			defer history.Close()

			records, err := history.List(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "only show runs of this manifest")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

func printHistory(w io.Writer, records []state.StageRecord) {
	if len(records) == 0 {
		warnColor.Fprintln(w, "No staging runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headerColor.Fprintln(tw, "STARTED\tSTATUS\tCOPIED\tSKIPPED\tFAILED\tWRITTEN\tDURATION\tMANIFEST")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.StartTime.Local().Format("2006-01-02 15:04:05"),
			statusColor(r.Status).Sprint(r.Status),
			r.FilesCopied,
			r.FilesSkipped,
			r.FilesFailed,
			progress.FormatBytes(r.BytesWritten),
			r.Duration().Round(time.Millisecond),
			r.Manifest,
		)
	}
	tw.Flush()

	for _, r := range records {
		if r.Error != "" && r.Status != domain.StatusSuccess {
			errorColor.Fprintf(w, "%s: %s\n", r.StartTime.Local().Format("2006-01-02 15:04:05"), r.Error)
		}
	}
}
