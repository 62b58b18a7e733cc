package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/config"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/progress"
	"github.com/Ning0612/devmanager/internal/service"
	"github.com/Ning0612/devmanager/internal/state"
)

func newMoveCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		force        bool
		noProgress   bool
		watch        bool
		interval     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Stage built assets into the distribution directory",
		Long: `Copy the files a manifest lists from srcdir to dstdir, gzipping the
entries marked for compression. Files whose source has not changed since
the last run are skipped unless the manifest was edited or --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := a.cfg.Move
			flags := cmd.Flags()
			if flags.Changed("manifest") {
				mc.Manifest = manifestPath
			}
			if flags.Changed("interval") {
				mc.Interval = interval
			}
			a.cfg.Move = mc
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			history, err := state.Open(config.ExpandPath(a.cfg.DataDir))
			if err != nil {
				logger.Get().Warn("staging history unavailable", "error", err)
				history = nil
			} else {
				defer history.Close()
			}

			stage := service.NewStageService(history)
			if !noProgress {
				stage.SetProgressReporter(progress.NewBarReporter(cmd.ErrOrStderr()))
			}

			manifest := config.ExpandPath(mc.Manifest)
			opts := service.StageOptions{Force: force}

			if watch || mc.Interval > 0 {
				svc, err := service.NewWatchService(stage)
				if err != nil {
					return err
				}
				successColor.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", manifest)
				return svc.Run(cmd.Context(), manifest, service.WatchOptions{
					Stage:    opts,
					Watch:    watch,
					Debounce: mc.Debounce,
					Interval: mc.Interval,
				})
			}

			result, err := stage.Run(cmd.Context(), manifest, opts)
			if err != nil {
				return err
			}
			printStageResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&manifestPath, "manifest", "m", "movefile.json", "staging manifest")
	flags.BoolVar(&force, "force", false, "copy every file regardless of the mtime cache")
	flags.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	flags.BoolVar(&watch, "watch", false, "re-run when srcdir or the manifest changes")
	flags.DurationVar(&interval, "interval", 0, "re-run periodically, e.g. 30s")
	return cmd
}

func printStageResult(w io.Writer, r *domain.StageResult) {
	status := r.Status()
	statusColor(status).Fprintf(w, "%s", status)
	fmt.Fprintf(w, ": %d copied, %d skipped, %d failed, %s written\n",
		r.FilesCopied, r.FilesSkipped, r.FilesFailed, progress.FormatBytes(r.BytesWritten))
	for _, err := range r.Errors {
		errorColor.Fprintf(w, "  %v\n", err)
	}
}
