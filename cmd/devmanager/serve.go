package main

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/api"
	"github.com/Ning0612/devmanager/internal/config"
	"github.com/Ning0612/devmanager/internal/daemon"
	"github.com/Ning0612/devmanager/internal/livereload"
	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host          string
		port          int
		static        bool
		redirectIndex bool
		withMetrics   bool
		withReload    bool
		pidFile       string
	)

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve a directory the way the device does, with its mock API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Serve
			flags := cmd.Flags()
			if len(args) == 1 {
				sc.Root = args[0]
			}
			if flags.Changed("host") {
				sc.Host = host
			}
			if flags.Changed("port") {
				sc.Port = port
			}
			if flags.Changed("static") {
				sc.Static = static
			}
			if flags.Changed("redirect-index") {
				sc.RedirectIndex = redirectIndex
			}
			if flags.Changed("metrics") {
				sc.Metrics = withMetrics
			}
			if flags.Changed("livereload") {
				sc.LiveReload = withReload
			}
			if flags.Changed("pidfile") {
				sc.PIDFile = pidFile
			}

			a.cfg.Serve = sc
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd, a.cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&host, "host", "H", "0.0.0.0", "address to listen on")
	flags.IntVarP(&port, "port", "P", 8080, "port to listen on")
	flags.BoolVar(&static, "static", false, "serve files only: no mock API, no directory listing")
	flags.BoolVar(&redirectIndex, "redirect-index", false, "redirect directories to their index.html instead of serving it")
	flags.BoolVar(&withMetrics, "metrics", false, "expose Prometheus metrics at /metrics")
	flags.BoolVar(&withReload, "livereload", false, "push reload messages over /livereload when files change")
	flags.StringVar(&pidFile, "pidfile", "", "PID file path (default: <data-dir>/serve.pid)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	sc := cfg.Serve

	pid := daemon.NewPIDFile(cfg.PIDFilePath())
	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Get().Warn("failed to remove PID file", "path", pid.Path(), "error", err)
		}
	}()

	opts := api.Options{
		Root:            config.ExpandPath(sc.Root),
		Static:          sc.Static,
		RedirectIndex:   sc.RedirectIndex,
		ShutdownTimeout: sc.ShutdownTimeout,
	}
	if sc.Metrics {
		opts.Metrics = metrics.New()
	}
	if sc.LiveReload {
		opts.LiveReload = livereload.NewHub()
	}

	srv, err := api.New(opts)
	if err != nil {
		return err
	}

	printBanner(cmd.OutOrStdout(), srv.Root(), sc)
	return srv.ListenAndServe(cmd.Context(), sc.Addr())
}

func printBanner(w io.Writer, root string, sc config.ServeConfig) {
	host := sc.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(sc.Port))

	mode := "device"
	if sc.Static {
		mode = "static"
	}

	headerColor.Fprintf(w, "Serving %s\n", root)
	successColor.Fprintf(w, "  %s", url)
	fmt.Fprintf(w, "  (%s mode)\n", mode)
	if sc.Metrics {
		fmt.Fprintf(w, "  metrics:    %s/metrics\n", url)
	}
	if sc.LiveReload {
		fmt.Fprintf(w, "  livereload: ws%s/livereload\n", url[len("http"):])
	}
}
