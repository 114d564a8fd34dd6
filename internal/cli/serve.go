package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/config"
	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/host"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen      string
	Database    string
	AutoCapture bool
	Practice    bool

	// Ready, if set, receives the bound address once the server accepts
	// connections (for testing).
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the oracle over HTTP for an instrumented application",
		Long: `Serve one oracle at a time over HTTP. The instrumented application (or
a test driver) enables a session, posts transitions, and the operator
posts verdicts:

  POST   /session      enable
  GET    /session      status
  DELETE /session      disable (archives with --db)
  POST   /transitions  record an explicit state pair
  POST   /capture      extract the application state and record (--practice)
  POST   /verdict      validate the latest transition
  GET    /export       export document
  GET    /bugs         bugs found so far
  GET    /metrics      prometheus metrics

With --practice the reference practice-screen extractor is installed and
its view is exposed at GET/PUT /practice/view. With --auto-capture every
PUT records a transition while a session is active.

The server stops on SIGINT/SIGTERM; an active session is then closed and
archived.

Examples:
  portmatch serve --listen 127.0.0.1:8080 --db ./portmatch.db
  portmatch serve --practice --auto-capture`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default "+config.DefaultListen+")")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive closed sessions in this SQLite database")
	cmd.Flags().BoolVar(&opts.AutoCapture, "auto-capture", false, "record a transition on every observed view change")
	cmd.Flags().BoolVar(&opts.Practice, "practice", false, "install the practice-screen state extractor")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.logger()

	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}
	st, err := opts.openStore(opts.databasePath(opts.Database), false)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := engine.NewMetrics(reg)

	hostOpts := []host.Option{
		host.WithLogger(logger),
		host.WithAutoCapture(opts.AutoCapture),
	}
	if st != nil {
		hostOpts = append(hostOpts, host.WithArchive(st))
	}
	routerOpts := []host.RouterOption{host.WithMetricsHandler(reg)}

	var practice *host.PracticeExtractor
	if opts.Practice {
		practice = host.NewPracticeExtractor(host.PracticeView{})
		hostOpts = append(hostOpts, host.WithExtractor(practice))
	}
	h := host.New(func() *engine.Oracle {
		return engine.NewOracle(v, engine.WithLogger(logger), engine.WithMetrics(metrics))
	}, hostOpts...)
	if practice != nil {
		routerOpts = append(routerOpts, host.WithPracticeView(h, practice))
	}

	listen := opts.Listen
	if listen == "" {
		listen = opts.Config.Listen
	}
	if listen == "" {
		listen = config.DefaultListen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           host.NewRouter(h, routerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("server starting", "addr", addr, "vocabulary", v.Version, "practice", opts.Practice)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case err := <-serveErr:
		return WrapExitError(ExitFailure, "server error", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	if h.IsActive() {
		if err := h.Disable(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "failed to close active session", err)
		}
		logger.Info("active session closed", "session", h.Status().SessionID)
	}

	logger.Info("server stopped gracefully")
	return nil
}
