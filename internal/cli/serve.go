package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run-history HTTP API",
	Long: `Start an HTTP server exposing pipeline run history:

  GET /healthz        liveness probe
  GET /api/runs       recent runs (?target=, ?limit=)
  GET /api/runs/{id}  one run with stage logs`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) {
	c := initContext(cmd)
	defer c.Close()

	addr := serveAddr
	if addr == "" {
		addr = c.Config.ListenAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	srv := web.NewServer(addr, c.Store, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			exitError("%v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			exitError("shutdown: %v", err)
		}
	}
}
