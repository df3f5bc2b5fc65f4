package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execbrief/internal/logger"
	"execbrief/internal/server"

	"github.com/spf13/cobra"
)

// newServeCmd creates the serve command for starting the HTTP server
func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server for brief generation",
		Long: `Start the execbrief server.

The server provides:
  • GET  /executive-brief      - fetch or generate the daily brief
  • POST /executive-brief-pdf  - export a brief as a static document
  • GET  /health, /api/status  - operational endpoints

Briefs are cached per calendar day; pass action=generate with an admin
key to force regeneration.

Examples:
  # Start server on the configured port (default 8080)
  execbrief serve

  # Start on a custom port
  execbrief serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	p, st, err := buildPipeline(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if st != nil {
			_ = st.Close()
		}
	}()

	srv := server.New(p, st, cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
