// =============================================================================
// Refactura Builder - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the review API server.
// The server hosts interactive sessions: upload invoices and scans, review
// and edit the extracted records, then download the spreadsheet and package.
//
// COMMAND USAGE:
//   refactura serve
//
// ENVIRONMENT:
//   PORT              - Listen port (default 8080)
//   SERVER_TIMEOUT    - Read/write timeout (default 60s)
//   MAX_UPLOAD_BYTES  - Cap on one multipart upload (default 64 MiB)
//
//   A .env file in the working directory is loaded if present.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review API server",
	Long: `The serve command starts the HTTP API for interactive sessions. A client
creates a session, uploads CFDI XML files and receipt scans, reviews the
extracted records, edits categories and currencies, and downloads the
spreadsheet and the submission package.

Sessions live only in memory; restarting the server discards them.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// Missing .env is the normal case outside development.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	srvCfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry := server.NewRegistry(cfg)
	handler := server.NewHandler(registry, srvCfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", srvCfg.Port),
		Handler:      server.New(handler),
		ReadTimeout:  srvCfg.Timeout,
		WriteTimeout: srvCfg.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("review API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
