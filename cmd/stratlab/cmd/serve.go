package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/api"
	"github.com/rustyeddy/stratlab/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backtesting API over HTTP",
	Long: `Start the HTTP API. The strategy catalog is synchronized on start.
JWT_SECRET must hold at least 32 characters.

Example:
  stratlab serve --addr :9090`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	authSvc, err := a.auth()
	if err != nil {
		return err
	}
	if err := a.svc.SyncCatalog(ctx); err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	log := logger.Component("api")
	return api.New(a.svc, authSvc, &log).ListenAndServe(ctx, addr)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
