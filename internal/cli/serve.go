package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meridianlabs/salescope/pkg/config"
	"github.com/meridianlabs/salescope/pkg/logger"
	"github.com/meridianlabs/salescope/pkg/server"
)

func newServeCmd(verbose *bool) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(*verbose)
			cfg := config.Load()
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			comps, err := buildComponents(cmd.Context(), log, cfg)
			if err != nil {
				return err
			}

			server.SetBuildInfo(version, commit, date)
			srv := server.New(log, comps.workflow, comps.history)

			httpServer := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: srv.Router(),
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

			serveErr := make(chan error, 1)
			go func() {
				log.Info("server: listening", "addr", cfg.ListenAddr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			select {
			case err := <-serveErr:
				return err
			case sig := <-shutdown:
				log.Info("server: shutting down", "signal", sig.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				log.Error("server: graceful shutdown failed", "error", err)
				return err
			}
			log.Info("server: stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}
