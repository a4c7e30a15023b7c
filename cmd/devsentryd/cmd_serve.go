package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kraklabs/devsentry/internal/api"
	"github.com/kraklabs/devsentry/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control surface and auto-scanner supervisor",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		scanCtx, stopScanning := context.WithCancel(context.Background())
		defer stopScanning()
		go eng.supervisor.Run(scanCtx)

		srv := api.New(api.Config{
			Store:    eng.store,
			Repos:    eng.repos,
			Scanner:  eng.supervisor,
			Indexer:  eng.indexer,
			Searcher: eng.searcher,
			Gateway:  eng.gateway,
			Tasks:    eng.tasksGen,
			Version:  cfg.Version,
		})

		errCh := make(chan error, 1)
		go func() {
			logging.Boot("devsentryd serving on %s", cfg.Server.Addr)
			if err := srv.Start(cfg.Server.Addr); err != nil {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logging.Boot("received %s, shutting down", sig)
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		stopScanning()
		return srv.Shutdown(15 * time.Second)
	},
}
