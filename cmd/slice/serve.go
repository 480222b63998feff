package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/royteeuwen/slice/internal/models"
	"github.com/royteeuwen/slice/internal/server"
	"github.com/royteeuwen/slice/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves models as JSON under /models/{name}/{path}, usage statistics under /stats and Prometheus metrics under /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}

		tree, closer, err := openTree(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		c, err := newContainer()
		if err != nil {
			return err
		}

		monitor := monitoring.NewMonitor(monitoring.WithLogger(logger))
		srv, err := server.New(c, models.Mapper(c), tree,
			server.WithLogger(logger),
			server.WithMonitor(monitor),
		)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Stats.Interval > 0 {
			go monitor.Run(ctx, cfg.Stats.Interval, func(reports []monitoring.Report) {
				for _, r := range reports {
					logger.Info("model usage", "model", r.Model, "count", r.Count, "avg_ms", r.AverageTime)
				}
			})
		}

		httpSrv := &http.Server{
			Addr:    cfg.Listen,
			Handler: srv.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", httpSrv.Addr, "backend", cfg.Tree.Backend)
			serverErrors <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				if err := httpSrv.Close(); err != nil {
					logger.Error("closing server", "error", err)
				}
			}
			if err := c.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutting down container", "error", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on; overrides the config file")
}
