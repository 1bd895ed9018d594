package cmd

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

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/httpapi"
	"github.com/MrEthical07/shopauth/metrics/export/prometheus"
)

var (
	addr            string
	insecureCookies bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := shopauth.DefaultConfig()
		if insecureCookies {
			logger.Warn("session cookies are not marked Secure; use only over local plain HTTP")
			cfg.Cookie.Secure = false
		}

		d, err := openDeps(ctx, logger, cfg, false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.engine.Ping(ctx); err != nil {
			return fmt.Errorf("session store unreachable: %w", err)
		}

		api := httpapi.New(d.engine,
			httpapi.WithAccessLog(),
			httpapi.WithMetricsHandler(prometheus.New(d.engine)),
		)
		server := &http.Server{
			Addr:              addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()
		logger.Info("listening", "addr", addr)

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	serveCmd.Flags().BoolVar(&insecureCookies, "insecure-cookies", false, "Issue cookies without the Secure attribute")
}
