package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	redisURL   string
	sqlitePath string
	logLevel   string
	devMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "shopauth",
	Short: "shopauth runs the storefront authentication service",
	Long: `Session-based authentication for the storefront: password login with an
optional TOTP second factor, staged signups, and role-checked sessions kept in Redis.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", os.Getenv("REDIS_URL"),
		"Redis URL for the session store")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", os.Getenv("SHOPAUTH_SQLITE"),
		"SQLite user directory path; empty keeps users in memory")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false,
		"Allow an in-process miniredis session store when --redis-url is empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}
