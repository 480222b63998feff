package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/internal/config"
	"github.com/royteeuwen/slice/internal/logging"
	"github.com/royteeuwen/slice/internal/models"
	"github.com/royteeuwen/slice/resource"
	"github.com/royteeuwen/slice/resource/memory"
	"github.com/royteeuwen/slice/resource/redistree"
)

var rootCmd = &cobra.Command{
	Use:   "slice",
	Short: "Slice builds typed content models from a resource tree",
	Long: `Slice maps nodes of a content tree onto Go models and serves them as JSON.
Models ask for nested models relative to their own place in the tree.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "slice.yaml", "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "File with SLICE_* environment overrides")
}

// loadConfig reads the env file and the config file named by the flags and
// applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnv(envFile); err != nil {
		return config.Config{}, nil, err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(level), nil
}

// openTree opens the content tree selected by cfg. The returned closer
// releases backend connections.
func openTree(cfg config.Config) (resource.Resolver, io.Closer, error) {
	switch cfg.Tree.Backend {
	case config.BackendRedis:
		tree := redistree.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redistree.WithPrefix(cfg.Redis.Prefix))
		return tree, tree, nil
	default:
		tree, err := memory.LoadFile(cfg.Tree.File)
		if err != nil {
			return nil, nil, err
		}
		return tree, nopCloser{}, nil
	}
}

// newContainer returns a built container holding the content models.
func newContainer() (slice.Container, error) {
	c := slice.New()
	if err := models.Register(c); err != nil {
		return nil, fmt.Errorf("registering models: %w", err)
	}
	if err := c.Build(); err != nil {
		return nil, fmt.Errorf("building container: %w", err)
	}
	return c, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
