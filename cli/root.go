// Package cli implements the link-shortener command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-link-shortener/config"
	"go-link-shortener/server"
)

type options struct {
	configPath    string
	storageDriver string
	storagePath   string
}

// NewRootCommand builds the command tree. Every command loads the configuration
// first, then applies flag overrides.
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "link-shortener",
		Short:         "A local URL shortener with click analytics",
		Long:          "Shortens URLs into expiring shortcodes stored in a local key-value file, resolves them and records every click.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to a yaml configuration file")
	root.PersistentFlags().StringVar(&opts.storageDriver, "storage-driver", "", "Key-value backend: sqlite or memory")
	root.PersistentFlags().StringVar(&opts.storagePath, "storage-path", "", "Path of the sqlite file")

	root.AddCommand(
		newServeCommand(logger, opts),
		newShortenCommand(logger, opts),
		newResolveCommand(logger, opts),
		newListCommand(logger, opts),
	)
	return root
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.storageDriver != "" {
		cfg.Storage.Driver = o.storageDriver
	}
	if o.storagePath != "" {
		cfg.Storage.Path = o.storagePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withCore runs fn against a core built from the configuration and closes it afterwards.
func (o *options) withCore(ctx context.Context, logger *zap.Logger, fn func(*server.Core) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	core, err := server.NewCore(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	return fn(core)
}
