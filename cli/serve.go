package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-link-shortener/server"
)

func newServeCommand(logger *zap.Logger, opts *options) *cobra.Command {
	var (
		port             int
		disableRateLimit bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if disableRateLimit {
				cfg.Server.DisableRateLimit = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting link shortener", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Env))
			if err := server.Run(ctx, logger, cfg); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("Link shortener stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (overrides configuration)")
	cmd.Flags().BoolVar(&disableRateLimit, "disable-rate-limit", false, "Disable rate limiting for performance testing")
	return cmd
}
