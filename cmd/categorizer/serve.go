package main

import (
	"fmt"

	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/bootstrap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := bootstrap.CreateLogger(cfg)
			if err != nil {
				return err
			}

			logger.Info("Starting categorizer service",
				infralogger.String("version", cfg.Service.Version),
				infralogger.String("catalog", cfg.Catalog.Path),
				infralogger.Bool("watch", cfg.Catalog.Watch),
			)

			svc, err := bootstrap.NewService(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize service: %w", err)
			}
			defer func() {
				if closeErr := svc.Close(); closeErr != nil {
					logger.Error("Failed to close service", infralogger.Error(closeErr))
				}
			}()

			return svc.Run(cmd.Context())
		},
	}
}
