package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/saasbench/saasbench/internal/config"
	"github.com/saasbench/saasbench/internal/metrics"
	"github.com/saasbench/saasbench/internal/migration"
	obsmetrics "github.com/saasbench/saasbench/internal/observability/metrics"
	"github.com/saasbench/saasbench/internal/server"
	"github.com/saasbench/saasbench/pkg/db"
	"github.com/saasbench/saasbench/pkg/log"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only export API over persisted metrics and runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Provide(func() (config.Config, error) {
					cfg, err := config.Load(cfgPath)
					if err != nil {
						return config.Config{}, err
					}
					if addr != "" {
						cfg.Server.Addr = addr
					}
					return cfg, nil
				}),
				log.Module,
				db.Module,
				obsmetrics.Module,
				migration.Module,
				metrics.Module,
				server.Module,
				fx.NopLogger,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address override (defaults to server.addr)")

	return cmd
}
