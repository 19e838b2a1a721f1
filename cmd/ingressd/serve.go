package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/David-Botos/enrollment-ingress/pkg/aggregate"
	"github.com/David-Botos/enrollment-ingress/pkg/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API.",
		Long: `Serves uploads, clears and dashboard aggregations over HTTP until
interrupted. In-flight requests are drained on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.LogFormat == "json" {
				gin.SetMode(gin.ReleaseMode)
			}

			svc := aggregate.NewService(a.store, a.cfg.ScanPageSize, a.logger.Named("aggregate"), a.metrics)
			srv := api.NewServer(a.cfg.HTTPAddr, a.cfg.ShutdownTimeout, api.RouterConfig{
				IngestHandler:    api.NewIngestHandler(a.pipeline, a.store, a.cfg.MaxUploadBytes, a.logger),
				AggregateHandler: api.NewAggregateHandler(svc, a.logger),
				Logger:           a.logger.Named("http"),
				CORSOrigins:      a.cfg.CORSOrigins,
				Metrics:          api.NewHTTPMetrics(a.registry),
				Gatherer:         a.registry,
			})
			return srv.Run(ctx)
		},
	}
}
