package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/David-Botos/enrollment-ingress/pkg/converter"
	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/source"
	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

func newSyncWarehouseCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "sync-warehouse <dataset> <schema.table>",
		Short: "Reconcile a Snowflake table into a dataset.",
		Long: `Reads a Snowflake table whose column names match the dataset's CSV
headers and reconciles every row as one atomic batch. Requires the
SNOWFLAKE_* settings.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := model.ParseDataset(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snow, err := a.factory.CreateSnowflakeConnector(ctx)
			if err != nil {
				return err
			}
			defer snow.Close()
			if err := snow.Validate(ctx); err != nil {
				return fmt.Errorf("snowflake validation failed: %w", err)
			}

			src, err := source.NewWarehouseSource(snow, converter.NewTypeConverter(a.logger.Named("converter")),
				ds, args[1], batchSize, a.logger.Named("warehouse"))
			if err != nil {
				return err
			}
			if err := src.Load(ctx); err != nil {
				return err
			}

			// Any invalid warehouse row aborts the sync.
			job := transfer.NewIngestJob(ds, args[1])
			job = job.WithPolicy(transfer.Policy{OnMalformed: job.Policy.OnMalformed, SkipInvalid: false})

			result, err := a.pipeline.Run(ctx, job, src)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per warehouse page (defaults to SNOWFLAKE_BATCH_SIZE)")
	return cmd
}
