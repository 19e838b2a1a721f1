package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dataset> <file.csv>",
		Short: "Reconcile a CSV file into a dataset.",
		Long: `Reconciles a CSV file into one dataset as a single atomic batch.

Datasets: student_profile, enrollment, applicant_enrollee.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := model.ParseDataset(args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.pipeline.Ingest(ctx, ds, filepath.Base(args[1]), f)
			if err != nil {
				return describe(err)
			}

			a.logger.Info("Ingestion committed",
				zap.String("batchId", result.BatchID),
				zap.Int("inserted", result.Inserted),
				zap.Int("updated", result.Updated),
				zap.Int("skipped", len(result.Skipped)))
			return printJSON(cmd, result)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <dataset>",
		Short: "Delete every row of a dataset.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := model.ParseDataset(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.store.Clear(cmd.Context(), ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s: %d rows deleted\n", ds, deleted)
			return nil
		},
	}
}

// describe renders a pipeline error with its category and details
func describe(err error) error {
	var tErr *transfer.Error
	if !errors.As(err, &tErr) || len(tErr.Details) == 0 {
		return err
	}
	return fmt.Errorf("%w\n  %s", err, strings.Join(tErr.Details, "\n  "))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
