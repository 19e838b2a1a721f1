// Package transfer moves uploaded rows into the canonical store.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/cleaner"
	"github.com/David-Botos/enrollment-ingress/pkg/decoder"
	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// MsgNoRecords is reported when an upload holds no valid rows
const MsgNoRecords = "No valid records found in CSV"

// RowSource yields raw rows until io.EOF. The CSV decoder and the warehouse
// reader both satisfy it.
type RowSource interface {
	Next() (model.RawRow, error)
}

// skipReporter is implemented by sources that drop lines on their own
type skipReporter interface {
	Skipped() []decoder.SkippedLine
}

// Pipeline runs decode, normalize and reconcile for one upload
type Pipeline struct {
	normalizer *cleaner.Normalizer
	reconciler *Reconciler
	logger     *zap.Logger
	metrics    *Metrics
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(
	normalizer *cleaner.Normalizer,
	reconciler *Reconciler,
	logger *zap.Logger,
	metrics *Metrics,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		normalizer: normalizer,
		reconciler: reconciler,
		logger:     logger,
		metrics:    metrics,
	}
}

// Ingest decodes a CSV upload and reconciles it into the dataset's table
func (p *Pipeline) Ingest(ctx context.Context, ds model.Dataset, source string, r io.Reader) (*IngestResult, error) {
	md := ds.Metadata()
	if md == nil {
		return nil, NewError(ErrorCategoryInput, fmt.Sprintf("unknown dataset %q", ds), nil)
	}

	job := NewIngestJob(ds, source)
	dec, err := decoder.NewReader(r, decoder.Options{
		Required:    md.RequiredHeaders(),
		OnMalformed: job.Policy.OnMalformed,
	})
	if err != nil {
		p.metrics.RecordBatch(ds, OutcomeRejected, 0)
		return nil, p.inputError(err)
	}

	return p.Run(ctx, job, dec)
}

// Run normalizes every row of src and reconciles the valid records as one
// batch. Nothing is written unless the whole batch commits.
func (p *Pipeline) Run(ctx context.Context, job IngestJob, src RowSource) (*IngestResult, error) {
	result := NewIngestResult(job)
	logger := p.logger.With(
		zap.String("batchId", job.ID),
		zap.String("dataset", string(job.Dataset)),
		zap.String("source", job.Source))

	logger.Info("Starting ingestion")

	var (
		records []model.Record
		ops     []model.CleaningOperation
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, NewError(ErrorCategoryReconciliation, "ingestion canceled", err)
		}

		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.metrics.RecordBatch(job.Dataset, OutcomeRejected, 0)
			var rowErr *decoder.MalformedRowError
			if errors.As(err, &rowErr) {
				return nil, NewError(ErrorCategoryValidation, rowErr.Error(), err)
			}
			return nil, NewError(ErrorCategoryInput, "failed to read upload", err)
		}

		rec, rowOps, err := p.normalizer.Normalize(job.Dataset, row)
		if err != nil {
			var vErr *cleaner.ValidationError
			if !errors.As(err, &vErr) {
				return nil, NewError(ErrorCategoryReconciliation, "failed to normalize row", err)
			}
			if !job.Policy.SkipInvalid {
				p.metrics.RecordBatch(job.Dataset, OutcomeRejected, 0)
				logger.Warn("Rejected upload on invalid row", zap.Int("line", vErr.Line), zap.Error(err))
				return nil, NewError(ErrorCategoryValidation,
					fmt.Sprintf("invalid row at line %d", vErr.Line), err).
					WithDetails(fmt.Sprintf("line %d: %s %s", vErr.Line, vErr.Column, vErr.Reason))
			}
			result.AddSkipped(vErr.Line, fmt.Sprintf("%s %s", vErr.Column, vErr.Reason))
			continue
		}

		records = append(records, rec)
		ops = append(ops, rowOps...)
	}

	if sr, ok := src.(skipReporter); ok {
		for _, s := range sr.Skipped() {
			result.AddSkipped(s.Line, s.Reason)
		}
	}
	p.metrics.RecordSkipped(job.Dataset, len(result.Skipped))

	if len(records) == 0 {
		p.metrics.RecordBatch(job.Dataset, OutcomeRejected, 0)
		return nil, NewError(ErrorCategoryInput, MsgNoRecords, nil).
			WithDetails(result.SkippedDetails()...)
	}

	rec, err := p.reconciler.Apply(ctx, job, records, ops)
	if err != nil {
		return nil, err
	}

	result.RecordCount = rec.Inserted + rec.Updated
	result.Inserted = rec.Inserted
	result.Updated = rec.Updated
	result.CleaningOperations = len(ops)
	result.Complete()

	logger.Info("Completed ingestion",
		zap.Int("recordCount", result.RecordCount),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (p *Pipeline) inputError(err error) *Error {
	var schemaErr *decoder.SchemaError
	if errors.As(err, &schemaErr) {
		e := NewError(ErrorCategoryInput, "Invalid CSV format", err)
		if len(schemaErr.Missing) > 0 {
			e = e.WithDetails("missing columns: " + strings.Join(schemaErr.Missing, ", "))
		}
		return e
	}
	var emptyErr *decoder.EmptyInputError
	if errors.As(err, &emptyErr) {
		return NewError(ErrorCategoryInput, emptyErr.Error(), err)
	}
	return NewError(ErrorCategoryInput, "failed to read upload", err)
}
