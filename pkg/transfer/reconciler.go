package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/store"
)

// ReconcilerState tracks where a batch is in its transaction
type ReconcilerState string

const (
	StateIdle            ReconcilerState = "idle"
	StateTransactionOpen ReconcilerState = "transaction_open"
	StateCommitted       ReconcilerState = "committed"
	StateRolledBack      ReconcilerState = "rolled_back"
)

// ReconcileResult counts the rows written by a committed batch
type ReconcileResult struct {
	Inserted int
	Updated  int
}

// Reconciler applies a batch of records to the canonical store inside a
// single transaction. Every record is either inserted or updated in place by
// natural key; any failure rolls the whole batch back.
type Reconciler struct {
	store   *store.Store
	logger  *zap.Logger
	metrics *Metrics
}

// NewReconciler creates a new reconciler
func NewReconciler(st *store.Store, logger *zap.Logger, metrics *Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: st, logger: logger, metrics: metrics}
}

// Apply reconciles records and writes their cleaning operations to the audit
// table. Records must all belong to job.Dataset.
func (r *Reconciler) Apply(
	ctx context.Context,
	job IngestJob,
	records []model.Record,
	ops []model.CleaningOperation,
) (result *ReconcileResult, err error) {
	start := time.Now()
	state := StateIdle
	logger := r.logger.With(
		zap.String("batchId", job.ID),
		zap.String("dataset", string(job.Dataset)))

	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.metrics.RecordBatch(job.Dataset, OutcomeRolledBack, time.Since(start))
		return nil, r.failure(err, "failed to open transaction")
	}
	state = StateTransactionOpen

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("cause", err))
		}
		state = StateRolledBack
		r.metrics.RecordBatch(job.Dataset, OutcomeRolledBack, time.Since(start))
		logger.Warn("Rolled back batch",
			zap.String("state", string(state)),
			zap.String("category", CategorizeError(err).String()),
			zap.Error(err))
	}()

	result = &ReconcileResult{}
	for _, rec := range records {
		if rec.Dataset() != job.Dataset {
			return nil, NewError(ErrorCategoryReconciliation,
				fmt.Sprintf("record %s belongs to %s", rec.KeyString(), rec.Dataset()), nil)
		}

		exists, err := store.Exists(ctx, tx, rec)
		if err != nil {
			return nil, r.failure(err, "failed to reconcile batch")
		}

		if exists {
			if err := store.Update(ctx, tx, rec); err != nil {
				return nil, r.failure(err, "failed to reconcile batch")
			}
			result.Updated++
		} else {
			if err := store.Insert(ctx, tx, rec); err != nil {
				return nil, r.failure(err, "failed to reconcile batch")
			}
			result.Inserted++
		}
	}

	for i := range ops {
		ops[i].BatchID = job.ID
		ops[i].Dataset = job.Dataset
		if ops[i].CleanedAt.IsZero() {
			ops[i].CleanedAt = start.UTC()
		}
	}
	if err := store.RecordCleaningOperations(ctx, tx, ops); err != nil {
		return nil, r.failure(err, "failed to record cleaning operations")
	}

	if err := tx.Commit(); err != nil {
		return nil, r.failure(err, "failed to commit batch")
	}
	state = StateCommitted

	r.metrics.RecordBatch(job.Dataset, OutcomeCommitted, time.Since(start))
	r.metrics.RecordReconciled(job.Dataset, result.Inserted, result.Updated)
	logger.Info("Committed batch",
		zap.String("state", string(state)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("cleaningOperations", len(ops)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// failure classifies a storage error. A lost race on a new key is a conflict;
// everything else is a reconciliation failure.
func (r *Reconciler) failure(err error, message string) *Error {
	if IsUniqueViolation(err) {
		return NewError(ErrorCategoryConflict, "a concurrent upload created the same record", err)
	}
	if IsCanceled(err) {
		return NewError(ErrorCategoryReconciliation, "ingestion canceled", err)
	}
	return NewError(ErrorCategoryReconciliation, message, err)
}
