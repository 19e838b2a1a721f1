package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/enrollment-ingress/pkg/cleaner"
	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/scan"
	"github.com/David-Botos/enrollment-ingress/pkg/store"
)

type testEnv struct {
	store    *store.Store
	pipeline *Pipeline
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlx.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "ingress.db")+"?_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, nil, 1000)
	require.NoError(t, st.EnsureSchema(context.Background()))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	p := NewPipeline(cleaner.NewNormalizer(nil), NewReconciler(st, nil, metrics), nil, metrics)
	return &testEnv{store: st, pipeline: p, registry: reg}
}

func (e *testEnv) ingest(t *testing.T, ds model.Dataset, csv string) (*IngestResult, error) {
	t.Helper()
	return e.pipeline.Ingest(context.Background(), ds, "test.csv", strings.NewReader(csv))
}

func (e *testEnv) correlations(t *testing.T) []model.CorrelationRecord {
	t.Helper()
	rows, _, err := scan.All(context.Background(), 100, e.store.Correlations(store.Filter{}))
	require.NoError(t, err)
	return rows
}

func (e *testEnv) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := e.registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

const scenarioA = `academic_year,course,applicant_count,enrollee_count
2023-2024,BSIT,100,80
2024-2025,BSIT,120,95
`

const enrollmentCSV = `studentID,gender,age,civilStatus,religion,course,barangay,isPasigueno,familyMonthlyIncome,feederSchoolType
2024-001,Female,19,Single,Catholic,BSIT,Kapitolyo,No,9520,Public
2024-002,Male,abc,Single,INC,BSIT,Cainta,Yes,"Php 30,000",Private
2024-003,Male,20,Single,Catholic,BSCS,Rosario,yes,21194,Public
`

func TestScenarioAThenC(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.ingest(t, model.DatasetCorrelation, scenarioA)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordCount)
	assert.Equal(t, 2, res.Inserted)
	assert.NotEmpty(t, res.BatchID)

	changed := strings.Replace(scenarioA, "2023-2024,BSIT,100,80", "2023-2024,BSIT,110,85", 1)
	res, err = env.ingest(t, model.DatasetCorrelation, changed)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Updated)

	rows := env.correlations(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-2024", rows[0].AcademicYear)
	assert.Equal(t, 110, rows[0].ApplicantCount)
	assert.Equal(t, 85, rows[0].EnrolleeCount)
	assert.True(t, rows[0].UpdatedAt.After(rows[0].CreatedAt) || rows[0].UpdatedAt.Equal(rows[0].CreatedAt))

	assert.Equal(t, 2.0, env.counter(t, "enrollment_ingress_rows_reconciled_total",
		map[string]string{"dataset": "applicant_enrollee", "op": OpInsert}))
	assert.Equal(t, 2.0, env.counter(t, "enrollment_ingress_rows_reconciled_total",
		map[string]string{"dataset": "applicant_enrollee", "op": OpUpdate}))
}

func TestIngestIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest(t, model.DatasetEnrollment, enrollmentCSV)
	require.NoError(t, err)
	first, _, err := scan.All(ctx, 100, env.store.Enrollments(store.Filter{}))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = env.ingest(t, model.DatasetEnrollment, enrollmentCSV)
	require.NoError(t, err)
	second, _, err := scan.All(ctx, 100, env.store.Enrollments(store.Filter{}))
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		a, b := first[i], second[i]
		assert.True(t, b.CreatedAt.Equal(a.CreatedAt), "created_at survives re-ingestion")
		assert.False(t, b.UpdatedAt.Before(a.UpdatedAt))
		a.CreatedAt, a.UpdatedAt = time.Time{}, time.Time{}
		b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}
		assert.Equal(t, a, b)
	}
}

func TestIngestEnrollmentNormalizes(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.ingest(t, model.DatasetEnrollment, enrollmentCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RecordCount)
	assert.Positive(t, res.CleaningOperations)

	rows, _, err := scan.All(context.Background(), 100, env.store.Enrollments(store.Filter{}))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].IsPasigueno, "residency is derived from the barangay")
	assert.Equal(t, 9520.0, rows[0].FamilyMonthlyIncome)
	assert.False(t, rows[1].IsPasigueno)
	assert.Equal(t, 0, rows[1].Age)
	assert.Equal(t, 30000.0, rows[1].FamilyMonthlyIncome)

	report, err := NewVerifier(env.store, nil).Verify(context.Background(), model.DatasetEnrollment)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, int64(3), report.RowCount)
	assert.Equal(t, int64(res.CleaningOperations), report.AuditRows)
}

func TestIngestSkipsInvalidEnrollmentRows(t *testing.T) {
	env := newTestEnv(t)
	csv := `studentID,gender,age,civilStatus,religion,course,barangay,familyMonthlyIncome,feederSchoolType
2024-001,Female,19,Single,Catholic,BSIT,Kapitolyo,9520,Public
,Male,20,Single,Catholic,BSIT,Kapitolyo,9520,Public
2024-003,Male,20,Single
`
	res, err := env.ingest(t, model.DatasetEnrollment, csv)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordCount)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, 4, res.Skipped[1].Line)

	assert.Equal(t, 2.0, env.counter(t, "enrollment_ingress_rows_skipped_total",
		map[string]string{"dataset": "enrollment"}))
}

func TestIngestCorrelationAbortsOnInvalidRow(t *testing.T) {
	env := newTestEnv(t)
	csv := `academic_year,course,applicant_count,enrollee_count
2023-2024,BSIT,100,80
2024-2025,,120,95
`
	_, err := env.ingest(t, model.DatasetCorrelation, csv)
	require.Error(t, err)
	assert.Equal(t, ErrorCategoryValidation, CategorizeError(err))

	var ingestErr *Error
	require.True(t, errors.As(err, &ingestErr))
	assert.Contains(t, ingestErr.Details[0], "line 3")
	assert.Empty(t, env.correlations(t))
}

func TestIngestIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ingest(t, model.DatasetCorrelation, scenarioA)
	require.NoError(t, err)

	csv := `academic_year,course,applicant_count,enrollee_count
2023-2024,BSIT,999,999
2025-2026,BSIT,10,5
2026-2027,BSIT,-1,0
`
	_, err = env.ingest(t, model.DatasetCorrelation, csv)
	require.Error(t, err)
	assert.Equal(t, ErrorCategoryReconciliation, CategorizeError(err))

	rows := env.correlations(t)
	require.Len(t, rows, 2, "no row of the failed batch is visible")
	assert.Equal(t, 100, rows[0].ApplicantCount)

	n, err := env.store.Count(context.Background(), model.DatasetCorrelation)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1.0, env.counter(t, "enrollment_ingress_batches_total",
		map[string]string{"dataset": "applicant_enrollee", "outcome": OutcomeRolledBack}))
}

func TestIngestCorrelationPadsShortRows(t *testing.T) {
	env := newTestEnv(t)
	csv := "academic_year,course,applicant_count,enrollee_count\n2023-2024,BSIT,100\n"
	res, err := env.ingest(t, model.DatasetCorrelation, csv)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordCount)

	rows := env.correlations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].EnrolleeCount)
}

func TestIngestInputErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		ds      model.Dataset
		csv     string
		message string
	}{
		{name: "empty", ds: model.DatasetEnrollment, csv: "  \n\n ", message: "CSV file is empty"},
		{name: "missing columns", ds: model.DatasetCorrelation, csv: "academic_year,course\n2023-2024,BSIT\n", message: "Invalid CSV format"},
		{name: "header only", ds: model.DatasetCorrelation, csv: "academic_year,course,applicant_count,enrollee_count\n", message: MsgNoRecords},
		{
			name:    "no valid rows",
			ds:      model.DatasetEnrollment,
			csv:     "studentID,gender,age,civilStatus,religion,course,barangay,familyMonthlyIncome,feederSchoolType\n,F,1,S,C,BSIT,X,1,Public\n",
			message: MsgNoRecords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ingest(t, tt.ds, tt.csv)
			require.Error(t, err)
			assert.Equal(t, ErrorCategoryInput, CategorizeError(err))

			var ingestErr *Error
			require.True(t, errors.As(err, &ingestErr))
			assert.Equal(t, tt.message, ingestErr.Message)
		})
	}
}

func TestConcurrentInsertOfSameKeyIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := model.CorrelationRecord{AcademicYear: "2023-2024", Course: "BSIT", ApplicantCount: 1}

	tx, err := env.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, tx, rec))
	require.NoError(t, tx.Commit())

	tx, err = env.store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	err = store.Insert(ctx, tx, rec)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	r := NewReconciler(env.store, nil, nil)
	assert.Equal(t, ErrorCategoryConflict, r.failure(err, "x").Category)
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, ErrorCategoryNone, CategorizeError(nil))
	assert.Equal(t, ErrorCategoryValidation, CategorizeError(&cleaner.ValidationError{Column: "email", Reason: "is required"}))
	assert.Equal(t, ErrorCategoryScan, CategorizeError(&scan.Error{Offset: 10, Err: errors.New("boom")}))
	assert.Equal(t, ErrorCategoryConflict, CategorizeError(errors.New(`pq: duplicate key value violates unique constraint "x_pkey"`)))
	assert.Equal(t, ErrorCategoryReconciliation, CategorizeError(errors.New("connection reset")))
	assert.Equal(t, ErrorCategoryInput, CategorizeError(NewError(ErrorCategoryInput, "bad", nil)))
}

func TestPolicyFor(t *testing.T) {
	assert.True(t, PolicyFor(model.DatasetStudentProfile).SkipInvalid)
	assert.True(t, PolicyFor(model.DatasetEnrollment).SkipInvalid)
	assert.False(t, PolicyFor(model.DatasetCorrelation).SkipInvalid)
}

func TestVerifyAllOnEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	reports, err := NewVerifier(env.store, nil).VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(model.Datasets))
	for _, r := range reports {
		assert.True(t, r.OK())
		assert.Zero(t, r.RowCount)
	}
	assert.Contains(t, GenerateReport(reports), "student_profiles")
}
