package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/store"
)

// IntegrityIssue represents a data integrity issue in a canonical table
type IntegrityIssue struct {
	IssueType    string   `json:"issueType"`
	Description  string   `json:"description"`
	ColumnName   string   `json:"columnName,omitempty"`
	AffectedRows int64    `json:"affectedRows"`
	Samples      []string `json:"samples,omitempty"`
}

// VerificationReport contains the results of a table verification
type VerificationReport struct {
	Dataset          model.Dataset    `json:"dataset"`
	Table            string           `json:"table"`
	VerificationTime time.Time        `json:"verificationTime"`
	RowCount         int64            `json:"rowCount"`
	AuditRows        int64            `json:"auditRows"`
	IntegrityIssues  []IntegrityIssue `json:"integrityIssues"`
	Duration         time.Duration    `json:"duration"`
}

// OK reports whether no integrity issue was found
func (r *VerificationReport) OK() bool {
	return len(r.IntegrityIssues) == 0
}

// Verifier checks the canonical tables for invariant violations
type Verifier struct {
	store   *store.Store
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(st *store.Store, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		store:   st,
		logger:  logger,
		timeout: time.Minute * 5,
	}
}

// WithTimeout sets the timeout applied to each verification
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// VerifyAll verifies every dataset in order
func (v *Verifier) VerifyAll(ctx context.Context) ([]*VerificationReport, error) {
	reports := make([]*VerificationReport, 0, len(model.Datasets))
	for _, ds := range model.Datasets {
		r, err := v.Verify(ctx, ds)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Verify counts a dataset's rows and checks that every natural key is
// present and unique
func (v *Verifier) Verify(ctx context.Context, ds model.Dataset) (*VerificationReport, error) {
	md := ds.Metadata()
	if md == nil {
		return nil, fmt.Errorf("unknown dataset %q", ds)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	startTime := time.Now()
	report := &VerificationReport{
		Dataset:          ds,
		Table:            md.Table,
		VerificationTime: startTime,
		IntegrityIssues:  make([]IntegrityIssue, 0),
	}

	var err error
	if report.RowCount, err = v.store.Count(ctx, ds); err != nil {
		return nil, err
	}
	if report.AuditRows, err = v.countAuditRows(ctx, ds); err != nil {
		return nil, err
	}

	dupes, err := v.store.DuplicateKeys(ctx, ds)
	if err != nil {
		return nil, err
	}
	if len(dupes) > 0 {
		issue := IntegrityIssue{
			IssueType:    "PRIMARY_KEY_VIOLATION",
			Description:  fmt.Sprintf("Duplicate values found for natural key (%s)", strings.Join(md.PrimaryKeys, ",")),
			ColumnName:   strings.Join(md.PrimaryKeys, ","),
			AffectedRows: int64(len(dupes)),
			Samples:      sample(dupes, 10),
		}
		report.IntegrityIssues = append(report.IntegrityIssues, issue)
		v.logger.Warn("Natural key uniqueness violation",
			zap.String("table", md.Table),
			zap.Int("duplicateKeys", len(dupes)))
	}

	issues, err := v.checkEmptyKeys(ctx, md)
	if err != nil {
		return nil, err
	}
	report.IntegrityIssues = append(report.IntegrityIssues, issues...)

	report.Duration = time.Since(startTime)
	v.logger.Info("Verification report completed",
		zap.String("table", md.Table),
		zap.Int64("rows", report.RowCount),
		zap.Int("issues", len(report.IntegrityIssues)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// checkEmptyKeys finds rows whose natural key columns are empty
func (v *Verifier) checkEmptyKeys(ctx context.Context, md *model.TableMetadata) ([]IntegrityIssue, error) {
	issues := make([]IntegrityIssue, 0)
	for _, pk := range md.PrimaryKeys {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL OR %s = ''",
			quote(md.Table), quote(pk), quote(pk))

		var n int64
		if err := v.store.DB().GetContext(ctx, &n, query); err != nil {
			return nil, fmt.Errorf("failed to check empty keys in %s: %w", md.Table, err)
		}
		if n > 0 {
			issues = append(issues, IntegrityIssue{
				IssueType:    "EMPTY_KEY",
				Description:  fmt.Sprintf("Column %s has empty values", pk),
				ColumnName:   pk,
				AffectedRows: n,
			})
		}
	}
	return issues, nil
}

func (v *Verifier) countAuditRows(ctx context.Context, ds model.Dataset) (int64, error) {
	var n int64
	query := v.store.DB().Rebind("SELECT COUNT(*) FROM " + store.AuditTable + " WHERE dataset = ?")
	if err := v.store.DB().GetContext(ctx, &n, query, string(ds)); err != nil {
		return 0, fmt.Errorf("failed to count cleaning operations: %w", err)
	}
	return n, nil
}

// GenerateReport renders verification reports as text
func GenerateReport(reports []*VerificationReport) string {
	var sb strings.Builder
	sb.WriteString("=== Verification Report ===\n")
	for _, r := range reports {
		status := "OK"
		if !r.OK() {
			status = "FAILED"
		}
		sb.WriteString(fmt.Sprintf("%-34s %-6s rows=%d cleaningOps=%d\n", r.Table, status, r.RowCount, r.AuditRows))
		for _, issue := range r.IntegrityIssues {
			sb.WriteString(fmt.Sprintf("  [%s] %s (%d affected)\n", issue.IssueType, issue.Description, issue.AffectedRows))
			for _, s := range issue.Samples {
				sb.WriteString("    " + s + "\n")
			}
		}
	}
	return sb.String()
}

func sample(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func quote(name string) string {
	return pq.QuoteIdentifier(name)
}
