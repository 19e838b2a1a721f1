package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/scan"
)

// MatchMode selects how a Filter compares values
type MatchMode int

const (
	// MatchExact keeps rows whose column equals the value
	MatchExact MatchMode = iota
	// MatchPrefix keeps rows whose column starts with the value
	MatchPrefix
)

// Filter restricts a scan to rows whose column matches a value.
// The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
	Mode   MatchMode
}

// IsZero reports whether the filter matches every row
func (f Filter) IsZero() bool {
	return f.Column == ""
}

// Exact returns a filter comparing column for equality
func Exact(column, value string) Filter {
	return Filter{Column: column, Value: value, Mode: MatchExact}
}

// Prefix returns a filter matching values that start with value
func Prefix(column, value string) Filter {
	return Filter{Column: column, Value: value, Mode: MatchPrefix}
}

// Profiles pages through the student profile table
func (s *Store) Profiles(f Filter) scan.PageFunc[model.StudentProfile] {
	return func(ctx context.Context, offset, limit int) ([]model.StudentProfile, error) {
		var rows []model.StudentProfile
		err := s.page(ctx, &rows, model.DatasetStudentProfile, f, offset, limit)
		return rows, err
	}
}

// Enrollments pages through the enrollment table
func (s *Store) Enrollments(f Filter) scan.PageFunc[model.EnrollmentRecord] {
	return func(ctx context.Context, offset, limit int) ([]model.EnrollmentRecord, error) {
		var rows []model.EnrollmentRecord
		err := s.page(ctx, &rows, model.DatasetEnrollment, f, offset, limit)
		return rows, err
	}
}

// Correlations pages through the applicant/enrollee table
func (s *Store) Correlations(f Filter) scan.PageFunc[model.CorrelationRecord] {
	return func(ctx context.Context, offset, limit int) ([]model.CorrelationRecord, error) {
		var rows []model.CorrelationRecord
		err := s.page(ctx, &rows, model.DatasetCorrelation, f, offset, limit)
		return rows, err
	}
}

// page selects one page ordered by natural key. limit is clamped to the store cap.
func (s *Store) page(ctx context.Context, dest interface{}, ds model.Dataset, f Filter, offset, limit int) error {
	md, err := metadataFor(ds)
	if err != nil {
		return err
	}
	if limit <= 0 || limit > s.maxPageRows {
		limit = s.maxPageRows
	}

	query, args, err := pageQuery(md, f, offset, limit)
	if err != nil {
		return err
	}

	if err := s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to read %s page at offset %d: %w", md.Table, offset, err)
	}
	return nil
}

func pageQuery(md *model.TableMetadata, f Filter, offset, limit int) (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, 3)

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(quoteAll(md.ColumnNames()), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(md.Table))

	if !f.IsZero() {
		col := md.GetColumnByName(f.Column)
		if col == nil {
			return "", nil, fmt.Errorf("cannot filter %s on unknown column %q", md.Table, f.Column)
		}
		switch f.Mode {
		case MatchExact:
			sb.WriteString(" WHERE " + quote(col.Name) + " = ?")
			args = append(args, f.Value)
		case MatchPrefix:
			sb.WriteString(" WHERE " + quote(col.Name) + ` LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(f.Value)+"%")
		default:
			return "", nil, fmt.Errorf("unknown match mode %d", f.Mode)
		}
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(quoteAll(md.PrimaryKeys), ", "))
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	return sb.String(), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
