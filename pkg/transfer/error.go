package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/David-Botos/enrollment-ingress/pkg/cleaner"
	"github.com/David-Botos/enrollment-ingress/pkg/decoder"
	"github.com/David-Botos/enrollment-ingress/pkg/scan"
)

// uniqueViolation is the SQLSTATE of a unique or primary key violation
const uniqueViolation = "23505"

// ErrorCategory defines categories of errors during ingestion and aggregation
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	// ErrorCategoryInput covers unusable uploads: wrong type, oversize, empty, bad header
	ErrorCategoryInput
	// ErrorCategoryValidation covers rows that cannot become records
	ErrorCategoryValidation
	// ErrorCategoryConflict covers a lost race on a new natural key
	ErrorCategoryConflict
	// ErrorCategoryReconciliation covers storage failures mid-batch
	ErrorCategoryReconciliation
	// ErrorCategoryScan covers a failed page request
	ErrorCategoryScan
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryInput:
		return "Input"
	case ErrorCategoryValidation:
		return "Validation"
	case ErrorCategoryConflict:
		return "Conflict"
	case ErrorCategoryReconciliation:
		return "Reconciliation"
	case ErrorCategoryScan:
		return "Scan"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// Error is a categorized failure returned to callers of the pipeline
type Error struct {
	Category ErrorCategory
	Message  string
	Details  []string
	Err      error
}

// NewError creates a categorized error
func NewError(category ErrorCategory, message string, err error) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

// WithDetails attaches diagnostic lines
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategorizeError determines the category of an error
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		catErr    *Error
		emptyErr  *decoder.EmptyInputError
		schemaErr *decoder.SchemaError
		rowErr    *decoder.MalformedRowError
		validErr  *cleaner.ValidationError
		scanErr   *scan.Error
	)

	switch {
	case errors.As(err, &catErr):
		return catErr.Category
	case errors.As(err, &emptyErr), errors.As(err, &schemaErr):
		return ErrorCategoryInput
	case errors.As(err, &rowErr), errors.As(err, &validErr):
		return ErrorCategoryValidation
	case errors.As(err, &scanErr):
		return ErrorCategoryScan
	case IsUniqueViolation(err):
		return ErrorCategoryConflict
	default:
		return ErrorCategoryReconciliation
	}
}

// IsUniqueViolation reports whether err is a unique or primary key violation
// from any of the supported drivers
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// IsCanceled reports whether err was caused by the caller's context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
