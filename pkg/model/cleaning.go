package model

import (
	"time"
)

// CleaningOperation represents a single normalization applied to an uploaded value
type CleaningOperation struct {
	BatchID           string    `db:"batch_id"`           // Ingest batch that produced the operation
	Dataset           Dataset   `db:"dataset"`            // Dataset of the row
	ColumnName        string    `db:"column_name"`        // CSV header that was cleaned
	OriginalValue     string    `db:"original_value"`     // Raw value as uploaded
	NewValue          string    `db:"new_value"`          // Value after cleaning
	RowIdentifier     string    `db:"row_identifier"`     // Natural key of the row
	SourceLine        int       `db:"source_line"`        // Line number in the upload
	CleaningOperation string    `db:"cleaning_operation"` // e.g. "numeric_default"
	CleaningReason    string    `db:"cleaning_reason"`    // e.g. "unparseable_integer"
	CleanedAt         time.Time `db:"cleaned_at"`
}

// Cleaning operation names
const (
	OpNumericDefault  = "numeric_default"
	OpFlagDefault     = "flag_default"
	OpFlagCanonical   = "flag_canonicalized"
	OpBracketed       = "bracketed"
	OpLabelCanonical  = "label_canonicalized"
	OpDerived         = "derived"
	OpLowercased      = "lowercased"
	OpNumericStripped = "numeric_stripped"
)
