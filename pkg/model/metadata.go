package model

import "strings"

// TableMetadata describes how a dataset maps from CSV headers to its canonical table
type TableMetadata struct {
	Dataset     Dataset
	Table       string   // Canonical table name
	Columns     []Column // Column definitions in CSV header order
	PrimaryKeys []string // Natural key columns (table names)
}

// Column represents one field of a dataset
type Column struct {
	Header       string // CSV header name (case-sensitive)
	Name         string // Table column name
	PgType       string // Portable SQL type used for DDL
	Required     bool   // Header must be present in every upload
	IsPrimaryKey bool   // Part of the natural key
	NonNegative  bool   // Enforced with a CHECK constraint
}

var studentProfileMetadata = TableMetadata{
	Dataset: DatasetStudentProfile,
	Table:   "student_profiles",
	Columns: []Column{
		{Header: "email", Name: "email", PgType: "TEXT", Required: true, IsPrimaryKey: true},
		{Header: "sex", Name: "sex", PgType: "TEXT", Required: true},
		{Header: "isLGBTQIA", Name: "is_lgbtqia", PgType: "TEXT", Required: true},
		{Header: "age", Name: "age", PgType: "TEXT", Required: true},
		{Header: "civilStatus", Name: "civil_status", PgType: "TEXT", Required: true},
		{Header: "isPasigueno", Name: "is_pasigueno", PgType: "BOOLEAN", Required: true},
		{Header: "yearsInPasig", Name: "years_in_pasig", PgType: "TEXT", Required: true},
		{Header: "barangay", Name: "barangay", PgType: "TEXT", Required: true},
		{Header: "familyMonthlyIncome", Name: "family_monthly_income", PgType: "TEXT", Required: true},
		{Header: "religion", Name: "religion", PgType: "TEXT", Required: true},
		{Header: "curricularProgram", Name: "curricular_program", PgType: "TEXT", Required: true},
		{Header: "academicStatus", Name: "academic_status", PgType: "TEXT", Required: true},
		{Header: "workingStudent", Name: "working_student", PgType: "TEXT", Required: true},
		{Header: "deansLister", Name: "deans_lister", PgType: "TEXT", Required: true},
		{Header: "presidentsLister", Name: "presidents_lister", PgType: "TEXT", Required: true},
		{Header: "feederSchool", Name: "feeder_school", PgType: "TEXT", Required: true},
		{Header: "strandInSHS", Name: "strand_in_shs", PgType: "TEXT", Required: true},
		{Header: "isPWD", Name: "is_pwd", PgType: "TEXT", Required: true},
	},
	PrimaryKeys: []string{"email"},
}

var enrollmentMetadata = TableMetadata{
	Dataset: DatasetEnrollment,
	Table:   "enrollments",
	Columns: []Column{
		{Header: "studentID", Name: "student_id", PgType: "TEXT", Required: true, IsPrimaryKey: true},
		{Header: "gender", Name: "gender", PgType: "TEXT", Required: true},
		{Header: "age", Name: "age", PgType: "INTEGER", Required: true},
		{Header: "civilStatus", Name: "civil_status", PgType: "TEXT", Required: true},
		{Header: "religion", Name: "religion", PgType: "TEXT", Required: true},
		{Header: "course", Name: "course", PgType: "TEXT", Required: true},
		{Header: "barangay", Name: "barangay", PgType: "TEXT", Required: true},
		{Header: "isPasigueno", Name: "is_pasigueno", PgType: "BOOLEAN"},
		{Header: "familyMonthlyIncome", Name: "family_monthly_income", PgType: "DOUBLE PRECISION", Required: true},
		{Header: "feederSchoolType", Name: "feeder_school_type", PgType: "TEXT", Required: true},
	},
	PrimaryKeys: []string{"student_id"},
}

var correlationMetadata = TableMetadata{
	Dataset: DatasetCorrelation,
	Table:   "applicant_enrollee_correlations",
	Columns: []Column{
		{Header: "academic_year", Name: "academic_year", PgType: "TEXT", Required: true, IsPrimaryKey: true},
		{Header: "course", Name: "course", PgType: "TEXT", Required: true, IsPrimaryKey: true},
		{Header: "applicant_count", Name: "applicant_count", PgType: "INTEGER", Required: true, NonNegative: true},
		{Header: "enrollee_count", Name: "enrollee_count", PgType: "INTEGER", Required: true, NonNegative: true},
	},
	PrimaryKeys: []string{"academic_year", "course"},
}

// Metadata returns the table description of a dataset, or nil for an unknown one
func (d Dataset) Metadata() *TableMetadata {
	switch d {
	case DatasetStudentProfile:
		return &studentProfileMetadata
	case DatasetEnrollment:
		return &enrollmentMetadata
	case DatasetCorrelation:
		return &correlationMetadata
	}
	return nil
}

// RequiredHeaders lists the CSV headers an upload must carry
func (tm *TableMetadata) RequiredHeaders() []string {
	var headers []string
	for _, col := range tm.Columns {
		if col.Required {
			headers = append(headers, col.Header)
		}
	}
	return headers
}

// ColumnNames returns the table column names, including the timestamp columns
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, 0, len(tm.Columns)+2)
	for _, col := range tm.Columns {
		names = append(names, col.Name)
	}
	return append(names, "created_at", "updated_at")
}

// NonKeyColumns returns the columns rewritten when an existing row is reconciled.
// created_at is never part of the set.
func (tm *TableMetadata) NonKeyColumns() []string {
	var names []string
	for _, col := range tm.Columns {
		if !col.IsPrimaryKey {
			names = append(names, col.Name)
		}
	}
	return append(names, "updated_at")
}

// GetColumnByName returns a column by table or header name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	for i, col := range tm.Columns {
		if strings.EqualFold(col.Name, name) || strings.EqualFold(col.Header, name) {
			return &tm.Columns[i]
		}
	}
	return nil
}
