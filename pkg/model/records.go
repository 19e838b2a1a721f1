package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Dataset identifies one of the uploadable record variants
type Dataset string

const (
	DatasetStudentProfile Dataset = "student_profile"
	DatasetEnrollment     Dataset = "enrollment"
	DatasetCorrelation    Dataset = "applicant_enrollee"
)

// Datasets lists every dataset in a stable order
var Datasets = []Dataset{DatasetStudentProfile, DatasetEnrollment, DatasetCorrelation}

// ParseDataset resolves a dataset from its name. Table names and a few
// aliases are accepted so CLI users can pass what they see in the database.
func ParseDataset(name string) (Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "student_profile", "student_profiles", "profile", "students-ecological-profile":
		return DatasetStudentProfile, nil
	case "enrollment", "enrollments", "cleaned-data":
		return DatasetEnrollment, nil
	case "applicant_enrollee", "applicant-enrollee", "correlation", "applicant_enrollee_correlations":
		return DatasetCorrelation, nil
	}
	return "", fmt.Errorf("unknown dataset %q", name)
}

// Value implements driver.Valuer
func (d Dataset) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner
func (d *Dataset) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*d = Dataset(v)
	case []byte:
		*d = Dataset(v)
	default:
		return fmt.Errorf("cannot scan %T into Dataset", src)
	}
	return nil
}

// RawRow is one decoded CSV line keyed by header name
type RawRow struct {
	Line   int               // 1-based line number in the source
	Fields map[string]string // header -> trimmed raw value
}

// Get returns the raw value of a column, or "" when absent
func (r RawRow) Get(column string) string {
	return r.Fields[column]
}

// Has reports whether the column was present in the source row
func (r RawRow) Has(column string) bool {
	_, ok := r.Fields[column]
	return ok
}

// Record is a normalized row of one of the three datasets
type Record interface {
	Dataset() Dataset
	// KeyString renders the natural key for logs and audit rows
	KeyString() string
}

// StudentProfile is a row of the student ecological profile dataset keyed by email
type StudentProfile struct {
	Email               string    `db:"email" json:"email"`
	Sex                 string    `db:"sex" json:"sex"`
	IsLGBTQIA           string    `db:"is_lgbtqia" json:"isLGBTQIA"`
	Age                 string    `db:"age" json:"age"`
	CivilStatus         string    `db:"civil_status" json:"civilStatus"`
	IsPasigueno         bool      `db:"is_pasigueno" json:"isPasigueno"`
	YearsInPasig        string    `db:"years_in_pasig" json:"yearsInPasig"`
	Barangay            string    `db:"barangay" json:"barangay"`
	FamilyMonthlyIncome string    `db:"family_monthly_income" json:"familyMonthlyIncome"`
	Religion            string    `db:"religion" json:"religion"`
	CurricularProgram   string    `db:"curricular_program" json:"curricularProgram"`
	AcademicStatus      string    `db:"academic_status" json:"academicStatus"`
	WorkingStudent      string    `db:"working_student" json:"workingStudent"`
	DeansLister         string    `db:"deans_lister" json:"deansLister"`
	PresidentsLister    string    `db:"presidents_lister" json:"presidentsLister"`
	FeederSchool        string    `db:"feeder_school" json:"feederSchool"`
	StrandInSHS         string    `db:"strand_in_shs" json:"strandInSHS"`
	IsPWD               string    `db:"is_pwd" json:"isPWD"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

func (StudentProfile) Dataset() Dataset    { return DatasetStudentProfile }
func (p StudentProfile) KeyString() string { return p.Email }

// EnrollmentRecord is a row of the enrollment-per-course dataset keyed by student ID
type EnrollmentRecord struct {
	StudentID           string    `db:"student_id" json:"studentID"`
	Gender              string    `db:"gender" json:"gender"`
	Age                 int       `db:"age" json:"age"`
	CivilStatus         string    `db:"civil_status" json:"civilStatus"`
	Religion            string    `db:"religion" json:"religion"`
	Course              string    `db:"course" json:"course"`
	Barangay            string    `db:"barangay" json:"barangay"`
	IsPasigueno         bool      `db:"is_pasigueno" json:"isPasigueno"`
	FamilyMonthlyIncome float64   `db:"family_monthly_income" json:"familyMonthlyIncome"`
	FeederSchoolType    string    `db:"feeder_school_type" json:"feederSchoolType"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

func (EnrollmentRecord) Dataset() Dataset    { return DatasetEnrollment }
func (e EnrollmentRecord) KeyString() string { return e.StudentID }

// CorrelationRecord holds applicant and enrollee counts per academic year and course
type CorrelationRecord struct {
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	Course         string    `db:"course" json:"course"`
	ApplicantCount int       `db:"applicant_count" json:"applicant_count"`
	EnrolleeCount  int       `db:"enrollee_count" json:"enrollee_count"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

func (CorrelationRecord) Dataset() Dataset { return DatasetCorrelation }
func (c CorrelationRecord) KeyString() string {
	return c.AcademicYear + "/" + c.Course
}
