// Package cleaner maps decoded CSV rows onto typed dataset records.
package cleaner

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// ValidationError reports a row that cannot become a record
type ValidationError struct {
	Dataset model.Dataset
	Line    int
	Column  string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s row at line %d: %s %s", e.Dataset, e.Line, e.Column, e.Reason)
}

// Normalizer validates and cleans raw rows for one of the datasets
type Normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Normalize converts a raw row into the dataset's record type. The returned
// cleaning operations describe every value that was defaulted, coerced or
// derived. Rows missing a natural key yield a *ValidationError.
func (n *Normalizer) Normalize(
	dataset model.Dataset,
	row model.RawRow,
) (model.Record, []model.CleaningOperation, error) {
	var (
		rec model.Record
		ops []model.CleaningOperation
		err error
	)
	switch dataset {
	case model.DatasetStudentProfile:
		rec, ops, err = n.normalizeProfile(row)
	case model.DatasetEnrollment:
		rec, ops, err = n.normalizeEnrollment(row)
	case model.DatasetCorrelation:
		rec, ops, err = n.normalizeCorrelation(row)
	default:
		return nil, nil, fmt.Errorf("unknown dataset %q", dataset)
	}
	if err != nil {
		n.logger.Debug("Rejected row",
			zap.String("dataset", string(dataset)),
			zap.Int("line", row.Line),
			zap.Error(err))
		return nil, nil, err
	}
	return rec, ops, nil
}

func (n *Normalizer) normalizeProfile(row model.RawRow) (model.Record, []model.CleaningOperation, error) {
	rawEmail := row.Get("email")
	email := strings.ToLower(strings.TrimSpace(rawEmail))
	if email == "" {
		return nil, nil, &ValidationError{Dataset: model.DatasetStudentProfile, Line: row.Line, Column: "email", Reason: "is required"}
	}

	ops := newRecorder(model.DatasetStudentProfile, row.Line, email)
	if email != rawEmail {
		ops.add("email", rawEmail, email, model.OpLowercased, "case_insensitive_key")
	}

	ts := n.now()
	p := model.StudentProfile{
		Email:             email,
		Sex:               row.Get("sex"),
		CivilStatus:       row.Get("civilStatus"),
		Barangay:          row.Get("barangay"),
		Religion:          row.Get("religion"),
		CurricularProgram: row.Get("curricularProgram"),
		AcademicStatus:    row.Get("academicStatus"),
		FeederSchool:      row.Get("feederSchool"),
		StrandInSHS:       row.Get("strandInSHS"),
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}

	p.IsLGBTQIA = ops.flag("isLGBTQIA", row.Get("isLGBTQIA"))
	p.WorkingStudent = ops.flag("workingStudent", row.Get("workingStudent"))
	p.DeansLister = ops.flag("deansLister", row.Get("deansLister"))
	p.PresidentsLister = ops.flag("presidentsLister", row.Get("presidentsLister"))
	p.IsPWD = ops.flag("isPWD", row.Get("isPWD"))

	p.Age = ops.bracket("age", row.Get("age"), model.AgeBrackets, ageLabels)
	p.YearsInPasig = ops.bracket("yearsInPasig", row.Get("yearsInPasig"), model.ResidencyBrackets, residencyLabels)
	p.FamilyMonthlyIncome = ops.bracket("familyMonthlyIncome", row.Get("familyMonthlyIncome"), model.IncomeBrackets, incomeLabels)

	p.IsPasigueno = ops.residency(row.Get("barangay"), row.Get("isPasigueno"))

	return p, ops.list, nil
}

func (n *Normalizer) normalizeEnrollment(row model.RawRow) (model.Record, []model.CleaningOperation, error) {
	id := strings.TrimSpace(row.Get("studentID"))
	if id == "" {
		return nil, nil, &ValidationError{Dataset: model.DatasetEnrollment, Line: row.Line, Column: "studentID", Reason: "is required"}
	}

	ops := newRecorder(model.DatasetEnrollment, row.Line, id)
	ts := n.now()
	e := model.EnrollmentRecord{
		StudentID:        id,
		Gender:           row.Get("gender"),
		CivilStatus:      row.Get("civilStatus"),
		Religion:         row.Get("religion"),
		Course:           row.Get("course"),
		Barangay:         row.Get("barangay"),
		FeederSchoolType: row.Get("feederSchoolType"),
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	e.Age = ops.integer("age", row.Get("age"))
	e.FamilyMonthlyIncome = ops.float("familyMonthlyIncome", row.Get("familyMonthlyIncome"))

	// Residency is always derived from the barangay for enrollment rows.
	e.IsPasigueno = model.IsPasigBarangay(e.Barangay)
	if row.Has("isPasigueno") {
		if given, ok := parseFlag(row.Get("isPasigueno")); ok && given != e.IsPasigueno {
			ops.add("isPasigueno", row.Get("isPasigueno"), fmt.Sprint(e.IsPasigueno), model.OpDerived, "derived_from_barangay")
		}
	}

	return e, ops.list, nil
}

func (n *Normalizer) normalizeCorrelation(row model.RawRow) (model.Record, []model.CleaningOperation, error) {
	year := strings.TrimSpace(row.Get("academic_year"))
	if year == "" {
		return nil, nil, &ValidationError{Dataset: model.DatasetCorrelation, Line: row.Line, Column: "academic_year", Reason: "is required"}
	}
	course := strings.TrimSpace(row.Get("course"))
	if course == "" {
		return nil, nil, &ValidationError{Dataset: model.DatasetCorrelation, Line: row.Line, Column: "course", Reason: "is required"}
	}

	ops := newRecorder(model.DatasetCorrelation, row.Line, year+"/"+course)
	ts := n.now()
	c := model.CorrelationRecord{
		AcademicYear:   year,
		Course:         course,
		ApplicantCount: ops.integer("applicant_count", row.Get("applicant_count")),
		EnrolleeCount:  ops.integer("enrollee_count", row.Get("enrollee_count")),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	return c, ops.list, nil
}
