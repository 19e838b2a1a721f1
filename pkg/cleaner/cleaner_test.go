package cleaner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(nil).WithClock(func() time.Time { return fixedNow })
}

func row(line int, fields map[string]string) model.RawRow {
	return model.RawRow{Line: line, Fields: fields}
}

func TestNormalizeEnrollmentDerivesResidency(t *testing.T) {
	n := newTestNormalizer()

	rec, ops, err := n.Normalize(model.DatasetEnrollment, row(2, map[string]string{
		"studentID":           "2021-0001",
		"gender":              "Female",
		"age":                 "19",
		"barangay":            "Kapitolyo",
		"isPasigueno":         "false",
		"familyMonthlyIncome": "9520",
		"course":              "BSIT",
		"feederSchoolType":    "Public",
	}))
	require.NoError(t, err)

	e := rec.(model.EnrollmentRecord)
	assert.Equal(t, "2021-0001", e.StudentID)
	assert.Equal(t, 19, e.Age)
	assert.True(t, e.IsPasigueno)
	assert.Equal(t, 9520.0, e.FamilyMonthlyIncome)
	assert.Equal(t, fixedNow, e.CreatedAt)
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)

	require.Len(t, ops, 1)
	assert.Equal(t, "isPasigueno", ops[0].ColumnName)
	assert.Equal(t, model.OpDerived, ops[0].CleaningOperation)
	assert.Equal(t, "2021-0001", ops[0].RowIdentifier)
}

func TestNormalizeEnrollmentLenientNumbers(t *testing.T) {
	n := newTestNormalizer()

	rec, ops, err := n.Normalize(model.DatasetEnrollment, row(3, map[string]string{
		"studentID":           "S-2",
		"age":                 "abc",
		"familyMonthlyIncome": "21,194",
		"barangay":            "Cainta",
	}))
	require.NoError(t, err)

	e := rec.(model.EnrollmentRecord)
	assert.Equal(t, 0, e.Age)
	assert.Equal(t, 21194.0, e.FamilyMonthlyIncome)
	assert.False(t, e.IsPasigueno)

	require.NotEmpty(t, ops)
	assert.Equal(t, "age", ops[0].ColumnName)
	assert.Equal(t, model.OpNumericDefault, ops[0].CleaningOperation)
	assert.Equal(t, "unparseable_integer", ops[0].CleaningReason)
}

func TestNormalizeRequiresNaturalKey(t *testing.T) {
	n := newTestNormalizer()

	_, _, err := n.Normalize(model.DatasetEnrollment, row(7, map[string]string{"studentID": " "}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 7, verr.Line)
	assert.Equal(t, "studentID", verr.Column)

	_, _, err = n.Normalize(model.DatasetCorrelation, row(4, map[string]string{"academic_year": "2023-2024"}))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "course", verr.Column)

	_, _, err = n.Normalize(model.DatasetStudentProfile, row(5, map[string]string{"sex": "Male"}))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Column)
}

func TestNormalizeProfile(t *testing.T) {
	n := newTestNormalizer()

	rec, _, err := n.Normalize(model.DatasetStudentProfile, row(2, map[string]string{
		"email":               " Juan.Dela@Example.COM ",
		"sex":                 "Male",
		"isLGBTQIA":           "",
		"age":                 "20",
		"isPasigueno":         "Yes",
		"yearsInPasig":        "11 - 15 years",
		"barangay":            "",
		"familyMonthlyIncome": "Between Php9,520 to Php21,194",
		"workingStudent":      "true",
		"deansLister":         "Yes",
		"presidentsLister":    "no",
		"isPWD":               "Prefer not to say",
		"curricularProgram":   "BSIT - Information Technology",
	}))
	require.NoError(t, err)

	p := rec.(model.StudentProfile)
	assert.Equal(t, "juan.dela@example.com", p.Email)
	assert.Equal(t, "No", p.IsLGBTQIA)
	assert.Equal(t, "18-22 years old", p.Age)
	assert.True(t, p.IsPasigueno, "flag is used when no barangay is given")
	assert.Equal(t, "11 - 15 years", p.YearsInPasig)
	assert.Equal(t, "Between 9,520 to 21,194", p.FamilyMonthlyIncome)
	assert.Equal(t, "Yes", p.WorkingStudent)
	assert.Equal(t, "Yes", p.DeansLister)
	assert.Equal(t, "No", p.PresidentsLister)
	assert.Equal(t, "Prefer not to say", p.IsPWD)
}

func TestNormalizeProfileBarangayOverridesFlag(t *testing.T) {
	n := newTestNormalizer()

	rec, ops, err := n.Normalize(model.DatasetStudentProfile, row(2, map[string]string{
		"email":       "a@b.com",
		"isPasigueno": "Yes",
		"barangay":    "Antipolo",
	}))
	require.NoError(t, err)
	assert.False(t, rec.(model.StudentProfile).IsPasigueno)

	var derived bool
	for _, op := range ops {
		if op.ColumnName == "isPasigueno" {
			derived = true
			assert.Equal(t, "false", op.NewValue)
		}
	}
	assert.True(t, derived)
}

func TestNormalizeProfileBracketsNumbers(t *testing.T) {
	n := newTestNormalizer()

	rec, _, err := n.Normalize(model.DatasetStudentProfile, row(2, map[string]string{
		"email":               "x@y.com",
		"age":                 "17",
		"yearsInPasig":        "0",
		"familyMonthlyIncome": "Php 21,194",
	}))
	require.NoError(t, err)

	p := rec.(model.StudentProfile)
	assert.Equal(t, "Less than 18 years old", p.Age)
	assert.Equal(t, "less than 1 year", p.YearsInPasig)
	assert.Equal(t, "Between 9,520 to 21,194", p.FamilyMonthlyIncome)
}

func TestNormalizeCorrelationKeepsCounts(t *testing.T) {
	n := newTestNormalizer()

	rec, ops, err := n.Normalize(model.DatasetCorrelation, row(2, map[string]string{
		"academic_year":   "2023-2024",
		"course":          "BSCS",
		"applicant_count": "1,250",
		"enrollee_count":  "",
	}))
	require.NoError(t, err)

	c := rec.(model.CorrelationRecord)
	assert.Equal(t, 1250, c.ApplicantCount)
	assert.Equal(t, 0, c.EnrolleeCount)
	assert.Equal(t, "2023-2024/BSCS", c.KeyString())
	assert.Len(t, ops, 2)
}

func TestNormalizeCorrelationOutOfRangeCounts(t *testing.T) {
	n := newTestNormalizer()

	for _, raw := range []string{"99999999999999999999", "1e30", "3000000000", "-3000000000"} {
		t.Run(raw, func(t *testing.T) {
			rec, ops, err := n.Normalize(model.DatasetCorrelation, row(2, map[string]string{
				"academic_year":   "2023-2024",
				"course":          "BSCS",
				"applicant_count": raw,
				"enrollee_count":  "12",
			}))
			require.NoError(t, err)

			c := rec.(model.CorrelationRecord)
			assert.Equal(t, 0, c.ApplicantCount)
			assert.Equal(t, 12, c.EnrolleeCount)
			require.Len(t, ops, 1)
			assert.Equal(t, "applicant_count", ops[0].ColumnName)
			assert.Equal(t, model.OpNumericDefault, ops[0].CleaningOperation)
			assert.Equal(t, "integer_out_of_range", ops[0].CleaningReason)
			assert.Equal(t, "0", ops[0].NewValue)
		})
	}
}

func TestNormalizeCorrelationKeepsInt32Bounds(t *testing.T) {
	rec, ops, err := newTestNormalizer().Normalize(model.DatasetCorrelation, row(2, map[string]string{
		"academic_year":   "2023-2024",
		"course":          "BSCS",
		"applicant_count": "2147483647",
		"enrollee_count":  "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, 2147483647, rec.(model.CorrelationRecord).ApplicantCount)
	assert.Empty(t, ops)
}
