package converter

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

func TestToRaw(t *testing.T) {
	c := NewTypeConverter(nil)
	s := "  Pasig  "

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"null token", "NULL", ""},
		{"trimmed string", "  Rosario ", "Rosario"},
		{"bytes", []byte("BSIT"), "BSIT"},
		{"string pointer", &s, "Pasig"},
		{"nil string pointer", (*string)(nil), ""},
		{"int64", int64(42), "42"},
		{"float without trailing zeros", 21194.5, "21194.5"},
		{"whole float", float64(120), "120"},
		{"big float", big.NewFloat(9520.25), "9520.25"},
		{"bool true", true, "Yes"},
		{"bool false", false, "No"},
		{"date", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "2024-06-01"},
		{"timestamp", time.Date(2024, 6, 1, 13, 4, 5, 0, time.UTC), "2024-06-01 13:04:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToRaw(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToRawPlainBooleans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.YesNoBooleans = false
	c := NewTypeConverterWithConfig(nil, cfg)

	got, err := c.ToRaw(true)
	require.NoError(t, err)
	assert.Equal(t, "true", got)
}

func TestToRawStructuredValue(t *testing.T) {
	c := NewTypeConverter(nil)
	got, err := c.ToRaw(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	_, err = c.ToRaw(make(chan int))
	assert.Error(t, err)
}

func TestMapColumns(t *testing.T) {
	c := NewTypeConverter(nil)
	md := model.DatasetCorrelation.Metadata()

	m := c.MapColumns([]string{"ACADEMIC_YEAR", "Course", "APPLICANT_COUNT", "LOADED_AT", "enrollee_count"}, md)
	assert.Equal(t, []string{"academic_year", "course", "applicant_count", "", "enrollee_count"}, m.Headers)
	assert.Empty(t, m.Missing)

	m = c.MapColumns([]string{"ACADEMIC_YEAR", "COURSE"}, md)
	assert.Equal(t, []string{"applicant_count", "enrollee_count"}, m.Missing)
}

func TestMapColumnsByTableName(t *testing.T) {
	c := NewTypeConverter(nil)
	md := model.DatasetEnrollment.Metadata()

	m := c.MapColumns([]string{"STUDENT_ID", "FAMILY_MONTHLY_INCOME", "studentID"}, md)
	assert.Equal(t, []string{"studentID", "familyMonthlyIncome", ""}, m.Headers)
	assert.Contains(t, m.Missing, "gender")
	assert.NotContains(t, m.Missing, "studentID")
}

func TestKeyHeaders(t *testing.T) {
	assert.Equal(t, []string{"academic_year", "course"}, KeyHeaders(model.DatasetCorrelation.Metadata()))
	assert.Equal(t, []string{"email"}, KeyHeaders(model.DatasetStudentProfile.Metadata()))
}

func TestValidQualifiedName(t *testing.T) {
	assert.True(t, ValidQualifiedName("ANALYTICS.ENROLLMENTS"))
	assert.True(t, ValidQualifiedName("RAW_DB.PUBLIC.APPLICANTS_2024"))
	assert.False(t, ValidQualifiedName("ENROLLMENTS"))
	assert.False(t, ValidQualifiedName("a.b; DROP TABLE x"))
	assert.False(t, ValidQualifiedName(`"quoted".table`))
}
