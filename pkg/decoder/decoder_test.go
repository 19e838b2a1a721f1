package decoder

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSkipsBlankLines(t *testing.T) {
	input := "academic_year,course,applicant_count,enrollee_count\n" +
		"\n" +
		"2023-2024, BSIT ,120,80\n" +
		" , , , \n" +
		"2024-2025,BSCS,90,70\n"

	r, err := NewReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BSIT", rows[0].Get("course"))
	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, "2024-2025", rows[1].Get("academic_year"))
	assert.Equal(t, 5, rows[1].Line)
	assert.Empty(t, r.Skipped())
}

func TestReaderEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t\n  "} {
		_, err := NewReader(strings.NewReader(input), Options{})
		var empty *EmptyInputError
		assert.True(t, errors.As(err, &empty), "input %q", input)
	}
}

func TestReaderHeaderIsCaseSensitive(t *testing.T) {
	input := "Email,sex\nx@y.com,F\n"
	_, err := NewReader(strings.NewReader(input), Options{Required: []string{"email", "sex"}})

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"email"}, schemaErr.Missing)
}

func TestReaderRejectsDuplicateHeader(t *testing.T) {
	_, err := NewReader(strings.NewReader("a,b,a\n1,2,3\n"), Options{})
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestReaderExtraHeadersAreKept(t *testing.T) {
	r, err := NewReader(strings.NewReader("\ufeffemail,notes\nA@B.com,hello\n"), Options{Required: []string{"email"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "notes"}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", row.Get("notes"))
	assert.True(t, row.Has("email"))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderSkipPolicy(t *testing.T) {
	input := "a,b,c\n" +
		"1,2,3\n" +
		"4,5\n" +
		"6,7\"x,8\n" +
		"9,10,11\n"

	r, err := NewReader(strings.NewReader(input), Options{OnMalformed: MalformedSkip})
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].Get("a"))
	assert.Equal(t, "9", rows[1].Get("a"))

	skipped := r.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, 3, skipped[0].Line)
	assert.Equal(t, 4, skipped[1].Line)
}

func TestReaderPadPolicy(t *testing.T) {
	input := "a,b,c\n1,2\n4,5,6,7\n"

	r, err := NewReader(strings.NewReader(input), Options{OnMalformed: MalformedPad})
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Get("c"))
	assert.True(t, rows[0].Has("c"))
	assert.Equal(t, "6", rows[1].Get("c"))
	assert.Empty(t, r.Skipped())
}

func TestReaderAbortPolicy(t *testing.T) {
	input := "a,b\n1,2\n3\n4,5\n"

	r, err := NewReader(strings.NewReader(input), Options{OnMalformed: MalformedAbort})
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	var malformed *MalformedRowError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 3, malformed.Line)
}

func TestReaderLineNumbersAfterLeadingBlankLines(t *testing.T) {
	r, err := NewReader(strings.NewReader("\n\na,b\n1,2\n"), Options{})
	require.NoError(t, err)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, row.Line)
}
