// Package decoder turns uploaded CSV text into a lazy sequence of raw rows.
package decoder

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// MalformedPolicy decides what happens to a line that cannot be framed as a row
type MalformedPolicy int

const (
	// MalformedSkip drops the line and records it in Skipped
	MalformedSkip MalformedPolicy = iota
	// MalformedPad pads short rows with empty fields and drops extra fields.
	// Lines with quoting errors are still skipped.
	MalformedPad
	// MalformedAbort stops decoding at the first malformed line
	MalformedAbort
)

// String returns the policy name
func (p MalformedPolicy) String() string {
	switch p {
	case MalformedSkip:
		return "skip"
	case MalformedPad:
		return "pad"
	case MalformedAbort:
		return "abort"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Options configures a Reader
type Options struct {
	Comma       rune     // Field delimiter, ',' when zero
	Required    []string // Header names that must be present
	OnMalformed MalformedPolicy
}

// SkippedLine describes a source line dropped by the decoder
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Reader decodes CSV rows one at a time
type Reader struct {
	csv     *csv.Reader
	opts    Options
	header  []string
	skipped []SkippedLine

	// newlines consumed before the csv reader saw any input
	lineOffset int
}

// NewReader reads the header line and validates it against opts.Required.
// It returns *EmptyInputError when the input holds nothing but whitespace and
// *SchemaError when the header is unusable.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	br := bufio.NewReader(r)
	skippedLines, err := skipLeadingSpace(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	dec := &Reader{csv: cr, opts: opts, lineOffset: skippedLines}
	if err := dec.readHeader(); err != nil {
		return nil, err
	}
	return dec, nil
}

// Header returns the trimmed header names in source order
func (r *Reader) Header() []string {
	return r.header
}

// Skipped returns the lines dropped so far
func (r *Reader) Skipped() []SkippedLine {
	return r.skipped
}

// Next returns the next non-blank row, or io.EOF when the input is exhausted
func (r *Reader) Next() (model.RawRow, error) {
	for {
		fields, err := r.csv.Read()
		if err == io.EOF {
			return model.RawRow{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return model.RawRow{}, fmt.Errorf("failed to read csv: %w", err)
			}
			if r.opts.OnMalformed == MalformedAbort {
				return model.RawRow{}, &MalformedRowError{Line: perr.StartLine + r.lineOffset, Err: perr.Err}
			}
			r.skip(perr.StartLine+r.lineOffset, perr.Err.Error())
			continue
		}

		line, _ := r.csv.FieldPos(0)
		line += r.lineOffset
		if isBlank(fields) {
			continue
		}

		if len(fields) != len(r.header) {
			switch r.opts.OnMalformed {
			case MalformedAbort:
				return model.RawRow{}, &MalformedRowError{
					Line: line,
					Err:  fmt.Errorf("expected %d fields, got %d", len(r.header), len(fields)),
				}
			case MalformedSkip:
				r.skip(line, fmt.Sprintf("expected %d fields, got %d", len(r.header), len(fields)))
				continue
			case MalformedPad:
				fields = fitFields(fields, len(r.header))
			}
		}

		row := model.RawRow{Line: line, Fields: make(map[string]string, len(r.header))}
		for i, name := range r.header {
			row.Fields[name] = strings.TrimSpace(fields[i])
		}
		return row, nil
	}
}

// ReadAll drains the reader
func (r *Reader) ReadAll() ([]model.RawRow, error) {
	var rows []model.RawRow
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) readHeader() error {
	for {
		fields, err := r.csv.Read()
		if err == io.EOF {
			return &SchemaError{Reason: "no header line"}
		}
		if err != nil {
			return &SchemaError{Reason: fmt.Sprintf("unparseable header: %v", err)}
		}
		if isBlank(fields) {
			continue
		}

		header := make([]string, len(fields))
		seen := make(map[string]int, len(fields))
		for i, f := range fields {
			name := strings.TrimSpace(f)
			if i == 0 {
				name = strings.TrimPrefix(name, "\ufeff")
			}
			if name == "" {
				return &SchemaError{Reason: fmt.Sprintf("header contains empty name at position %d", i+1)}
			}
			if pos, ok := seen[name]; ok {
				return &SchemaError{Reason: fmt.Sprintf("%s appears at both %d and %d in header", name, pos+1, i+1)}
			}
			seen[name] = i
			header[i] = name
		}

		var missing []string
		for _, req := range r.opts.Required {
			if _, ok := seen[req]; !ok {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			return &SchemaError{Reason: "missing required columns", Missing: missing}
		}

		r.header = header
		return nil
	}
}

func (r *Reader) skip(line int, reason string) {
	r.skipped = append(r.skipped, SkippedLine{Line: line, Reason: reason})
}

// skipLeadingSpace consumes leading whitespace and a byte order mark and
// reports an EmptyInputError when nothing else follows. It returns the number
// of newlines consumed.
func skipLeadingSpace(br *bufio.Reader) (int, error) {
	newlines := 0
	for {
		ch, _, err := br.ReadRune()
		if err == io.EOF {
			return 0, &EmptyInputError{}
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
		if ch == '\n' {
			newlines++
		}
		if unicode.IsSpace(ch) || ch == '\ufeff' {
			continue
		}
		return newlines, br.UnreadRune()
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func fitFields(fields []string, n int) []string {
	if len(fields) > n {
		return fields[:n]
	}
	out := make([]string, n)
	copy(out, fields)
	return out
}
