package cleaner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// recorder accumulates the cleaning operations applied to a single row
type recorder struct {
	dataset model.Dataset
	line    int
	rowID   string
	list    []model.CleaningOperation
}

func newRecorder(dataset model.Dataset, line int, rowID string) *recorder {
	return &recorder{dataset: dataset, line: line, rowID: rowID}
}

func (r *recorder) add(column, original, cleaned, operation, reason string) {
	r.list = append(r.list, model.CleaningOperation{
		Dataset:           r.dataset,
		ColumnName:        column,
		OriginalValue:     original,
		NewValue:          cleaned,
		RowIdentifier:     r.rowID,
		SourceLine:        r.line,
		CleaningOperation: operation,
		CleaningReason:    reason,
	})
}

// integer parses an integer field, defaulting to 0 when the value is empty,
// unparseable or outside the 32-bit column range. Fractional input is truncated.
func (r *recorder) integer(column, raw string) int {
	if raw == "" {
		r.add(column, raw, "0", model.OpNumericDefault, "empty_integer")
		return 0
	}
	v, ok := parseNumber(raw)
	if !ok {
		r.add(column, raw, "0", model.OpNumericDefault, "unparseable_integer")
		return 0
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		r.add(column, raw, "0", model.OpNumericDefault, "integer_out_of_range")
		return 0
	}
	n := int(v)
	if strconv.Itoa(n) != raw {
		r.add(column, raw, strconv.Itoa(n), model.OpNumericStripped, "non_canonical_integer")
	}
	return n
}

// float parses a decimal field, defaulting to 0 when the value is empty or unparseable
func (r *recorder) float(column, raw string) float64 {
	if raw == "" {
		r.add(column, raw, "0", model.OpNumericDefault, "empty_number")
		return 0
	}
	v, ok := parseNumber(raw)
	if !ok {
		r.add(column, raw, "0", model.OpNumericDefault, "unparseable_number")
		return 0
	}
	return v
}

// flag canonicalizes a Yes/No field. Empty values default to "No" and values
// that are neither truthy nor falsy pass through unchanged.
func (r *recorder) flag(column, raw string) string {
	if raw == "" {
		r.add(column, raw, model.LabelNo, model.OpFlagDefault, "empty_flag")
		return model.LabelNo
	}
	v, ok := parseFlag(raw)
	if !ok {
		return raw
	}
	label := model.LabelNo
	if v {
		label = model.LabelYes
	}
	if label != raw {
		r.add(column, raw, label, model.OpFlagCanonical, "flag_spelling")
	}
	return label
}

// bracket turns a numeric value into its bracket label. Values that already
// name a bracket are canonicalized through labels; any other text passes
// through unchanged.
func (r *recorder) bracket(column, raw string, brackets model.Brackets, labels map[string]string) string {
	if raw == "" {
		return ""
	}
	if brackets.Contains(raw) {
		return raw
	}
	if label, ok := labels[labelKey(raw)]; ok {
		r.add(column, raw, label, model.OpLabelCanonical, "label_spelling")
		return label
	}
	if v, ok := parseNumber(raw); ok {
		label := brackets.Assign(v)
		r.add(column, raw, label, model.OpBracketed, "numeric_value")
		return label
	}
	return raw
}

// residency derives the Pasig residency flag. The barangay is authoritative;
// the uploaded flag is only consulted when no barangay was given.
func (r *recorder) residency(barangay, rawFlag string) bool {
	given, parsed := parseFlag(rawFlag)
	if barangay == "" {
		return parsed && given
	}
	derived := model.IsPasigBarangay(barangay)
	if parsed && given != derived {
		r.add("isPasigueno", rawFlag, strconv.FormatBool(derived), model.OpDerived, "derived_from_barangay")
	}
	return derived
}

// parseNumber accepts plain numbers with optional thousands separators and a
// leading peso marker.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"Php", "PHP", "php", "₱"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "t", "1":
		return true, true
	case "no", "n", "false", "f", "0":
		return false, true
	}
	return false, false
}

// labelKey folds a bracket label for lookup: case, spaces and peso markers are ignored
func labelKey(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "php", "")
	s = strings.ReplaceAll(s, "₱", "")
	return strings.Join(strings.Fields(s), "")
}

func labelIndex(brackets model.Brackets, aliases map[string]string) map[string]string {
	idx := make(map[string]string, len(brackets)+len(aliases))
	for _, label := range brackets.Labels() {
		idx[labelKey(label)] = label
	}
	for alias, label := range aliases {
		if !brackets.Contains(label) {
			panic(fmt.Sprintf("alias %q points at unknown label %q", alias, label))
		}
		idx[labelKey(alias)] = label
	}
	return idx
}

var (
	incomeLabels = labelIndex(model.IncomeBrackets, map[string]string{
		"From Php219,140 and up": "From 219,141 and up",
	})
	ageLabels       = labelIndex(model.AgeBrackets, nil)
	residencyLabels = labelIndex(model.ResidencyBrackets, nil)
)
