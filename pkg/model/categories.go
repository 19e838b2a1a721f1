package model

import (
	"math"
	"strings"
)

// Bracket is a numeric range with a closed upper bound
type Bracket struct {
	Label string
	Max   float64 // inclusive; +Inf for the open-ended last bracket
}

// Brackets is an ordered set of numeric ranges covering the whole number line
type Brackets []Bracket

// Assign returns the label of the bracket containing v. Values are floored to
// whole units first, so 21194.6 belongs with 21194.
func (b Brackets) Assign(v float64) string {
	v = math.Floor(v)
	for _, br := range b {
		if v <= br.Max {
			return br.Label
		}
	}
	return b[len(b)-1].Label
}

// Labels returns the bracket labels in declared order
func (b Brackets) Labels() []string {
	labels := make([]string, len(b))
	for i, br := range b {
		labels[i] = br.Label
	}
	return labels
}

// Contains reports whether label names one of the brackets
func (b Brackets) Contains(label string) bool {
	for _, br := range b {
		if br.Label == label {
			return true
		}
	}
	return false
}

// IncomeBrackets groups family monthly income in pesos
var IncomeBrackets = Brackets{
	{Label: "Less than 9,520", Max: 9519},
	{Label: "Between 9,520 to 21,194", Max: 21194},
	{Label: "Between 21,195 to 43,838", Max: 43838},
	{Label: "Between 43,839 to 76,669", Max: 76669},
	{Label: "Between 76,670 to 131,484", Max: 131484},
	{Label: "Between 131,485 to 219,140", Max: 219140},
	{Label: "From 219,141 and up", Max: math.Inf(1)},
}

// AgeBrackets groups student age in years
var AgeBrackets = Brackets{
	{Label: "Less than 18 years old", Max: 17},
	{Label: "18-22 years old", Max: 22},
	{Label: "23 years old and above", Max: math.Inf(1)},
}

// ResidencyBrackets groups years lived in Pasig
var ResidencyBrackets = Brackets{
	{Label: "less than 1 year", Max: 0},
	{Label: "1 - 5 years", Max: 5},
	{Label: "6 - 10 years", Max: 10},
	{Label: "11 - 15 years", Max: 15},
	{Label: "16 - 20 years", Max: 20},
	{Label: "21 - 25 years", Max: 25},
	{Label: "26 years and above", Max: math.Inf(1)},
}

// Yes/No labels used by every binary flag
const (
	LabelYes = "Yes"
	LabelNo  = "No"
)

// YesNo is the closed label set of binary flags
var YesNo = []string{LabelYes, LabelNo}

// pasigBarangays are the localities that count as living in Pasig
var pasigBarangays = func() map[string]struct{} {
	names := []string{
		"Bagong Ilog", "Bagong Katipunan", "Bambang", "Buting", "Caniogan", "Dela Paz",
		"Kalawaan", "Kapasigan", "Kapitolyo", "Malinao", "Manggahan", "Maybunga",
		"Oranbo", "Palatiw", "Pineda", "Rosario", "Sagad", "San Antonio", "San Joaquin",
		"San Jose", "San Miguel", "Santa Cruz", "Santa Lucia", "Santa Rosa",
		"Santo Tomas", "Santolan", "Sumilang", "Ugong", "San Nicolas", "Pinagbuhatan",
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[barangayKey(n)] = struct{}{}
	}
	return set
}()

// IsPasigBarangay reports whether a barangay name belongs to Pasig. Matching
// ignores case and collapses inner whitespace.
func IsPasigBarangay(barangay string) bool {
	_, ok := pasigBarangays[barangayKey(barangay)]
	return ok
}

func barangayKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
