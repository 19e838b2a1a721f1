// Package aggregate reduces scanned rows into ordered categorical buckets.
package aggregate

import "sort"

// Bucket is one label of a categorical breakdown
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Fill  string `json:"fill,omitempty"`
}

// Share is a binary split reported as the percentage of matching rows
type Share struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
	Total int     `json:"total"`
	Fill  string  `json:"fill,omitempty"`
}

// Fixed tallies rows against a closed label set. Every label is returned in
// the given order, zero counts included. Rows whose label is not in the set
// are dropped.
func Fixed[T any](rows []T, labels []string, labelOf func(T) string) []Bucket {
	out := make([]Bucket, len(labels))
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		out[i] = Bucket{Label: l}
		index[l] = i
	}

	for _, r := range rows {
		if i, ok := index[labelOf(r)]; ok {
			out[i].Count++
		}
	}
	return out
}

// Dynamic tallies labels discovered from the rows, ordered by count
// descending with ties kept in first-seen order. Empty labels are not counted.
func Dynamic[T any](rows []T, labelOf func(T) string) []Bucket {
	out := []Bucket{}
	index := make(map[string]int)
	for _, r := range rows {
		l := labelOf(r)
		if l == "" {
			continue
		}
		i, ok := index[l]
		if !ok {
			i = len(out)
			index[l] = i
			out = append(out, Bucket{Label: l})
		}
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Percentage returns match/total*100, or 0 when total is 0
func Percentage(match, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(match) / float64(total) * 100
}

// Total sums the counts of a bucket list
func Total(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}

// Count returns the count of the bucket with the given label
func Count(buckets []Bucket, label string) int {
	for _, b := range buckets {
		if b.Label == label {
			return b.Count
		}
	}
	return 0
}

// WithFill sets each bucket's fill from its label
func WithFill(buckets []Bucket, fillOf func(label string) string) []Bucket {
	for i := range buckets {
		buckets[i].Fill = fillOf(buckets[i].Label)
	}
	return buckets
}
