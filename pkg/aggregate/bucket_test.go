package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

func identity(s string) string { return s }

func TestFixedEmitsEveryLabelInOrder(t *testing.T) {
	labels := model.IncomeBrackets.Labels()

	empty := Fixed([]string{}, labels, identity)
	require.Len(t, empty, len(labels))
	for i, b := range empty {
		assert.Equal(t, labels[i], b.Label)
		assert.Zero(t, b.Count)
	}

	rows := []string{labels[3], labels[0], labels[3], "Not a bracket"}
	got := Fixed(rows, labels, identity)
	require.Len(t, got, len(labels))
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 2, got[3].Count)
	assert.Equal(t, 3, Total(got), "unknown labels are dropped")
}

func TestFixedBoundaryIsClosed(t *testing.T) {
	incomes := []float64{21194, 21194, 21194.99, 9520, 9519}
	got := Fixed(incomes, model.IncomeBrackets.Labels(), model.IncomeBrackets.Assign)

	assert.Equal(t, 1, Count(got, "Less than 9,520"))
	assert.Equal(t, 4, Count(got, "Between 9,520 to 21,194"))
	assert.Equal(t, 0, Count(got, "Between 21,195 to 43,838"))
}

func TestDynamicOrdersByCountThenFirstSeen(t *testing.T) {
	rows := []string{"Kapitolyo", "Rosario", "", "Pinagbuhatan", "Rosario", "Kapitolyo", "Ugong"}
	got := Dynamic(rows, identity)

	require.Len(t, got, 4)
	assert.Equal(t, []Bucket{
		{Label: "Kapitolyo", Count: 2},
		{Label: "Rosario", Count: 2},
		{Label: "Pinagbuhatan", Count: 1},
		{Label: "Ugong", Count: 1},
	}, got)
}

func TestDynamicEmptyInput(t *testing.T) {
	got := Dynamic([]string{}, identity)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(0, 0))
	assert.Equal(t, 25.0, Percentage(1, 4))
	assert.Equal(t, 100.0, Percentage(3, 3))
}

func TestWithFill(t *testing.T) {
	got := WithFill(Fixed([]string{"Yes"}, model.YesNo, identity), yesNoFill)
	assert.Equal(t, []Bucket{
		{Label: "Yes", Count: 1, Fill: fillPrimary},
		{Label: "No", Count: 0, Fill: fillSecondary},
	}, got)
}

func TestIsAll(t *testing.T) {
	assert.True(t, IsAll(""))
	assert.True(t, IsAll(" All Colleges "))
	assert.True(t, IsAll("All College"))
	assert.False(t, IsAll("BSIT"))
}
