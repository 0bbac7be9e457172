package index

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOverrideReconciliation(t *testing.T) {
	base := []string{"ONE", "TWO", "THREE"}
	overrides := []OverrideTermSet[string]{
		{Timestamp: 100, Terms: set("ONE", "TWO", "THREE", "FOUR")},
		{Timestamp: 200, Terms: set("ONE", "TWO")},
		{Timestamp: 400, Terms: set()},
		{Timestamp: 500, Terms: set("FOUR")},
	}

	idx := Build(base, overrides)

	one, ok := idx.Get("ONE")
	require.True(t, ok)
	assert.True(t, one.IsInclude())
	assert.ElementsMatch(t, []int64{400, 500}, one.Exceptions())

	two, ok := idx.Get("TWO")
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{400, 500}, two.Exceptions())

	three, ok := idx.Get("THREE")
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{200, 400, 500}, three.Exceptions())

	four, ok := idx.Get("FOUR")
	require.True(t, ok)
	assert.True(t, four.IsExclude())
	assert.ElementsMatch(t, []int64{100, 500}, four.Exceptions())
}

func set(vs ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		out[v] = struct{}{}
	}
	return out
}

func TestOverrideReversibility(t *testing.T) {
	base := []string{"A", "B"}
	idx := NewEventIndex(base)
	before := idx.Clone()

	idx.InsertOverride(50, set("A", "C"))
	idx.RemoveOverride(50)

	if diff := cmp.Diff(before.Terms(), idx.Terms()); diff != "" {
		t.Fatalf("index not structurally equal after insert+remove round trip (-before +after):\n%s", diff)
	}
}

func TestDiffIdempotence(t *testing.T) {
	idx := Build([]string{"A", "B"}, []OverrideTermSet[string]{
		{Timestamp: 10, Terms: set("A")},
	})
	d := DiffEventIndex(idx, idx)
	changeSet := struct{ Removed, Updated, Added []string }{d.Removed, d.Updated, d.Added}
	want := struct{ Removed, Updated, Added []string }{}
	if diff := cmp.Diff(want, changeSet, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("diffing an index against itself must yield an empty change set (-want +got):\n%s", diff)
	}
}

func TestDiffRemovedUpdatedAdded(t *testing.T) {
	oldIdx := NewEventIndex([]string{"A", "B"})
	newIdx := oldIdx.Clone()
	newIdx.InsertOverride(5, set("B", "C"))

	d := DiffEventIndex(oldIdx, newIdx)
	assert.ElementsMatch(t, []string{"A"}, d.Updated)
	assert.ElementsMatch(t, []string{"C"}, d.Added)
	assert.Empty(t, d.Removed)
}
