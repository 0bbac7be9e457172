package conclusion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEqual(t *testing.T, got, want Conclusion) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("conclusion mismatch (-want +got):\n%s", cmp.Diff(want.Exceptions(), got.Exceptions()))
	}
	require.Equal(t, want.tag, got.tag)
}

func TestMergeAndIncludeInclude(t *testing.T) {
	a := New(Include, 1, 2)
	b := New(Include, 2, 3)
	got := MergeAnd(a, b)
	mustEqual(t, got, New(Include, 1, 2, 3))
}

func TestMergeAndExcludeExclude(t *testing.T) {
	a := New(Exclude, 1, 2, 3)
	b := New(Exclude, 2, 3, 4)
	got := MergeAnd(a, b)
	mustEqual(t, got, New(Exclude, 2, 3))
}

func TestMergeAndIncludeExclude(t *testing.T) {
	a := New(Include, 1, 2)
	b := New(Exclude, 2, 3)
	got := MergeAnd(a, b)
	mustEqual(t, got, New(Exclude, 3))
}

func TestMergeOrIncludeIncludeAbsentWins(t *testing.T) {
	a := IncludeAll()
	b := New(Include, 1, 2)
	got := MergeOr(a, b)
	assert.True(t, got.IsInclude())
	assert.False(t, got.HasExceptions())
}

func TestMergeOrIncludeIncludeSymmetricDifference(t *testing.T) {
	a := New(Include, 1, 2)
	b := New(Include, 2, 3)
	got := MergeOr(a, b)
	mustEqual(t, got, New(Include, 1, 3))
}

func TestMergeOrExcludeExclude(t *testing.T) {
	a := New(Exclude, 1)
	b := New(Exclude, 2)
	got := MergeOr(a, b)
	mustEqual(t, got, New(Exclude, 1, 2))
}

func TestMergeOrIncludeExclude(t *testing.T) {
	a := New(Include, 1)
	b := New(Exclude, 1, 2)
	got := MergeOr(a, b)
	mustEqual(t, got, New(Include, 2))
}

func TestNegateInvolution(t *testing.T) {
	for _, c := range []Conclusion{IncludeAll(), ExcludeAll(), New(Include, 1, 2), New(Exclude, 5)} {
		mustEqual(t, Negate(Negate(c)), c)
	}
}

func TestIncludeExcludeDuality(t *testing.T) {
	for _, c := range []Conclusion{IncludeAll(), ExcludeAll(), New(Include, 1, 2), New(Exclude, 5)} {
		and := MergeAnd(c, Negate(c))
		assert.True(t, and.IsEmptyExclude() || (and.IsExclude() && and.HasExceptions()))

		or := MergeOr(c, Negate(c))
		assert.True(t, or.IsInclude())
	}
}

func TestMembershipConsistency(t *testing.T) {
	cases := []Conclusion{IncludeAll(), ExcludeAll(), New(Include, 1, 2), New(Exclude, 5, 9)}
	for _, c := range cases {
		for _, ts := range []int64{1, 2, 5, 9, 100} {
			assert.Equal(t, c.IncludeOccurrence(ts), !c.ExcludeOccurrence(ts))
		}
	}
}

func TestInsertRemoveExceptionNormalizes(t *testing.T) {
	c := ExcludeAll()
	c.InsertException(10)
	assert.True(t, c.HasExceptions())
	c.RemoveException(10)
	assert.False(t, c.HasExceptions())
	assert.True(t, c.IsEmptyExclude())
}

func TestMinMaxExceptions(t *testing.T) {
	c := New(Exclude, 5, 1, 9)
	min, max, ok := c.MinMaxExceptions()
	require.True(t, ok)
	assert.Equal(t, int64(1), min)
	assert.Equal(t, int64(9), max)

	_, _, ok = IncludeAll().MinMaxExceptions()
	assert.False(t, ok)
}
