package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calindex/config"
	"github.com/cyp0633/calindex/where"
)

func TestWhereGroupParsing(t *testing.T) {
	q, err := Parse(`(X-RELATED-TO;RELTYPE=PARENT:P OR X-CATEGORIES:A OR X-GEO;DIST=1.5KM:48.85299;2.36885) AND (X-CATEGORIES:B OR X-RELATED-TO;RELTYPE=CHILD:C)`)
	require.NoError(t, err)
	require.NotNil(t, q.Where)

	root, ok := q.Where.(where.Operator)
	require.True(t, ok)
	assert.Equal(t, where.And, root.Op)

	leftGroup, ok := root.L.(where.Group)
	require.True(t, ok)
	leftLeaves := countLeaves(t, leftGroup.Inner, where.Or)
	assert.Equal(t, 3, leftLeaves)

	rightGroup, ok := root.R.(where.Group)
	require.True(t, ok)
	rightLeaves := countLeaves(t, rightGroup.Inner, where.Or)
	assert.Equal(t, 2, rightLeaves)
}

// countLeaves flattens a tree of Operator nodes all joined by op, counting
// the leaf Property nodes.
func countLeaves(t *testing.T, node where.Node, op where.LogicalOp) int {
	t.Helper()
	switch n := node.(type) {
	case where.Operator:
		require.Equal(t, op, n.Op)
		return countLeaves(t, n.L, op) + countLeaves(t, n.R, op)
	case where.Property:
		return 1
	default:
		t.Fatalf("unexpected node type %T", node)
		return 0
	}
}

func TestParseControlLines(t *testing.T) {
	q, err := Parse("X-LIMIT:10\nX-OFFSET:5\nX-DISTINCT:UID\nX-TZID:Europe/London\nX-ORDER-BY:GEO-DIST-DTSTART;48.85;2.35")
	require.NoError(t, err)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)
	assert.True(t, q.DistinctUIDs)
	assert.Equal(t, "Europe/London", q.InTimezone)
	assert.Equal(t, OrderGeoDistThenDtStart, q.Ordering)
}

func TestParseFromUntilBounds(t *testing.T) {
	q, err := Parse("X-FROM;PROP=DTSTART;OP=GTE:20240101T000000Z\nX-UNTIL;PROP=DTEND;OP=LT:20241231T000000Z")
	require.NoError(t, err)
	require.NotNil(t, q.LowerBound)
	require.NotNil(t, q.UpperBound)
}

func TestParseDefaultLimit(t *testing.T) {
	q, err := Parse("X-UID:evt-1")
	require.NoError(t, err)
	assert.Equal(t, config.Default().DefaultLimit, q.Limit)
}
