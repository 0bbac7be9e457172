package where

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyp0633/calindex/conclusion"
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
)

type simpleAccessor struct {
	byTerm map[string]map[string]conclusion.Conclusion
}

func (s simpleAccessor) Categories(term string) map[string]conclusion.Conclusion   { return s.byTerm[term] }
func (s simpleAccessor) LocationType(term string) map[string]conclusion.Conclusion { return s.byTerm[term] }
func (s simpleAccessor) RelatedTo(key event.RelatedToKey) map[string]conclusion.Conclusion {
	return s.byTerm[key.RelType+":"+key.UID]
}
func (s simpleAccessor) Geo(point geo.Point, distance geo.Distance) map[string]conclusion.Conclusion {
	return nil
}
func (s simpleAccessor) Class(term string) map[string]conclusion.Conclusion { return s.byTerm[term] }
func (s simpleAccessor) UID(uid string) map[string]conclusion.Conclusion    { return s.byTerm[uid] }

func TestOperatorAndMissingUIDDefaultsToExclude(t *testing.T) {
	accessor := simpleAccessor{byTerm: map[string]map[string]conclusion.Conclusion{
		"A": {"x": conclusion.IncludeAll(), "y": conclusion.IncludeAll()},
		"B": {"x": conclusion.IncludeAll()},
	}}

	op := Operator{L: Property{Kind: Categories, Term: "A"}, R: Property{Kind: Categories, Term: "B"}, Op: And}
	result := op.Eval(accessor)

	x, ok := result["x"]
	assert.True(t, ok)
	assert.True(t, x.IsInclude())

	y, ok := result["y"]
	assert.True(t, ok)
	assert.True(t, y.IsExclude())
}

func TestOperatorOr(t *testing.T) {
	accessor := simpleAccessor{byTerm: map[string]map[string]conclusion.Conclusion{
		"A": {"x": conclusion.IncludeAll()},
		"B": {"y": conclusion.IncludeAll()},
	}}

	op := Operator{L: Property{Kind: Categories, Term: "A"}, R: Property{Kind: Categories, Term: "B"}, Op: Or}
	result := op.Eval(accessor)

	assert.True(t, result["x"].IsInclude())
	assert.True(t, result["y"].IsInclude())
}

func TestGroupTransparent(t *testing.T) {
	accessor := simpleAccessor{byTerm: map[string]map[string]conclusion.Conclusion{
		"A": {"x": conclusion.IncludeAll()},
	}}
	leaf := Property{Kind: Categories, Term: "A"}
	grp := Group{Inner: leaf}

	assert.Equal(t, leaf.Eval(accessor), grp.Eval(accessor))
}

func TestNestedGroupsS3Shape(t *testing.T) {
	accessor := simpleAccessor{byTerm: map[string]map[string]conclusion.Conclusion{
		"PARENT:P": {"ev1": conclusion.IncludeAll()},
		"A":        {"ev2": conclusion.IncludeAll()},
		"B":        {"ev1": conclusion.IncludeAll(), "ev3": conclusion.IncludeAll()},
		"CHILD:C":  {"ev1": conclusion.IncludeAll()},
	}}

	leftGroup := Group{Inner: Operator{
		L: Property{Kind: RelatedTo, RelKey: event.RelatedToKey{RelType: "PARENT", UID: "P"}},
		R: Operator{L: Property{Kind: Categories, Term: "A"}, R: Property{Kind: Geo}, Op: Or},
		Op: Or,
	}}
	rightGroup := Group{Inner: Operator{
		L:  Property{Kind: Categories, Term: "B"},
		R:  Property{Kind: RelatedTo, RelKey: event.RelatedToKey{RelType: "CHILD", UID: "C"}},
		Op: Or,
	}}

	root := Operator{L: leftGroup, R: rightGroup, Op: And}
	result := root.Eval(accessor)

	assert.True(t, result["ev1"].IsInclude())
}
