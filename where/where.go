// Package where implements the where-expression tree:
// Property/Operator/Group nodes reduced with Indexed-Conclusion algebra
// over per-calendar-inverted-index term views.
package where

import (
	"github.com/cyp0633/calindex/conclusion"
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
)

// PropertyKind distinguishes the leaf predicate kinds.
type PropertyKind int

const (
	Categories PropertyKind = iota
	LocationType
	RelatedTo
	Geo
	Class
	UID
)

// LogicalOp is the reduction applied by an Operator node.
type LogicalOp int

const (
	And LogicalOp = iota
	Or
)

// Node is a where-expression tree node.
type Node interface {
	Eval(accessor Accessor) map[string]conclusion.Conclusion
}

// Accessor is the query-index-accessor: for event queries it
// returns a per-calendar-inverted-index-term view filtered to only
// Include-tagged events, since event queries care about base-event
// membership, not per-instance exceptions.
type Accessor interface {
	Categories(term string) map[string]conclusion.Conclusion
	LocationType(term string) map[string]conclusion.Conclusion
	RelatedTo(key event.RelatedToKey) map[string]conclusion.Conclusion
	Geo(point geo.Point, distance geo.Distance) map[string]conclusion.Conclusion
	Class(term string) map[string]conclusion.Conclusion
	UID(uid string) map[string]conclusion.Conclusion
}

// Property is a leaf predicate node.
type Property struct {
	Kind PropertyKind

	Term string // Categories, LocationType, Class

	RelKey event.RelatedToKey // RelatedTo

	GeoPoint    geo.Point    // Geo
	GeoDistance geo.Distance // Geo

	UIDValue string // UID
}

// Eval resolves the leaf predicate against accessor.
func (p Property) Eval(accessor Accessor) map[string]conclusion.Conclusion {
	switch p.Kind {
	case Categories:
		return accessor.Categories(p.Term)
	case LocationType:
		return accessor.LocationType(p.Term)
	case RelatedTo:
		return accessor.RelatedTo(p.RelKey)
	case Geo:
		return accessor.Geo(p.GeoPoint, p.GeoDistance)
	case Class:
		return accessor.Class(p.Term)
	case UID:
		return accessor.UID(p.UIDValue)
	default:
		return map[string]conclusion.Conclusion{}
	}
}

// Operator reduces its two children's event-uid maps with merge_and or
// merge_or.
type Operator struct {
	L, R Node
	Op   LogicalOp
}

// Eval reduces L and R.
func (o Operator) Eval(accessor Accessor) map[string]conclusion.Conclusion {
	left := o.L.Eval(accessor)
	right := o.R.Eval(accessor)
	if o.Op == And {
		return reduce(conclusion.MergeAnd, left, right)
	}
	return reduce(conclusion.MergeOr, left, right)
}

// Group is transparent: it evaluates to its inner node's result.
type Group struct {
	Inner Node
}

// Eval delegates to the wrapped node.
func (g Group) Eval(accessor Accessor) map[string]conclusion.Conclusion {
	return g.Inner.Eval(accessor)
}

// reduce merges two event-uid → Conclusion maps, treating a uid absent
// from one side as Exclude(absent), the neutral "not a member under this
// branch" default for both AND and OR.
func reduce(merge func(a, b conclusion.Conclusion) conclusion.Conclusion, left, right map[string]conclusion.Conclusion) map[string]conclusion.Conclusion {
	out := make(map[string]conclusion.Conclusion, len(left)+len(right))
	seen := make(map[string]struct{}, len(left)+len(right))
	for uid := range left {
		seen[uid] = struct{}{}
	}
	for uid := range right {
		seen[uid] = struct{}{}
	}
	for uid := range seen {
		l, lok := left[uid]
		if !lok {
			l = conclusion.ExcludeAll()
		}
		r, rok := right[uid]
		if !rok {
			r = conclusion.ExcludeAll()
		}
		out[uid] = merge(l, r)
	}
	return out
}
