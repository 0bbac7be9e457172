// Package index implements the per-event and per-calendar inverted
// indexes and the geospatial calendar index.
package index

import (
	"github.com/cyp0633/calindex/conclusion"
)

// EventIndex is the per-event inverted index for one dimension of one
// event: term → Conclusion, reconciling the base event against its
// occurrence overrides.
type EventIndex[K comparable] struct {
	terms map[K]conclusion.Conclusion
}

// NewEventIndex seeds an index with Include(absent) for every base term.
func NewEventIndex[K comparable](baseTerms []K) *EventIndex[K] {
	idx := &EventIndex[K]{terms: make(map[K]conclusion.Conclusion, len(baseTerms))}
	for _, term := range baseTerms {
		idx.terms[term] = conclusion.IncludeAll()
	}
	return idx
}

// Terms returns a snapshot copy of the term map.
func (idx *EventIndex[K]) Terms() map[K]conclusion.Conclusion {
	out := make(map[K]conclusion.Conclusion, len(idx.terms))
	for k, v := range idx.terms {
		out[k] = v
	}
	return out
}

// Get returns the Conclusion for term, and whether it has an entry at
// all (absent means Exclude(absent) by default: not a base term, never
// overridden in).
func (idx *EventIndex[K]) Get(term K) (conclusion.Conclusion, bool) {
	c, ok := idx.terms[term]
	return c, ok
}

// Clone deep-copies idx.
func (idx *EventIndex[K]) Clone() *EventIndex[K] {
	out := &EventIndex[K]{terms: make(map[K]conclusion.Conclusion, len(idx.terms))}
	for k, v := range idx.terms {
		out.terms[k] = v.Clone()
	}
	return out
}

// Equal reports structural equality between two event indexes.
func (idx *EventIndex[K]) Equal(other *EventIndex[K]) bool {
	if len(idx.terms) != len(other.terms) {
		return false
	}
	for k, v := range idx.terms {
		ov, ok := other.terms[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// InsertOverride applies an override at timestamp t whose term set for
// this dimension is overrideTerms. Membership of a
// term at t is toggled (via an exception insertion) whenever the
// override's stated membership disagrees with the index's currently
// computed membership at t; this is the general form of "exception for
// a dropped base term" / "Exclude({t,...}) for an added term".
func (idx *EventIndex[K]) InsertOverride(t int64, overrideTerms map[K]struct{}) {
	seen := make(map[K]struct{}, len(idx.terms)+len(overrideTerms))
	for term := range idx.terms {
		seen[term] = struct{}{}
	}
	for term := range overrideTerms {
		seen[term] = struct{}{}
	}

	for term := range seen {
		current, has := idx.terms[term]
		if !has {
			current = conclusion.ExcludeAll()
		}
		_, inOverride := overrideTerms[term]
		currentlyIncluded := current.IncludeOccurrence(t)
		if currentlyIncluded != inOverride {
			current.InsertException(t)
			idx.terms[term] = current
		} else if has {
			idx.terms[term] = current
		}
	}
}

// RemoveOverride removes timestamp t from every entry's exception set,
// purging entries that degenerate to Exclude(absent).
func (idx *EventIndex[K]) RemoveOverride(t int64) {
	for term, c := range idx.terms {
		c.RemoveException(t)
		if c.IsEmptyExclude() {
			delete(idx.terms, term)
		} else {
			idx.terms[term] = c
		}
	}
}

// Build constructs a full per-event index for one dimension from the
// base event's terms and its overrides (applied in ascending timestamp
// order).
func Build[K comparable](baseTerms []K, overridesInOrder []OverrideTermSet[K]) *EventIndex[K] {
	idx := NewEventIndex(baseTerms)
	for _, o := range overridesInOrder {
		idx.InsertOverride(o.Timestamp, o.Terms)
	}
	return idx
}

// OverrideTermSet is one override's contribution to a per-event index
// build: the timestamp it applies at, and the term set it specifies for
// the dimension (nil/empty means "this dimension is cleared at t").
type OverrideTermSet[K comparable] struct {
	Timestamp int64
	Terms     map[K]struct{}
}

// Diff is the bounded change set between two EventIndex snapshots for
// the same event and dimension, driving calendar-index updates.
type Diff[K comparable] struct {
	Removed    []K
	Updated    []K
	Added      []K
	Maintained []K
}

// DiffEventIndex computes the four-way membership diff between an old
// and a new per-event index.
func DiffEventIndex[K comparable](oldIdx, newIdx *EventIndex[K]) Diff[K] {
	var d Diff[K]
	for term, oldC := range oldIdx.terms {
		newC, ok := newIdx.terms[term]
		if !ok {
			d.Removed = append(d.Removed, term)
			continue
		}
		if oldC.Equal(newC) {
			d.Maintained = append(d.Maintained, term)
		} else {
			d.Updated = append(d.Updated, term)
		}
	}
	for term := range newIdx.terms {
		if _, ok := oldIdx.terms[term]; !ok {
			d.Added = append(d.Added, term)
		}
	}
	return d
}
