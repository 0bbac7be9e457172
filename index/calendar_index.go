package index

import "github.com/cyp0633/calindex/conclusion"

// CalendarIndex is the per-calendar inverted index for one dimension:
// term → (event-uid → Conclusion).
type CalendarIndex[K comparable] struct {
	terms map[K]map[string]conclusion.Conclusion
}

// NewCalendarIndex builds an empty calendar index.
func NewCalendarIndex[K comparable]() *CalendarIndex[K] {
	return &CalendarIndex[K]{terms: make(map[K]map[string]conclusion.Conclusion)}
}

// Insert ensures term's entry exists and sets events[uid] = conclusion.
func (idx *CalendarIndex[K]) Insert(uid string, term K, c conclusion.Conclusion) {
	events, ok := idx.terms[term]
	if !ok {
		events = make(map[string]conclusion.Conclusion)
		idx.terms[term] = events
	}
	events[uid] = c
}

// Remove removes uid's entry under term, purging the term entirely once
// empty.
func (idx *CalendarIndex[K]) Remove(uid string, term K) {
	events, ok := idx.terms[term]
	if !ok {
		return
	}
	delete(events, uid)
	if len(events) == 0 {
		delete(idx.terms, term)
	}
}

// GetTerm returns a snapshot of the event-uid → Conclusion view for
// term.
func (idx *CalendarIndex[K]) GetTerm(term K) map[string]conclusion.Conclusion {
	events, ok := idx.terms[term]
	if !ok {
		return map[string]conclusion.Conclusion{}
	}
	out := make(map[string]conclusion.Conclusion, len(events))
	for uid, c := range events {
		out[uid] = c
	}
	return out
}

// GetNotTerm returns the virtual event-set for "not term": every uid not
// indexed under term defaults to Include(absent); every uid indexed
// under term contributes the negation of its conclusion, dropped
// entirely when that negation is the empty-exclude tombstone.
func (idx *CalendarIndex[K]) GetNotTerm(term K, allUIDs []string) map[string]conclusion.Conclusion {
	events := idx.terms[term]
	result := make(map[string]conclusion.Conclusion, len(allUIDs))

	indexed := make(map[string]struct{}, len(events))
	for uid, c := range events {
		indexed[uid] = struct{}{}
		inv := conclusion.Negate(c)
		if inv.IsEmptyExclude() {
			continue
		}
		result[uid] = inv
	}

	for _, uid := range allUIDs {
		if _, ok := indexed[uid]; ok {
			continue
		}
		result[uid] = conclusion.IncludeAll()
	}

	return result
}

// Terms returns the set of currently-populated terms.
func (idx *CalendarIndex[K]) Terms() []K {
	out := make([]K, 0, len(idx.terms))
	for term := range idx.terms {
		out = append(out, term)
	}
	return out
}
