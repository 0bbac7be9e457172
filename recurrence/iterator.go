package recurrence

import (
	"time"

	"github.com/cyp0633/calindex/conclusion"
)

// BoundKind is the comparison direction of a range Bound.
type BoundKind int

const (
	GreaterThan BoundKind = iota
	GreaterEqualThan
	LessThan
	LessEqualThan
)

// BoundProperty names which instance timestamp a Bound compares against.
type BoundProperty int

const (
	DtStart BoundProperty = iota
	DtEnd
)

// Bound is a single lower- or upper-bound range condition over either an
// instance's start or effective end timestamp.
type Bound struct {
	Kind      BoundKind
	Property  BoundProperty
	Timestamp int64
}

func (b Bound) passes(ts int64) bool {
	switch b.Kind {
	case GreaterThan:
		return ts > b.Timestamp
	case GreaterEqualThan:
		return ts >= b.Timestamp
	case LessThan:
		return ts < b.Timestamp
	default: // LessEqualThan
		return ts <= b.Timestamp
	}
}

// Occurrence is one yielded (dtstart, dtend, override?) triple.
type Occurrence[O any] struct {
	Start       int64
	End         int64
	Override    O
	HasOverride bool
}

// OverrideLookup resolves the override stored at timestamp t, if any.
type OverrideLookup[O any] func(t int64) (O, bool)

// OverrideDuration extracts an override's own duration, if it sets one.
type OverrideDuration[O any] func(O) (int64, bool)

// IteratorConfig holds everything an Iterator needs to pull occurrences
// from a compiled rule-set. MaxOccurrences and MaxTimeSpan are runaway
// backstops independent of the caller's Limit: the iterator ends once it
// has yielded MaxOccurrences items, or once the rule-set produces a
// timestamp more than MaxTimeSpan past DTStart. Zero disables either cap.
type IteratorConfig[O any] struct {
	RuleSet          *CompiledRuleSet
	DTStart          int64
	BaseDuration     int64
	Overrides        OverrideLookup[O]
	OverrideDuration OverrideDuration[O]
	LowerBound       *Bound
	UpperBound       *Bound
	Filter           *conclusion.Conclusion
	Limit            *int
	MaxOccurrences   int
	MaxTimeSpan      time.Duration
}

// Iterator is the pull-based, override-aware, filter-driven occurrence
// stream. Next is idempotent on exhaustion.
type Iterator[O any] struct {
	ruleSet          *CompiledRuleSet
	baseDuration     int64
	overrides        OverrideLookup[O]
	overrideDuration OverrideDuration[O]
	lowerBound       *Bound
	upperBound       *Bound
	filter           *conclusion.Conclusion
	limit            int
	hasLimit         bool
	maxOccurrences   int

	cursor     int64
	ended      bool
	count      int
	hasCap     bool
	capMin     int64
	capMax     int64
	horizon    int64
	hasHorizon bool
}

// NewIterator builds an Iterator from cfg.
func NewIterator[O any](cfg IteratorConfig[O]) *Iterator[O] {
	it := &Iterator[O]{
		ruleSet:          cfg.RuleSet,
		baseDuration:     cfg.BaseDuration,
		overrides:        cfg.Overrides,
		overrideDuration: cfg.OverrideDuration,
		lowerBound:       cfg.LowerBound,
		upperBound:       cfg.UpperBound,
		filter:           cfg.Filter,
		cursor:           cfg.DTStart - 1,
	}
	if cfg.Limit != nil {
		it.limit = *cfg.Limit
		it.hasLimit = true
	}
	it.maxOccurrences = cfg.MaxOccurrences
	if cfg.MaxTimeSpan > 0 {
		it.horizon = cfg.DTStart + int64(cfg.MaxTimeSpan/time.Second)
		it.hasHorizon = true
	}
	if it.filter != nil && it.filter.IsExclude() && it.filter.HasExceptions() {
		it.capMin, it.capMax, it.hasCap = it.filter.MinMaxExceptions()
		// The only timestamps such a filter can admit are its exceptions,
		// so skip the rule-set straight to just below the smallest one.
		if it.hasCap && it.capMin-1 > it.cursor {
			it.cursor = it.capMin - 1
		}
	}
	return it
}

func (it *Iterator[O]) hasReachedEnd(t int64) bool {
	if it.upperBound != nil {
		switch it.upperBound.Kind {
		case LessThan:
			if t > it.upperBound.Timestamp {
				return true
			}
		case LessEqualThan:
			if it.upperBound.Property == DtStart {
				if t >= it.upperBound.Timestamp {
					return true
				}
			} else if t > it.upperBound.Timestamp {
				return true
			}
		}
	}
	if it.hasCap && t >= it.capMax {
		return true
	}
	return false
}

func (it *Iterator[O]) preFiltersReject(ts int64) bool {
	if it.filter != nil && it.filter.ExcludeOccurrence(ts) {
		return true
	}
	if it.lowerBound != nil && it.lowerBound.Property == DtStart && !it.lowerBound.passes(ts) {
		return true
	}
	if it.upperBound != nil && it.upperBound.Property == DtStart && !it.upperBound.passes(ts) {
		return true
	}
	return false
}

func (it *Iterator[O]) postFiltersReject(dtend int64) bool {
	if it.lowerBound != nil && it.lowerBound.Property == DtEnd && !it.lowerBound.passes(dtend) {
		return true
	}
	if it.upperBound != nil && it.upperBound.Property == DtEnd && !it.upperBound.passes(dtend) {
		return true
	}
	return false
}

// Next yields the next passing occurrence, or false once the iterator
// has ended.
func (it *Iterator[O]) Next() (Occurrence[O], bool) {
	if it.ended {
		return Occurrence[O]{}, false
	}
	if it.hasLimit && it.count >= it.limit {
		it.ended = true
		return Occurrence[O]{}, false
	}
	if it.maxOccurrences > 0 && it.count >= it.maxOccurrences {
		it.ended = true
		return Occurrence[O]{}, false
	}

	for {
		ts, found := it.ruleSet.Next(it.cursor)
		if !found {
			it.ended = true
			return Occurrence[O]{}, false
		}
		if it.hasHorizon && ts > it.horizon {
			it.ended = true
			return Occurrence[O]{}, false
		}
		it.cursor = ts

		if it.preFiltersReject(ts) {
			if it.hasReachedEnd(ts) {
				it.ended = true
				return Occurrence[O]{}, false
			}
			continue
		}

		override, hasOverride := it.lookupOverride(ts)
		duration := it.baseDuration
		if hasOverride {
			if d, ok := it.resolveOverrideDuration(override); ok {
				duration = d
			}
		}
		dtend := ts + duration

		if it.postFiltersReject(dtend) {
			if it.hasReachedEnd(dtend) {
				it.ended = true
				return Occurrence[O]{}, false
			}
			continue
		}

		it.count++
		occ := Occurrence[O]{Start: ts, End: dtend, Override: override, HasOverride: hasOverride}
		if it.hasLimit && it.count >= it.limit {
			it.ended = true
		}
		if it.maxOccurrences > 0 && it.count >= it.maxOccurrences {
			it.ended = true
		}
		return occ, true
	}
}

func (it *Iterator[O]) lookupOverride(ts int64) (O, bool) {
	if it.overrides == nil {
		var zero O
		return zero, false
	}
	return it.overrides(ts)
}

func (it *Iterator[O]) resolveOverrideDuration(o O) (int64, bool) {
	if it.overrideDuration == nil {
		return 0, false
	}
	return it.overrideDuration(o)
}
