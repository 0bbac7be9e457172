// Package event implements the Event aggregate: schedule, indexed and
// passive properties, occurrence overrides, and the five per-event
// inverted indexes reconciling base terms against overrides.
package event

import (
	"sort"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/index"
	"github.com/cyp0633/calindex/internal/calerr"
)

// RelatedToKey is the (reltype, uid) term for the RELATED-TO dimension.
type RelatedToKey struct {
	RelType string
	UID     string
}

// ScheduleProperties holds the last-writer-wins schedule slots plus the
// accumulated RDATE/EXDATE sets.
type ScheduleProperties struct {
	DTStart  int64
	HasEnd   bool
	DTEnd    int64
	Duration int64
	HasDur   bool
	RRule    string
	ExRule   string
	RDates   map[int64]struct{}
	ExDates  map[int64]struct{}
}

// Ingest routes one schedule property into its slot: RRULE/EXRULE/
// DTSTART/DTEND/DURATION are last-writer-wins, RDATE/EXDATE accumulate.
// Handing it anything else is a caller error surfaced as
// UnexpectedPropertyForSlot.
func (s *ScheduleProperties) Ingest(prop *ical.Prop) error {
	switch prop.Name {
	case "DTSTART":
		ts, err := parseDateTime(prop)
		if err != nil {
			return err
		}
		s.DTStart = ts
	case "DTEND":
		ts, err := parseDateTime(prop)
		if err != nil {
			return err
		}
		s.DTEnd = ts
		s.HasEnd = true
		s.HasDur = false
	case "DURATION":
		d, err := parseISODuration(prop.Value)
		if err != nil {
			return err
		}
		s.Duration = d
		s.HasDur = true
		s.HasEnd = false
	case "RRULE":
		s.RRule = prop.Value
	case "EXRULE":
		s.ExRule = prop.Value
	case "RDATE":
		ts, err := parseDateTime(prop)
		if err != nil {
			return err
		}
		s.RDates[ts] = struct{}{}
	case "EXDATE":
		ts, err := parseDateTime(prop)
		if err != nil {
			return err
		}
		s.ExDates[ts] = struct{}{}
	default:
		return calerr.New(calerr.UnexpectedPropertyForSlot, prop.Name+" is not a schedule property")
	}
	return nil
}

// EffectiveDuration returns the schedule's own duration: DTEnd-DTStart if
// DTEnd is set, else the parsed DURATION, else zero.
func (s ScheduleProperties) EffectiveDuration() int64 {
	if s.HasEnd {
		return s.DTEnd - s.DTStart
	}
	if s.HasDur {
		return s.Duration
	}
	return 0
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RDatesSorted returns the RDATE set as a sorted slice.
func (s ScheduleProperties) RDatesSorted() []int64 { return sortedKeys(s.RDates) }

// ExDatesSorted returns the EXDATE set as a sorted slice.
func (s ScheduleProperties) ExDatesSorted() []int64 { return sortedKeys(s.ExDates) }

// IndexedProperties holds the indexable dimensions: CATEGORIES and
// RELATED-TO accumulate, CLASS/GEO/LOCATION-TYPE are last-writer-wins
// single values.
type IndexedProperties struct {
	Categories   map[string]struct{}
	RelatedTo    map[RelatedToKey]struct{}
	Geo          *geo.Point
	Class        string
	LocationType string
}

func newIndexedProperties() IndexedProperties {
	return IndexedProperties{
		Categories: make(map[string]struct{}),
		RelatedTo:  make(map[RelatedToKey]struct{}),
	}
}

// PassiveProperty is a single retained free-form property line,
// parameters preserved for faithful render round-tripping.
type PassiveProperty struct {
	Name   string
	Params ical.Params
	Value  string
}

// dimensionIndexes bundles the five per-event inverted indexes, one per
// indexable dimension.
type dimensionIndexes struct {
	categories   *index.EventIndex[string]
	relatedTo    *index.EventIndex[RelatedToKey]
	geo          *index.EventIndex[geo.Point]
	class        *index.EventIndex[string]
	locationType *index.EventIndex[string]
}
