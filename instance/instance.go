// Package instance materializes a concrete event occurrence from an Event
// and its optional Override at a timestamp.
package instance

import (
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
)

// Instance is a fully materialized (event ∘ override) at a specific
// timestamp.
type Instance struct {
	UID          string
	RecurrenceID int64
	DTStart      int64
	DTEnd        int64
	Duration     int64

	Geo          *geo.Point
	Categories   map[string]struct{}
	RelatedTo    map[event.RelatedToKey]struct{}
	LocationType string
	Class        string

	Passive []event.PassiveProperty
}

// Materialize merges e's base properties with override (if present) into
// a concrete instance spanning dtstart/dtend. Each indexed dimension the
// override sets replaces the base value wholesale; passive properties
// merge by name.
func Materialize(e *event.Event, dtstart, dtend int64, override *event.Override) Instance {
	inst := Instance{
		UID:          e.UID,
		RecurrenceID: dtstart,
		DTStart:      dtstart,
		DTEnd:        dtend,
		Duration:     dtend - dtstart,

		Geo:          e.Indexed.Geo,
		Categories:   e.Indexed.Categories,
		RelatedTo:    e.Indexed.RelatedTo,
		LocationType: e.Indexed.LocationType,
		Class:        e.Indexed.Class,
		Passive:      e.Passive,
	}

	if override == nil {
		return inst
	}

	if override.GeoSet {
		inst.Geo = override.Geo
	}
	if override.CategoriesSet {
		inst.Categories = override.Categories
	}
	if override.RelatedToSet {
		inst.RelatedTo = override.RelatedTo
	}
	if override.LocationTypeSet {
		inst.LocationType = override.LocationType
	}
	if override.ClassSet {
		inst.Class = override.Class
	}
	if override.PassiveSet {
		inst.Passive = mergePassive(e.Passive, override.Passive)
	}

	return inst
}

// mergePassive groups both slices by property name; for each name present
// in overrides, the override's set replaces the base's entirely;
// un-overridden names carry through from base.
func mergePassive(base, overrides []event.PassiveProperty) []event.PassiveProperty {
	overridden := make(map[string]struct{}, len(overrides))
	for _, p := range overrides {
		overridden[p.Name] = struct{}{}
	}

	out := make([]event.PassiveProperty, 0, len(base)+len(overrides))
	for _, p := range base {
		if _, ok := overridden[p.Name]; ok {
			continue
		}
		out = append(out, p)
	}
	out = append(out, overrides...)
	return out
}

// Less orders instances by (dtstart, dtend) lexicographically.
func Less(a, b Instance) bool {
	if a.DTStart != b.DTStart {
		return a.DTStart < b.DTStart
	}
	return a.DTEnd < b.DTEnd
}
