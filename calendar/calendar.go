// Package calendar implements the Calendar aggregate: a set of events
// plus the five per-calendar inverted indexes kept in sync via
// per-event-index diffs.
package calendar

import (
	"github.com/cyp0633/calindex/conclusion"
	"github.com/cyp0633/calindex/config"
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/index"
	"github.com/cyp0633/calindex/internal/calerr"
	"github.com/cyp0633/calindex/internal/obs"
	"github.com/cyp0633/calindex/recurrence"
	"github.com/cyp0633/calindex/where"
)

var log = obs.For("calendar")

// Calendar owns its events map and the five per-calendar indexes, plus
// the configuration it was built with and the shared rule-set cache its
// events validate through.
type Calendar struct {
	UID    string
	events map[string]*event.Event

	cfg       config.Config
	ruleCache *recurrence.Cache

	categories   *index.CalendarIndex[string]
	relatedTo    *index.CalendarIndex[event.RelatedToKey]
	geoIdx       *index.GeoIndex
	class        *index.CalendarIndex[string]
	locationType *index.CalendarIndex[string]
}

// New builds an empty Calendar with the default configuration.
func New(uid string) *Calendar {
	return NewWithConfig(uid, config.Default())
}

// NewWithConfig builds an empty Calendar whose shared rule-set cache is
// built from cfg.Cache; cfg itself is kept and returned by Config. Query
// limits and iterator caps are taken from the query.Executor's own
// configuration, not from the calendar's.
func NewWithConfig(uid string, cfg config.Config) *Calendar {
	return &Calendar{
		UID:          uid,
		events:       make(map[string]*event.Event),
		cfg:          cfg,
		ruleCache:    recurrence.NewCache(cfg.Cache),
		categories:   index.NewCalendarIndex[string](),
		relatedTo:    index.NewCalendarIndex[event.RelatedToKey](),
		geoIdx:       index.NewGeoIndex(),
		class:        index.NewCalendarIndex[string](),
		locationType: index.NewCalendarIndex[string](),
	}
}

// NewEvent builds an empty event bound to this calendar's shared
// rule-set cache; the caller ingests properties, validates, and upserts
// it when ready.
func (c *Calendar) NewEvent(uid string) *event.Event {
	return event.NewEventWithCache(uid, c.ruleCache)
}

// Config returns the configuration this calendar was built with.
func (c *Calendar) Config() config.Config {
	return c.cfg
}

// Event returns the event stored under uid.
func (c *Calendar) Event(uid string) (*event.Event, bool) {
	e, ok := c.events[uid]
	return e, ok
}

// AllUIDs returns every event uid currently stored.
func (c *Calendar) AllUIDs() []string {
	out := make([]string, 0, len(c.events))
	for uid := range c.events {
		out = append(out, uid)
	}
	return out
}

// UpsertEvent inserts or replaces e, diffing its per-event indexes against
// the previous version (if any) and applying the bounded change set to
// the per-calendar indexes.
func (c *Calendar) UpsertEvent(e *event.Event) {
	scoped := obs.WithEvent(obs.WithCalendar(log, c.UID), e.UID)
	scoped.Debug().Msg("upserting event")

	old, hadOld := c.events[e.UID]
	c.events[e.UID] = e

	var oldCategories *index.EventIndex[string]
	var oldRelatedTo *index.EventIndex[event.RelatedToKey]
	var oldGeo *index.EventIndex[geo.Point]
	var oldClass *index.EventIndex[string]
	var oldLocationType *index.EventIndex[string]
	if hadOld {
		oldCategories = old.CategoriesIndex()
		oldRelatedTo = old.RelatedToIndex()
		oldGeo = old.GeoIndex()
		oldClass = old.ClassIndex()
		oldLocationType = old.LocationTypeIndex()
	} else {
		oldCategories = index.NewEventIndex[string](nil)
		oldRelatedTo = index.NewEventIndex[event.RelatedToKey](nil)
		oldGeo = index.NewEventIndex[geo.Point](nil)
		oldClass = index.NewEventIndex[string](nil)
		oldLocationType = index.NewEventIndex[string](nil)
	}

	applyStringDiff(c.categories, e.UID, oldCategories, e.CategoriesIndex())
	applyRelatedToDiff(c.relatedTo, e.UID, oldRelatedTo, e.RelatedToIndex())
	applyGeoDiff(c.geoIdx, e.UID, oldGeo, e.GeoIndex())
	applyStringDiff(c.class, e.UID, oldClass, e.ClassIndex())
	applyStringDiff(c.locationType, e.UID, oldLocationType, e.LocationTypeIndex())
}

// RemoveEvent deletes uid and purges it from every per-calendar index.
func (c *Calendar) RemoveEvent(uid string) error {
	scoped := obs.WithEvent(obs.WithCalendar(log, c.UID), uid)
	scoped.Debug().Msg("removing event")

	e, ok := c.events[uid]
	if !ok {
		scoped.Warn().Str("error_kind", string(calerr.NonExistentEvent)).Msg("remove of non-existent event")
		return calerr.New(calerr.NonExistentEvent, "no event with given uid")
	}

	applyStringDiff(c.categories, uid, e.CategoriesIndex(), index.NewEventIndex[string](nil))
	applyRelatedToDiff(c.relatedTo, uid, e.RelatedToIndex(), index.NewEventIndex[event.RelatedToKey](nil))
	applyGeoDiff(c.geoIdx, uid, e.GeoIndex(), index.NewEventIndex[geo.Point](nil))
	applyStringDiff(c.class, uid, e.ClassIndex(), index.NewEventIndex[string](nil))
	applyStringDiff(c.locationType, uid, e.LocationTypeIndex(), index.NewEventIndex[string](nil))

	delete(c.events, uid)
	return nil
}

func applyStringDiff(ci *index.CalendarIndex[string], uid string, oldIdx, newIdx *index.EventIndex[string]) {
	d := index.DiffEventIndex(oldIdx, newIdx)
	for _, term := range d.Removed {
		ci.Remove(uid, term)
	}
	for _, term := range d.Updated {
		c, _ := newIdx.Get(term)
		ci.Insert(uid, term, c)
	}
	for _, term := range d.Added {
		c, _ := newIdx.Get(term)
		ci.Insert(uid, term, c)
	}
}

func applyRelatedToDiff(ci *index.CalendarIndex[event.RelatedToKey], uid string, oldIdx, newIdx *index.EventIndex[event.RelatedToKey]) {
	d := index.DiffEventIndex(oldIdx, newIdx)
	for _, term := range d.Removed {
		ci.Remove(uid, term)
	}
	for _, term := range append(d.Updated, d.Added...) {
		c, _ := newIdx.Get(term)
		ci.Insert(uid, term, c)
	}
}

// applyGeoDiff mirrors applyStringDiff for the geo dimension, but targets
// the GeoIndex's point-keyed (not term-map-keyed) structure, coalescing
// by GeoPoint equality (geohash).
func applyGeoDiff(gi *index.GeoIndex, uid string, oldIdx, newIdx *index.EventIndex[geo.Point]) {
	d := index.DiffEventIndex(oldIdx, newIdx)
	for _, point := range d.Removed {
		gi.Remove(uid, point)
	}
	for _, point := range append(d.Updated, d.Added...) {
		c, _ := newIdx.Get(point)
		gi.Insert(uid, point, c)
	}
}

// Accessor builds a where.Accessor backed by this calendar's per-calendar
// indexes, filtering every term view to only Include-tagged events.
func (c *Calendar) Accessor() where.Accessor {
	return calendarAccessor{c}
}

// GeoNearest walks the geo index in nearest-neighbor order from point,
// backing the distance-first query ordering.
func (c *Calendar) GeoNearest(point geo.Point) []index.NearestUID {
	return c.geoIdx.NearestOrder(point)
}

type calendarAccessor struct {
	c *Calendar
}

func filterInclude(m map[string]conclusion.Conclusion) map[string]conclusion.Conclusion {
	out := make(map[string]conclusion.Conclusion, len(m))
	for uid, c := range m {
		if c.IsInclude() {
			out[uid] = c
		}
	}
	return out
}

func (a calendarAccessor) Categories(term string) map[string]conclusion.Conclusion {
	return filterInclude(a.c.categories.GetTerm(term))
}

func (a calendarAccessor) LocationType(term string) map[string]conclusion.Conclusion {
	return filterInclude(a.c.locationType.GetTerm(term))
}

func (a calendarAccessor) RelatedTo(key event.RelatedToKey) map[string]conclusion.Conclusion {
	return filterInclude(a.c.relatedTo.GetTerm(key))
}

func (a calendarAccessor) Geo(point geo.Point, distance geo.Distance) map[string]conclusion.Conclusion {
	return filterInclude(a.c.geoIdx.LocateWithinDistance(point, distance))
}

func (a calendarAccessor) Class(term string) map[string]conclusion.Conclusion {
	return filterInclude(a.c.class.GetTerm(term))
}

func (a calendarAccessor) UID(uid string) map[string]conclusion.Conclusion {
	if _, ok := a.c.events[uid]; ok {
		return map[string]conclusion.Conclusion{uid: conclusion.IncludeAll()}
	}
	return map[string]conclusion.Conclusion{}
}
