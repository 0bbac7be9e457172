package event

import (
	"errors"
	"sort"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/index"
	"github.com/cyp0633/calindex/internal/calerr"
	"github.com/cyp0633/calindex/internal/obs"
	"github.com/cyp0633/calindex/recurrence"
)

var log = obs.For("event")

// Event is the calendar-event aggregate: a base schedule plus indexed and
// passive properties, a map of timestamped occurrence overrides, and the
// five per-event inverted indexes reconciling the two.
type Event struct {
	UID          string
	LastModified int64

	Schedule ScheduleProperties
	Indexed  IndexedProperties
	Passive  []PassiveProperty

	overrides map[int64]*Override

	idx dimensionIndexes

	ruleSet *recurrence.CompiledRuleSet
	cache   *recurrence.Cache
}

// NewEvent builds an empty Event for uid, ready for property ingestion,
// with its own default-sized rule-set cache. Events that belong to a
// calendar should be built through Calendar.NewEvent instead, which
// shares one configured cache across the whole calendar.
func NewEvent(uid string) *Event {
	return NewEventWithCache(uid, recurrence.NewCache(recurrence.DefaultCacheConfig))
}

// NewEventWithCache builds an empty Event whose Validate compiles through
// the given shared rule-set cache.
func NewEventWithCache(uid string, cache *recurrence.Cache) *Event {
	e := &Event{
		UID:       uid,
		Schedule:  ScheduleProperties{RDates: make(map[int64]struct{}), ExDates: make(map[int64]struct{})},
		Indexed:   newIndexedProperties(),
		overrides: make(map[int64]*Override),
		cache:     cache,
	}
	e.rebuildIndexes()
	return e
}

// IngestProperty routes a single parsed property into the appropriate
// slot: schedule properties to ScheduleProperties, indexed dimensions to
// IndexedProperties, everything else to the passive set.
func (e *Event) IngestProperty(prop *ical.Prop) error {
	switch prop.Name {
	case "UID":
		if prop.Value != "" && prop.Value != e.UID {
			return calerr.New(calerr.UIDMismatch, "property UID "+prop.Value+" disagrees with event UID "+e.UID)
		}
		return nil

	case "LAST-MODIFIED":
		ts, err := parseDateTime(prop)
		if err != nil {
			return err
		}
		if ts > e.LastModified {
			e.LastModified = ts
		}
		return nil

	case "DTSTART", "DTEND", "DURATION", "RRULE", "EXRULE", "RDATE", "EXDATE":
		if err := e.Schedule.Ingest(prop); err != nil {
			return err
		}
		e.invalidateRuleSet()
		e.stamp()
		return nil

	case "CATEGORIES":
		for _, v := range splitCSV(prop.Value) {
			e.Indexed.Categories[v] = struct{}{}
		}
		e.rebuildDimension(categoriesDim)
		e.stamp()
		return nil

	case "RELATED-TO":
		relType := prop.Params.Get("RELTYPE")
		if relType == "" {
			relType = "PARENT"
		}
		e.Indexed.RelatedTo[RelatedToKey{RelType: relType, UID: prop.Value}] = struct{}{}
		e.rebuildDimension(relatedToDim)
		e.stamp()
		return nil

	case "GEO":
		p, err := parseGeoValue(prop.Value)
		if err != nil {
			return err
		}
		e.Indexed.Geo = &p
		e.rebuildDimension(geoDim)
		e.stamp()
		return nil

	case "CLASS":
		e.Indexed.Class = prop.Value
		e.rebuildDimension(classDim)
		e.stamp()
		return nil

	case "LOCATION-TYPE":
		e.Indexed.LocationType = prop.Value
		e.rebuildDimension(locationTypeDim)
		e.stamp()
		return nil

	default:
		e.Passive = append(e.Passive, PassiveProperty{Name: prop.Name, Params: prop.Params, Value: prop.Value})
		e.stamp()
		return nil
	}
}

func splitCSV(value string) []string {
	var out []string
	start := 0
	for i, r := range value {
		if r == ',' {
			out = append(out, value[start:i])
			start = i + 1
		}
	}
	out = append(out, value[start:])
	return out
}

// stamp advances LastModified to the wall clock; an explicit
// LAST-MODIFIED ingested with a later timestamp always wins over
// time.Now().
func (e *Event) stamp() {
	now := time.Now().UTC().Unix()
	if now > e.LastModified {
		e.LastModified = now
	}
}

func (e *Event) invalidateRuleSet() {
	e.ruleSet = nil
}

// Validate builds and caches the compiled rule-set. It MUST succeed
// before the event is queried.
func (e *Event) Validate() error {
	src := recurrence.Sources{
		DTStart: e.Schedule.DTStart,
		RRule:   e.Schedule.RRule,
		ExRule:  e.Schedule.ExRule,
		RDates:  e.Schedule.RDatesSorted(),
		ExDates: e.Schedule.ExDatesSorted(),
	}
	rs, err := e.cache.GetOrCompile(e.UID, src)
	if err != nil {
		kind := calerr.ParseError
		var cerr *calerr.Error
		if errors.As(err, &cerr) {
			kind = cerr.Type
		}
		scoped := obs.WithEvent(log, e.UID)
		scoped.Warn().Str("error_kind", string(kind)).Err(err).Msg("rule-set validation failed")
		return err
	}
	e.ruleSet = rs
	return nil
}

// RuleSet returns the compiled rule-set, or false if Validate hasn't
// succeeded since the last schedule mutation.
func (e *Event) RuleSet() (*recurrence.CompiledRuleSet, bool) {
	return e.ruleSet, e.ruleSet != nil
}

// Overrides returns a snapshot of the overrides map.
func (e *Event) Overrides() map[int64]*Override {
	out := make(map[int64]*Override, len(e.overrides))
	for t, o := range e.overrides {
		out[t] = o
	}
	return out
}

// OverrideAt returns the override stored at timestamp t, if any.
func (e *Event) OverrideAt(t int64) (*Override, bool) {
	o, ok := e.overrides[t]
	return o, ok
}

// OverrideOccurrence stores override at its timestamp, patching the five
// per-event indexes when updateIndexes is true.
func (e *Event) OverrideOccurrence(override *Override, updateIndexes bool) error {
	scoped := obs.WithEvent(log, e.UID)
	scoped.Debug().Int64("timestamp", override.Timestamp).Msg("overriding occurrence")

	e.overrides[override.Timestamp] = override
	if updateIndexes {
		e.patchOverride(override)
	}
	e.stamp()
	return nil
}

// RemoveOccurrenceOverride removes the override at t, patching indexes
// when updateIndexes is true.
func (e *Event) RemoveOccurrenceOverride(t int64, updateIndexes bool) error {
	scoped := obs.WithEvent(log, e.UID)
	scoped.Debug().Int64("timestamp", t).Msg("removing occurrence override")

	override, ok := e.overrides[t]
	if !ok {
		scoped.Warn().Str("error_kind", string(calerr.NonExistentOverride)).Int64("timestamp", t).Msg("remove of non-existent override")
		return calerr.New(calerr.NonExistentOverride, "no override at given timestamp")
	}
	delete(e.overrides, t)
	if updateIndexes {
		e.unpatchOverride(override)
	}
	e.stamp()
	return nil
}

// PruneEventOverrides removes every override with timestamp in [lo, hi],
// returning the removed overrides (each carrying its Timestamp) in
// ascending timestamp order.
func (e *Event) PruneEventOverrides(lo, hi int64) ([]*Override, error) {
	scoped := obs.WithEvent(log, e.UID)
	scoped.Debug().Int64("lo", lo).Int64("hi", hi).Msg("pruning occurrence overrides")

	if lo > hi {
		scoped.Warn().Str("error_kind", string(calerr.BoundsInverted)).Msg("prune bounds inverted")
		return nil, calerr.New(calerr.BoundsInverted, "prune lower bound exceeds upper bound")
	}
	var removed []*Override
	for t, o := range e.overrides {
		if t >= lo && t <= hi {
			removed = append(removed, o)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Timestamp < removed[j].Timestamp })
	for _, o := range removed {
		delete(e.overrides, o.Timestamp)
		e.unpatchOverride(o)
	}
	e.stamp()
	return removed, nil
}

func (e *Event) patchOverride(o *Override) {
	if terms, ok := o.termsForCategories(); ok {
		e.idx.categories.InsertOverride(o.Timestamp, terms)
	}
	if terms, ok := o.termsForRelatedTo(); ok {
		e.idx.relatedTo.InsertOverride(o.Timestamp, terms)
	}
	if terms, ok := o.termsForGeo(); ok {
		e.idx.geo.InsertOverride(o.Timestamp, terms)
	}
	if terms, ok := o.termsForClass(); ok {
		e.idx.class.InsertOverride(o.Timestamp, terms)
	}
	if terms, ok := o.termsForLocationType(); ok {
		e.idx.locationType.InsertOverride(o.Timestamp, terms)
	}
}

func (e *Event) unpatchOverride(o *Override) {
	if o.CategoriesSet {
		e.idx.categories.RemoveOverride(o.Timestamp)
	}
	if o.RelatedToSet {
		e.idx.relatedTo.RemoveOverride(o.Timestamp)
	}
	if o.GeoSet {
		e.idx.geo.RemoveOverride(o.Timestamp)
	}
	if o.ClassSet {
		e.idx.class.RemoveOverride(o.Timestamp)
	}
	if o.LocationTypeSet {
		e.idx.locationType.RemoveOverride(o.Timestamp)
	}
}

type dimension int

const (
	categoriesDim dimension = iota
	relatedToDim
	geoDim
	classDim
	locationTypeDim
)

// rebuildDimension fully rebuilds one dimension's per-event index from
// the current base terms plus every stored override.
func (e *Event) rebuildDimension(d dimension) {
	switch d {
	case categoriesDim:
		base := make([]string, 0, len(e.Indexed.Categories))
		for c := range e.Indexed.Categories {
			base = append(base, c)
		}
		e.idx.categories = index.Build(base, overridesFor(e, func(o *Override) (map[string]struct{}, bool) {
			return o.termsForCategories()
		}))
	case relatedToDim:
		base := make([]RelatedToKey, 0, len(e.Indexed.RelatedTo))
		for k := range e.Indexed.RelatedTo {
			base = append(base, k)
		}
		e.idx.relatedTo = index.Build(base, overridesFor(e, func(o *Override) (map[RelatedToKey]struct{}, bool) {
			return o.termsForRelatedTo()
		}))
	case geoDim:
		var base []geo.Point
		if e.Indexed.Geo != nil {
			base = []geo.Point{*e.Indexed.Geo}
		}
		e.idx.geo = index.Build(base, overridesFor(e, func(o *Override) (map[geo.Point]struct{}, bool) {
			return o.termsForGeo()
		}))
	case classDim:
		var base []string
		if e.Indexed.Class != "" {
			base = []string{e.Indexed.Class}
		}
		e.idx.class = index.Build(base, overridesFor(e, func(o *Override) (map[string]struct{}, bool) {
			return o.termsForClass()
		}))
	case locationTypeDim:
		var base []string
		if e.Indexed.LocationType != "" {
			base = []string{e.Indexed.LocationType}
		}
		e.idx.locationType = index.Build(base, overridesFor(e, func(o *Override) (map[string]struct{}, bool) {
			return o.termsForLocationType()
		}))
	}
}

// rebuildIndexes rebuilds all five per-event indexes from scratch.
func (e *Event) rebuildIndexes() {
	e.rebuildDimension(categoriesDim)
	e.rebuildDimension(relatedToDim)
	e.rebuildDimension(geoDim)
	e.rebuildDimension(classDim)
	e.rebuildDimension(locationTypeDim)
}

func overridesFor[K comparable](e *Event, extract func(*Override) (map[K]struct{}, bool)) []index.OverrideTermSet[K] {
	ts := make([]int64, 0, len(e.overrides))
	for t := range e.overrides {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	out := make([]index.OverrideTermSet[K], 0, len(ts))
	for _, t := range ts {
		terms, ok := extract(e.overrides[t])
		if !ok {
			continue
		}
		out = append(out, index.OverrideTermSet[K]{Timestamp: t, Terms: terms})
	}
	return out
}

// CategoriesIndex, RelatedToIndex, GeoIndex, ClassIndex and
// LocationTypeIndex expose the five per-event inverted indexes for
// Calendar-level diffing.
func (e *Event) CategoriesIndex() *index.EventIndex[string]            { return e.idx.categories }
func (e *Event) RelatedToIndex() *index.EventIndex[RelatedToKey]       { return e.idx.relatedTo }
func (e *Event) GeoIndex() *index.EventIndex[geo.Point]                { return e.idx.geo }
func (e *Event) ClassIndex() *index.EventIndex[string]                 { return e.idx.class }
func (e *Event) LocationTypeIndex() *index.EventIndex[string]          { return e.idx.locationType }
