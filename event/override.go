package event

import (
	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/internal/calerr"
)

// Override is a per-occurrence property substitution. A field
// is "set" (participates in materialization and per-event-index patching)
// only when its corresponding *Set flag is true; nil/false means "fall
// through to the base event".
type Override struct {
	id           string
	Timestamp    int64
	LastModified int64

	DurationOverride *int64

	CategoriesSet bool
	Categories    map[string]struct{}

	RelatedToSet bool
	RelatedTo    map[RelatedToKey]struct{}

	// GeoSet true with Geo nil means the override blanks the base geo
	// value out of the materialized instance.
	GeoSet bool
	Geo    *geo.Point

	ClassSet bool
	Class    string

	LocationTypeSet bool
	LocationType    string

	PassiveSet bool
	Passive    []PassiveProperty
}

// NewOverride builds an Override at the given resolved DTSTART timestamp,
// assigning a diagnostic correlation id.
func NewOverride(timestamp int64) *Override {
	return &Override{id: uuid.NewString(), Timestamp: timestamp}
}

// ID returns the override's diagnostic correlation id.
func (o *Override) ID() string { return o.id }

// ValidateNoRecurrenceProps rejects a schedule-recurrence surface on an
// override: overrides carry no RRULE/EXRULE/RDATE/EXDATE of their own.
// The type has no such fields, so this exists for callers assembling an
// Override from raw ical.Prop values upstream of this package to surface
// the same error kind consistently.
func ValidateNoRecurrenceProps(names []string) error {
	for _, n := range names {
		switch n {
		case "RRULE", "EXRULE", "RDATE", "EXDATE":
			return calerr.New(calerr.UnexpectedRecurrenceOnOverride, "override must not carry "+n)
		}
	}
	return nil
}

// ParseOverride builds an Override from a slice of parsed properties. A
// DTSTART is mandatory (MissingDtStart otherwise); any recurrence
// property is rejected with UnexpectedRecurrenceOnOverride; DTEND and
// DURATION both resolve to a duration override, DTEND winning when both
// appear since it is resolved against the mandatory DTSTART. Everything
// the indexed dimensions don't claim lands in the override's passive set.
func ParseOverride(props []*ical.Prop) (*Override, error) {
	o := &Override{id: uuid.NewString()}

	var dtstart *int64
	var dtend *int64

	for _, p := range props {
		switch p.Name {
		case "RRULE", "EXRULE", "RDATE", "EXDATE":
			return nil, calerr.New(calerr.UnexpectedRecurrenceOnOverride, "override must not carry "+p.Name)

		case "DTSTART":
			ts, err := parseDateTime(p)
			if err != nil {
				return nil, err
			}
			dtstart = &ts

		case "DTEND":
			ts, err := parseDateTime(p)
			if err != nil {
				return nil, err
			}
			dtend = &ts

		case "DURATION":
			d, err := parseISODuration(p.Value)
			if err != nil {
				return nil, err
			}
			if o.DurationOverride == nil {
				o.DurationOverride = &d
			} else {
				*o.DurationOverride = d
			}

		case "LAST-MODIFIED":
			ts, err := parseDateTime(p)
			if err != nil {
				return nil, err
			}
			o.LastModified = ts

		case "CATEGORIES":
			if o.Categories == nil {
				o.Categories = make(map[string]struct{})
			}
			o.CategoriesSet = true
			for _, v := range splitCSV(p.Value) {
				if v != "" {
					o.Categories[v] = struct{}{}
				}
			}

		case "RELATED-TO":
			if o.RelatedTo == nil {
				o.RelatedTo = make(map[RelatedToKey]struct{})
			}
			o.RelatedToSet = true
			relType := p.Params.Get("RELTYPE")
			if relType == "" {
				relType = "PARENT"
			}
			o.RelatedTo[RelatedToKey{RelType: relType, UID: p.Value}] = struct{}{}

		case "GEO":
			o.GeoSet = true
			if p.Value == "" {
				o.Geo = nil
				continue
			}
			pt, err := parseGeoValue(p.Value)
			if err != nil {
				return nil, err
			}
			o.Geo = &pt

		case "CLASS":
			o.ClassSet = true
			o.Class = p.Value

		case "LOCATION-TYPE":
			o.LocationTypeSet = true
			o.LocationType = p.Value

		case "UID", "RECURRENCE-ID":
			// Identity properties; the event the override attaches to, and
			// the timestamp key, are supplied by the caller.

		default:
			o.PassiveSet = true
			o.Passive = append(o.Passive, PassiveProperty{Name: p.Name, Params: p.Params, Value: p.Value})
		}
	}

	if dtstart == nil {
		return nil, calerr.New(calerr.MissingDtStart, "override requires a resolvable DTSTART")
	}
	o.Timestamp = *dtstart
	if dtend != nil {
		d := *dtend - *dtstart
		o.DurationOverride = &d
	}
	return o, nil
}

// termsForCategories returns the override's category term set, or nil if
// the dimension isn't set.
func (o *Override) termsForCategories() (map[string]struct{}, bool) {
	if !o.CategoriesSet {
		return nil, false
	}
	return o.Categories, true
}

func (o *Override) termsForRelatedTo() (map[RelatedToKey]struct{}, bool) {
	if !o.RelatedToSet {
		return nil, false
	}
	return o.RelatedTo, true
}

func (o *Override) termsForGeo() (map[geo.Point]struct{}, bool) {
	if !o.GeoSet {
		return nil, false
	}
	if o.Geo == nil {
		return map[geo.Point]struct{}{}, true
	}
	return map[geo.Point]struct{}{*o.Geo: {}}, true
}

func (o *Override) termsForClass() (map[string]struct{}, bool) {
	if !o.ClassSet {
		return nil, false
	}
	if o.Class == "" {
		return map[string]struct{}{}, true
	}
	return map[string]struct{}{o.Class: {}}, true
}

func (o *Override) termsForLocationType() (map[string]struct{}, bool) {
	if !o.LocationTypeSet {
		return nil, false
	}
	if o.LocationType == "" {
		return map[string]struct{}{}, true
	}
	return map[string]struct{}{o.LocationType: {}}, true
}
