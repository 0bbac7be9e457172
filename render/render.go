// Package render turns an Event, an Override, or a materialized Instance
// back into iCalendar text.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/instance"
)

// Context carries the rendering-time tunables: the timezone
// to render naive date-times against, and the unit to format a GEO
// distance in (when one is attached to the rendered component).
type Context struct {
	TZID *string
	Unit geo.Unit
}

const dateTimeLayout = "20060102T150405"

func (c Context) formatTimestamp(ts int64) string {
	if c.TZID == nil {
		return time.Unix(ts, 0).UTC().Format(dateTimeLayout + "Z")
	}
	loc, err := time.LoadLocation(*c.TZID)
	if err != nil {
		return time.Unix(ts, 0).UTC().Format(dateTimeLayout + "Z")
	}
	return time.Unix(ts, 0).In(loc).Format(dateTimeLayout)
}

func (c Context) dateTimeProp(name string, ts int64) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Value = c.formatTimestamp(ts)
	if c.TZID != nil {
		prop.Params.Set("TZID", *c.TZID)
	}
	return prop
}

// RenderEvent encodes e's base schedule/indexed/passive properties (not
// its overrides) as a standalone VEVENT fragment.
func RenderEvent(ctx Context, e *event.Event) (string, error) {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.Set(&ical.Prop{Name: "UID", Value: e.UID})
	comp.Props.Set(ctx.dateTimeProp("DTSTART", e.Schedule.DTStart))
	if e.Schedule.HasEnd {
		comp.Props.Set(ctx.dateTimeProp("DTEND", e.Schedule.DTEnd))
	} else if e.Schedule.HasDur {
		comp.Props.Set(&ical.Prop{Name: "DURATION", Value: formatISODuration(e.Schedule.Duration)})
	}
	if e.Schedule.RRule != "" {
		comp.Props.Set(&ical.Prop{Name: "RRULE", Value: e.Schedule.RRule})
	}
	if e.Schedule.ExRule != "" {
		comp.Props.Set(&ical.Prop{Name: "EXRULE", Value: e.Schedule.ExRule})
	}
	for _, ts := range e.Schedule.RDatesSorted() {
		comp.Props.Add(ctx.dateTimeProp("RDATE", ts))
	}
	for _, ts := range e.Schedule.ExDatesSorted() {
		comp.Props.Add(ctx.dateTimeProp("EXDATE", ts))
	}
	comp.Props.Set(&ical.Prop{Name: "LAST-MODIFIED", Value: ctx.formatTimestamp(e.LastModified)})

	renderIndexed(comp, e.Indexed.Categories, e.Indexed.RelatedTo, e.Indexed.Geo, e.Indexed.Class, e.Indexed.LocationType)
	renderPassive(comp, e.Passive)

	return encode(comp)
}

// RenderOverride encodes override as a standalone VEVENT fragment carrying
// a RECURRENCE-ID and only the dimensions the override actually sets.
func RenderOverride(ctx Context, uid string, override *event.Override) (string, error) {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.Set(&ical.Prop{Name: "UID", Value: uid})
	comp.Props.Set(ctx.dateTimeProp("RECURRENCE-ID", override.Timestamp))
	if override.DurationOverride != nil {
		comp.Props.Set(&ical.Prop{Name: "DURATION", Value: formatISODuration(*override.DurationOverride)})
	}

	var categories map[string]struct{}
	var relatedTo map[event.RelatedToKey]struct{}
	var geoPoint *geo.Point
	class := ""
	locationType := ""
	if override.CategoriesSet {
		categories = override.Categories
	}
	if override.RelatedToSet {
		relatedTo = override.RelatedTo
	}
	if override.GeoSet {
		geoPoint = override.Geo
	}
	if override.ClassSet {
		class = override.Class
	}
	if override.LocationTypeSet {
		locationType = override.LocationType
	}
	renderIndexed(comp, categories, relatedTo, geoPoint, class, locationType)
	if override.PassiveSet {
		renderPassive(comp, override.Passive)
	}

	return encode(comp)
}

// RenderInstance encodes a fully materialized Instance as a standalone
// VEVENT fragment.
func RenderInstance(ctx Context, inst instance.Instance) (string, error) {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.Set(&ical.Prop{Name: "UID", Value: inst.UID})
	comp.Props.Set(ctx.dateTimeProp("RECURRENCE-ID", inst.RecurrenceID))
	comp.Props.Set(ctx.dateTimeProp("DTSTART", inst.DTStart))
	comp.Props.Set(ctx.dateTimeProp("DTEND", inst.DTEnd))

	renderIndexed(comp, inst.Categories, inst.RelatedTo, inst.Geo, inst.Class, inst.LocationType)
	renderPassive(comp, inst.Passive)

	return encode(comp)
}

func renderIndexed(comp *ical.Component, categories map[string]struct{}, relatedTo map[event.RelatedToKey]struct{}, point *geo.Point, class, locationType string) {
	if len(categories) > 0 {
		values := make([]string, 0, len(categories))
		for c := range categories {
			values = append(values, c)
		}
		comp.Props.Set(&ical.Prop{Name: "CATEGORIES", Value: joinCSV(values)})
	}
	for key := range relatedTo {
		prop := ical.NewProp("RELATED-TO")
		prop.Value = key.UID
		prop.Params.Set("RELTYPE", key.RelType)
		comp.Props.Add(prop)
	}
	if point != nil {
		comp.Props.Set(&ical.Prop{Name: "GEO", Value: fmt.Sprintf("%f;%f", point.Lat, point.Long)})
	}
	if class != "" {
		comp.Props.Set(&ical.Prop{Name: "CLASS", Value: class})
	}
	if locationType != "" {
		comp.Props.Set(&ical.Prop{Name: "LOCATION-TYPE", Value: locationType})
	}
}

func renderPassive(comp *ical.Component, passive []event.PassiveProperty) {
	for _, p := range passive {
		prop := ical.NewProp(p.Name)
		prop.Value = p.Value
		for name, values := range p.Params {
			for _, v := range values {
				prop.Params.Add(name, v)
			}
		}
		comp.Props.Add(prop)
	}
}

func joinCSV(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

// encode wraps comp in a throwaway VCALENDAR, runs it through
// ical.NewEncoder, then strips the wrapper back out so only the inner
// component fragment remains.
func encode(comp *ical.Component) (string, error) {
	wrapper := ical.NewCalendar()
	wrapper.Props.Set(&ical.Prop{Name: "PRODID", Value: "-//calindex//EN"})
	wrapper.Props.Set(&ical.Prop{Name: "VERSION", Value: "2.0"})
	if comp.Props.Get(ical.PropDateTimeStamp) == nil {
		comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	}
	wrapper.Children = append(wrapper.Children, comp)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(wrapper); err != nil {
		return "", err
	}
	return stripCalendarWrapper(buf.String()), nil
}

// stripCalendarWrapper removes the BEGIN:VCALENDAR/VERSION/PRODID/
// END:VCALENDAR lines, leaving only the inner component fragment.
func stripCalendarWrapper(s string) string {
	lines := splitLines(s)
	var out []string
	for _, line := range lines {
		switch {
		case hasPrefix(line, "BEGIN:VCALENDAR"), hasPrefix(line, "END:VCALENDAR"),
			hasPrefix(line, "VERSION:"), hasPrefix(line, "PRODID:"):
			continue
		default:
			out = append(out, line)
		}
	}
	return joinCRLF(out)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '\r' && s[i+1] == '\n' {
			out = append(out, s[start:i])
			start = i + 2
			i++
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func joinCRLF(lines []string) string {
	out := ""
	for _, l := range lines {
		if l == "" {
			continue
		}
		out += l + "\r\n"
	}
	return out
}

func formatISODuration(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	days := seconds / 86400
	rem := seconds % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	secs := rem % 60

	out := sign + "P"
	if days > 0 {
		out += strconv.FormatInt(days, 10) + "D"
	}
	if hours > 0 || minutes > 0 || secs > 0 {
		out += "T"
		if hours > 0 {
			out += strconv.FormatInt(hours, 10) + "H"
		}
		if minutes > 0 {
			out += strconv.FormatInt(minutes, 10) + "M"
		}
		if secs > 0 {
			out += strconv.FormatInt(secs, 10) + "S"
		}
	}
	if out == sign+"P" {
		out += "T0S"
	}
	return out
}
