package render

import (
	"strings"
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/instance"
)

func prop(name, value string) *ical.Prop {
	return &ical.Prop{Name: name, Value: value, Params: ical.Params{}}
}

func TestRenderEventStripsWrapper(t *testing.T) {
	e := event.NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("DTSTART", "19700101T000000Z")))
	require.NoError(t, e.IngestProperty(prop("RRULE", "FREQ=DAILY;COUNT=3")))
	require.NoError(t, e.IngestProperty(prop("CATEGORIES", "WORK")))
	require.NoError(t, e.IngestProperty(prop("SUMMARY", "weekly sync")))

	out, err := RenderEvent(Context{}, e)
	require.NoError(t, err)

	assert.NotContains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "UID:evt-1")
	assert.Contains(t, out, "DTSTART:19700101T000000Z")
	assert.Contains(t, out, "RRULE:FREQ=DAILY;COUNT=3")
	assert.Contains(t, out, "CATEGORIES:WORK")
	assert.Contains(t, out, "SUMMARY:weekly sync")
	assert.True(t, strings.HasSuffix(out, "\r\n"))
}

func TestRenderEventRoundTripsThroughIngest(t *testing.T) {
	e := event.NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("DTSTART", "19700101T000000Z")))
	require.NoError(t, e.IngestProperty(prop("DTEND", "19700101T000500Z")))
	require.NoError(t, e.IngestProperty(prop("CLASS", "PRIVATE")))

	out, err := RenderEvent(Context{}, e)
	require.NoError(t, err)

	reingested := event.NewEvent("evt-1")
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if line == "BEGIN:VEVENT" || line == "END:VEVENT" {
			continue
		}
		i := strings.Index(line, ":")
		require.GreaterOrEqual(t, i, 0, line)
		require.NoError(t, reingested.IngestProperty(prop(line[:i], line[i+1:])))
	}

	assert.Equal(t, e.Schedule.DTStart, reingested.Schedule.DTStart)
	assert.Equal(t, e.Schedule.DTEnd, reingested.Schedule.DTEnd)
	assert.Equal(t, "PRIVATE", reingested.Indexed.Class)
}

func TestRenderOverrideCarriesRecurrenceID(t *testing.T) {
	o := event.NewOverride(300)
	o.ClassSet = true
	o.Class = "CONFIDENTIAL"

	out, err := RenderOverride(Context{}, "evt-1", o)
	require.NoError(t, err)

	assert.Contains(t, out, "RECURRENCE-ID:19700101T000500Z")
	assert.Contains(t, out, "CLASS:CONFIDENTIAL")
}

func TestRenderInstance(t *testing.T) {
	inst := instance.Instance{
		UID:          "evt-1",
		RecurrenceID: 300,
		DTStart:      300,
		DTEnd:        305,
		Class:        "PUBLIC",
	}

	out, err := RenderInstance(Context{}, inst)
	require.NoError(t, err)
	assert.Contains(t, out, "DTSTART:19700101T000500Z")
	assert.Contains(t, out, "DTEND:19700101T000505Z")
	assert.Contains(t, out, "RECURRENCE-ID:19700101T000500Z")
}
