package calendar

import (
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calindex/config"
	"github.com/cyp0633/calindex/event"
)

func prop(name, value string) *ical.Prop {
	return &ical.Prop{Name: name, Value: value, Params: ical.Params{}}
}

func buildEvent(t *testing.T, uid string, categories ...string) *event.Event {
	t.Helper()
	e := event.NewEvent(uid)
	require.NoError(t, e.IngestProperty(prop("DTSTART", "19700101T000000Z")))
	require.NoError(t, e.IngestProperty(prop("RRULE", "FREQ=DAILY;COUNT=1")))
	if len(categories) > 0 {
		require.NoError(t, e.IngestProperty(prop("CATEGORIES", joinComma(categories))))
	}
	require.NoError(t, e.Validate())
	return e
}

func joinComma(vs []string) string {
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

func TestUpsertAndAccessorCategories(t *testing.T) {
	cal := New("cal-1")
	e := buildEvent(t, "evt-1", "WORK")
	cal.UpsertEvent(e)

	result := cal.Accessor().Categories("WORK")
	c, ok := result["evt-1"]
	require.True(t, ok)
	assert.True(t, c.IsInclude())
}

func TestUpsertReplacesPriorCategory(t *testing.T) {
	cal := New("cal-1")
	e := buildEvent(t, "evt-1", "WORK")
	cal.UpsertEvent(e)

	e2 := event.NewEvent("evt-1")
	require.NoError(t, e2.IngestProperty(prop("DTSTART", "19700101T000000Z")))
	require.NoError(t, e2.IngestProperty(prop("RRULE", "FREQ=DAILY;COUNT=1")))
	require.NoError(t, e2.IngestProperty(prop("CATEGORIES", "HOME")))
	require.NoError(t, e2.Validate())
	cal.UpsertEvent(e2)

	_, stillWork := cal.Accessor().Categories("WORK")["evt-1"]
	assert.False(t, stillWork)
	_, nowHome := cal.Accessor().Categories("HOME")["evt-1"]
	assert.True(t, nowHome)
}

func TestRemoveEventPurgesIndexes(t *testing.T) {
	cal := New("cal-1")
	e := buildEvent(t, "evt-1", "WORK")
	cal.UpsertEvent(e)

	require.NoError(t, cal.RemoveEvent("evt-1"))
	_, exists := cal.Event("evt-1")
	assert.False(t, exists)
	assert.Empty(t, cal.Accessor().Categories("WORK"))
}

func TestRemoveNonExistentEvent(t *testing.T) {
	cal := New("cal-1")
	err := cal.RemoveEvent("nope")
	assert.Error(t, err)
}

func TestAccessorUID(t *testing.T) {
	cal := New("cal-1")
	cal.UpsertEvent(buildEvent(t, "evt-1"))

	result := cal.Accessor().UID("evt-1")
	assert.True(t, result["evt-1"].IsInclude())
	assert.Empty(t, cal.Accessor().UID("nope"))
}

func TestNewWithConfigSharesRuleCache(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.MaxEntries = 10
	cal := NewWithConfig("cal-1", cfg)
	assert.Equal(t, 10, cal.Config().Cache.MaxEntries)

	e := cal.NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("DTSTART", "19700101T000000Z")))
	require.NoError(t, e.IngestProperty(prop("RRULE", "FREQ=DAILY;COUNT=1")))
	require.NoError(t, e.Validate())
	cal.UpsertEvent(e)

	_, ok := cal.Event("evt-1")
	assert.True(t, ok)
}
