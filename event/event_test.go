package event

import (
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prop(name, value string, params map[string]string) *ical.Prop {
	p := &ical.Prop{Name: name, Value: value, Params: ical.Params{}}
	for k, v := range params {
		p.Params.Set(k, v)
	}
	return p
}

func TestIngestScheduleAndValidate(t *testing.T) {
	e := NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("DTSTART", "19700101T000000Z", nil)))
	require.NoError(t, e.IngestProperty(prop("RRULE", "FREQ=DAILY;COUNT=3", nil)))

	require.NoError(t, e.Validate())
	rs, ok := e.RuleSet()
	require.True(t, ok)

	first, found := rs.Next(e.Schedule.DTStart - 1)
	require.True(t, found)
	assert.Equal(t, e.Schedule.DTStart, first)
}

func TestIngestUIDMismatch(t *testing.T) {
	e := NewEvent("evt-1")
	err := e.IngestProperty(prop("UID", "evt-2", nil))
	assert.Error(t, err)
}

func TestIngestCategoriesAccumulate(t *testing.T) {
	e := NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("CATEGORIES", "WORK,TRAVEL", nil)))
	require.NoError(t, e.IngestProperty(prop("CATEGORIES", "HOME", nil)))

	_, hasWork := e.Indexed.Categories["WORK"]
	_, hasTravel := e.Indexed.Categories["TRAVEL"]
	_, hasHome := e.Indexed.Categories["HOME"]
	assert.True(t, hasWork)
	assert.True(t, hasTravel)
	assert.True(t, hasHome)

	c, ok := e.CategoriesIndex().Get("WORK")
	require.True(t, ok)
	assert.True(t, c.IsInclude())
}

func TestIngestClassLastWriterWins(t *testing.T) {
	e := NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("CLASS", "PUBLIC", nil)))
	require.NoError(t, e.IngestProperty(prop("CLASS", "PRIVATE", nil)))
	assert.Equal(t, "PRIVATE", e.Indexed.Class)

	_, hasPublic := e.ClassIndex().Get("PUBLIC")
	assert.False(t, hasPublic)
	c, ok := e.ClassIndex().Get("PRIVATE")
	require.True(t, ok)
	assert.True(t, c.IsInclude())
}

// TestOverrideReversibilityOnEvent checks that applying then removing an
// occurrence override restores the per-event index exactly.
func TestOverrideReversibilityOnEvent(t *testing.T) {
	e := NewEvent("evt-1")
	require.NoError(t, e.IngestProperty(prop("CATEGORIES", "WORK", nil)))
	before := e.CategoriesIndex().Clone()

	o := NewOverride(100)
	o.CategoriesSet = true
	o.Categories = map[string]struct{}{"WORK": {}, "HOME": {}}
	require.NoError(t, e.OverrideOccurrence(o, true))
	require.NoError(t, e.RemoveOccurrenceOverride(100, true))

	assert.True(t, e.CategoriesIndex().Equal(before))
}

func TestPruneRange(t *testing.T) {
	e := NewEvent("evt-1")
	for _, ts := range []int64{100, 200, 300, 400, 500} {
		o := NewOverride(ts)
		require.NoError(t, e.OverrideOccurrence(o, true))
	}

	removed, err := e.PruneEventOverrides(125, 400)
	require.NoError(t, err)
	require.Len(t, removed, 3)
	assert.Equal(t, []int64{200, 300, 400}, []int64{removed[0].Timestamp, removed[1].Timestamp, removed[2].Timestamp})

	_, has100 := e.OverrideAt(100)
	_, has500 := e.OverrideAt(500)
	assert.True(t, has100)
	assert.True(t, has500)
	_, has200 := e.OverrideAt(200)
	assert.False(t, has200)
}

func TestPruneBoundsInverted(t *testing.T) {
	e := NewEvent("evt-1")
	_, err := e.PruneEventOverrides(500, 100)
	assert.Error(t, err)
}

func TestOverrideRejectsRecurrenceProps(t *testing.T) {
	err := ValidateNoRecurrenceProps([]string{"SUMMARY", "RRULE"})
	assert.Error(t, err)
}
