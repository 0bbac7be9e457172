package event

import (
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calindex/internal/calerr"
)

func TestParseOverrideRequiresDtStart(t *testing.T) {
	_, err := ParseOverride([]*ical.Prop{
		prop("DESCRIPTION", "no dtstart here", nil),
	})
	require.Error(t, err)
	assert.True(t, calerr.Is(err, calerr.MissingDtStart))
}

func TestParseOverrideRejectsRecurrence(t *testing.T) {
	for _, name := range []string{"RRULE", "EXRULE", "RDATE", "EXDATE"} {
		value := "FREQ=DAILY"
		if name == "RDATE" || name == "EXDATE" {
			value = "19700101T000500Z"
		}
		_, err := ParseOverride([]*ical.Prop{
			prop("DTSTART", "19700101T000500Z", nil),
			prop(name, value, nil),
		})
		require.Error(t, err, name)
		assert.True(t, calerr.Is(err, calerr.UnexpectedRecurrenceOnOverride), name)
	}
}

func TestParseOverrideDtEndResolvesDuration(t *testing.T) {
	o, err := ParseOverride([]*ical.Prop{
		prop("DTSTART", "19700101T000500Z", nil),
		prop("DTEND", "19700101T000510Z", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), o.Timestamp)
	require.NotNil(t, o.DurationOverride)
	assert.Equal(t, int64(10), *o.DurationOverride)
}

func TestParseOverrideIndexedAndPassiveRouting(t *testing.T) {
	o, err := ParseOverride([]*ical.Prop{
		prop("DTSTART", "19700101T000500Z", nil),
		prop("CATEGORIES", "ONE,TWO", nil),
		prop("CLASS", "PRIVATE", nil),
		prop("RELATED-TO", "parent-uid", map[string]string{"RELTYPE": "CHILD"}),
		prop("SUMMARY", "an overridden summary", nil),
	})
	require.NoError(t, err)

	assert.True(t, o.CategoriesSet)
	_, hasOne := o.Categories["ONE"]
	_, hasTwo := o.Categories["TWO"]
	assert.True(t, hasOne)
	assert.True(t, hasTwo)

	assert.True(t, o.ClassSet)
	assert.Equal(t, "PRIVATE", o.Class)

	assert.True(t, o.RelatedToSet)
	_, hasRel := o.RelatedTo[RelatedToKey{RelType: "CHILD", UID: "parent-uid"}]
	assert.True(t, hasRel)

	require.True(t, o.PassiveSet)
	require.Len(t, o.Passive, 1)
	assert.Equal(t, "SUMMARY", o.Passive[0].Name)
}

func TestParseOverrideBlankGeoRemovesBase(t *testing.T) {
	o, err := ParseOverride([]*ical.Prop{
		prop("DTSTART", "19700101T000500Z", nil),
		prop("GEO", "", nil),
	})
	require.NoError(t, err)
	assert.True(t, o.GeoSet)
	assert.Nil(t, o.Geo)
}

func TestScheduleIngestRejectsNonScheduleProperty(t *testing.T) {
	s := ScheduleProperties{RDates: map[int64]struct{}{}, ExDates: map[int64]struct{}{}}
	err := s.Ingest(prop("SUMMARY", "not a schedule slot", nil))
	require.Error(t, err)
	assert.True(t, calerr.Is(err, calerr.UnexpectedPropertyForSlot))
}
