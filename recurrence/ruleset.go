// Package recurrence compiles RRULE/EXRULE/RDATE/EXDATE schedule sources
// into a pullable occurrence stream and provides the lazy, override-aware,
// filter-driven occurrence iterator built on top of it.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/cyp0633/calindex/internal/calerr"
)

const icalUTCLayout = "20060102T150405Z"

func formatICalUTC(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(icalUTCLayout)
}

// Sources is the raw recurrence material extracted from an event's
// ScheduleProperties.
type Sources struct {
	DTStart int64
	RRule   string
	ExRule  string
	RDates  []int64
	ExDates []int64
}

// CompiledRuleSet wraps a compiled rrule.Set, exposing a chunked pull
// interface over its one verified range method, Between.
type CompiledRuleSet struct {
	set *rrule.Set
}

// Compile synthesizes a "DTSTART:...\nRRULE:..." text block from the
// schedule sources and hands it to rrule.StrToRRuleSet.
func Compile(src Sources) (*CompiledRuleSet, error) {
	lines := []string{"DTSTART:" + formatICalUTC(src.DTStart)}
	if src.RRule != "" {
		lines = append(lines, "RRULE:"+src.RRule)
	}
	if src.ExRule != "" {
		lines = append(lines, "EXRULE:"+src.ExRule)
	}
	for _, rd := range src.RDates {
		lines = append(lines, "RDATE:"+formatICalUTC(rd))
	}
	for _, ed := range src.ExDates {
		lines = append(lines, "EXDATE:"+formatICalUTC(ed))
	}

	// No RRULE and no RDATE: synthesize a single-occurrence RDATE
	// from DTSTART so a non-recurring event still yields one instance.
	if src.RRule == "" && len(src.RDates) == 0 {
		lines = append(lines, "RDATE:"+formatICalUTC(src.DTStart))
	}

	text := strings.Join(lines, "\n")
	set, err := rrule.StrToRRuleSet(text)
	if err != nil {
		return nil, calerr.Wrap(calerr.RuleSetCompileError, fmt.Sprintf("failed to compile rule-set for DTSTART=%d", src.DTStart), err)
	}
	return &CompiledRuleSet{set: set}, nil
}

// chunkWindows are the successively-doubled search windows Next tries,
// in seconds, starting at one day. After exhausting these without a hit,
// the rule-set is treated as having no further occurrences; a
// genuinely-infinite rule-set relies on a filtering Exclude(E) cap or an
// explicit iterator limit.
var chunkWindows = buildChunkWindows()

func buildChunkWindows() []int64 {
	const day = int64(24 * 60 * 60)
	windows := make([]int64, 0, 48)
	w := day
	const maxSpan = int64(200 * 365 * 24 * 60 * 60) // 200 years
	for total := int64(0); total < maxSpan; {
		windows = append(windows, w)
		total += w
		w *= 2
	}
	return windows
}

// Next returns the first occurrence strictly after the given timestamp,
// or false if none exists within the bounded search horizon.
func (c *CompiledRuleSet) Next(after int64) (int64, bool) {
	start := time.Unix(after+1, 0).UTC()
	cursor := start
	for _, span := range chunkWindows {
		end := cursor.Add(time.Duration(span) * time.Second)
		occurrences := c.set.Between(cursor, end, true)
		for _, occ := range occurrences {
			ts := occ.UTC().Unix()
			if ts > after {
				return ts, true
			}
		}
		cursor = end
	}
	return 0, false
}

// Between returns every occurrence in [start, end], inclusive both ends.
func (c *CompiledRuleSet) Between(start, end int64) []int64 {
	occs := c.set.Between(time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC(), true)
	out := make([]int64, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.UTC().Unix())
	}
	return out
}
