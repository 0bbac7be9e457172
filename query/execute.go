package query

import (
	"sort"

	"github.com/cyp0633/calindex/conclusion"
	"github.com/cyp0633/calindex/config"
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/index"
	"github.com/cyp0633/calindex/instance"
	"github.com/cyp0633/calindex/recurrence"
	"github.com/cyp0633/calindex/where"
)

// CalendarView is the minimal surface the executor needs from a calendar
// aggregate, kept as an interface so this package never
// imports the calendar package directly.
type CalendarView interface {
	Accessor() where.Accessor
	AllUIDs() []string
	Event(uid string) (*event.Event, bool)
	GeoNearest(point geo.Point) []index.NearestUID
}

type candidate struct {
	uid        string
	conclusion conclusion.Conclusion
	dtstart    int64
	dtend      int64
}

func whereResult(q *Query, cal CalendarView) map[string]conclusion.Conclusion {
	if q.Where == nil {
		out := make(map[string]conclusion.Conclusion, len(cal.AllUIDs()))
		for _, uid := range cal.AllUIDs() {
			out[uid] = conclusion.IncludeAll()
		}
		return out
	}
	return q.Where.Eval(cal.Accessor())
}

func includedCandidates(q *Query, cal CalendarView) []candidate {
	result := whereResult(q, cal)
	out := make([]candidate, 0, len(result))
	for uid, c := range result {
		if !c.IsInclude() {
			continue
		}
		e, ok := cal.Event(uid)
		if !ok {
			continue
		}
		dtstart := e.Schedule.DTStart
		dtend := dtstart + e.Schedule.EffectiveDuration()
		if q.LowerBound != nil && !boundPassesEvent(*q.LowerBound, dtstart, dtend) {
			continue
		}
		if q.UpperBound != nil && !boundPassesEvent(*q.UpperBound, dtstart, dtend) {
			continue
		}
		out = append(out, candidate{uid: uid, conclusion: c, dtstart: dtstart, dtend: dtend})
	}
	return out
}

func boundPassesEvent(b recurrence.Bound, dtstart, dtend int64) bool {
	ts := dtstart
	if b.Property == recurrence.DtEnd {
		ts = dtend
	}
	switch b.Kind {
	case recurrence.GreaterThan:
		return ts > b.Timestamp
	case recurrence.GreaterEqualThan:
		return ts >= b.Timestamp
	case recurrence.LessThan:
		return ts < b.Timestamp
	default:
		return ts <= b.Timestamp
	}
}

// Execute runs q with the default configuration.
func Execute(q *Query, cal CalendarView) []string {
	return NewExecutor(config.Default()).Execute(q, cal)
}

// Execute runs q against cal's event-level surface, returning the ordered,
// distinct-filtered, offset-and-limit-applied uid list.
func (x *Executor) Execute(q *Query, cal CalendarView) []string {
	switch q.Ordering {
	case OrderGeoDistThenDtStart:
		return executeGeoDistThenDtStart(q, cal)
	case OrderDtStartThenGeoDist:
		return executeDtStartThenGeoDist(q, cal)
	default:
		return executeDtStart(q, cal)
	}
}

func executeDtStart(q *Query, cal CalendarView) []string {
	cands := includedCandidates(q, cal)
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dtstart < cands[j].dtstart })
	return finalize(q, uidsOf(cands))
}

// executeDtStartThenGeoDist orders by DTSTART with haversine distance
// from the order point breaking ties. Every tie group is fully ordered
// before the limit cut is applied, so truncation never splits a group
// inconsistently.
func executeDtStartThenGeoDist(q *Query, cal CalendarView) []string {
	cands := includedCandidates(q, cal)
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dtstart != cands[j].dtstart {
			return cands[i].dtstart < cands[j].dtstart
		}
		return geo.Haversine(q.OrderPoint, eventPoint(cal, cands[i].uid)).Compare(
			geo.Haversine(q.OrderPoint, eventPoint(cal, cands[j].uid))) < 0
	})
	return finalize(q, uidsOf(cands))
}

func eventPoint(cal CalendarView, uid string) geo.Point {
	e, ok := cal.Event(uid)
	if !ok || e.Indexed.Geo == nil {
		return geo.Point{}
	}
	return *e.Indexed.Geo
}

// executeGeoDistThenDtStart walks the geo index in nearest-neighbor order,
// AND-ing each point's event-set with the where-result and pushing passing
// events until limit.
func executeGeoDistThenDtStart(q *Query, cal CalendarView) []string {
	result := whereResult(q, cal)
	nearest := cal.GeoNearest(q.OrderPoint)

	var uids []string
	seen := make(map[string]struct{})
	for _, n := range nearest {
		wc, ok := result[n.UID]
		if !ok {
			wc = conclusion.ExcludeAll()
		}
		merged := conclusion.MergeAnd(wc, n.Conclusion)
		if !merged.IsInclude() {
			continue
		}
		if _, dup := seen[n.UID]; dup {
			continue
		}
		seen[n.UID] = struct{}{}
		uids = append(uids, n.UID)
	}
	return finalize(q, uids)
}

func uidsOf(cands []candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.uid)
	}
	return out
}

func applyDistinctOffset(q *Query, uids []string) []string {
	if q.DistinctUIDs {
		seen := make(map[string]struct{}, len(uids))
		out := uids[:0:0]
		for _, u := range uids {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
		uids = out
	}
	if q.Offset > 0 {
		if q.Offset >= len(uids) {
			return nil
		}
		uids = uids[q.Offset:]
	}
	return uids
}

func finalize(q *Query, uids []string) []string {
	uids = applyDistinctOffset(q, uids)
	if q.Limit > 0 && len(uids) > q.Limit {
		uids = uids[:q.Limit]
	}
	return uids
}

// ExecuteInstances runs q's instance surface with the default
// configuration.
func ExecuteInstances(q *Query, cal CalendarView) []instance.Instance {
	return NewExecutor(config.Default()).ExecuteInstances(q, cal)
}

// ExecuteInstances is the event-instance counterpart of Execute: the same
// three strategies select candidate events, then each is fed through its
// occurrence iterator using the where-result's per-event Conclusion as
// the filtering conclusion, and materialized via instance.Materialize.
// The configured MaxOccurrences/MaxTimeSpan runaway caps bound every
// per-event iteration.
func (x *Executor) ExecuteInstances(q *Query, cal CalendarView) []instance.Instance {
	uids := x.Execute(q, cal)
	result := whereResult(q, cal)

	var out []instance.Instance
	for _, uid := range uids {
		e, ok := cal.Event(uid)
		if !ok {
			continue
		}
		rs, ok := e.RuleSet()
		if !ok {
			continue
		}
		filter := result[uid]
		it := recurrence.NewIterator(recurrence.IteratorConfig[*event.Override]{
			RuleSet:      rs,
			DTStart:      e.Schedule.DTStart,
			BaseDuration: e.Schedule.EffectiveDuration(),
			Overrides: func(t int64) (*event.Override, bool) {
				return e.OverrideAt(t)
			},
			OverrideDuration: func(o *event.Override) (int64, bool) {
				if o.DurationOverride == nil {
					return 0, false
				}
				return *o.DurationOverride, true
			},
			LowerBound:     q.LowerBound,
			UpperBound:     q.UpperBound,
			Filter:         &filter,
			MaxOccurrences: x.cfg.Iterator.MaxOccurrences,
			MaxTimeSpan:    x.cfg.Iterator.MaxTimeSpan,
		})

		for {
			occ, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, instance.Materialize(e, occ.Start, occ.End, occ.Override))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return instance.Less(out[i], out[j]) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
