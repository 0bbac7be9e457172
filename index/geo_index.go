package index

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/cyp0633/calindex/conclusion"
	"github.com/cyp0633/calindex/geo"
)

// GeoPayload is the data stored at each R-tree node: a per-calendar-
// inverted-index-term sharing the exact uid → Conclusion structure as
// CalendarIndex, plus an insertion-ordered uid list so equal-distance
// ties resolve deterministically.
type GeoPayload struct {
	Point  geo.Point
	Events map[string]conclusion.Conclusion
	order  []string
}

// OrderedUIDs returns this payload's uids in insertion order.
func (p *GeoPayload) OrderedUIDs() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// GeoIndex is the geospatial calendar index: an R-tree of
// points, coalesced by geohash identity.
type GeoIndex struct {
	tree   rtree.RTreeG[*GeoPayload]
	byHash map[string]*GeoPayload
}

// NewGeoIndex builds an empty geospatial index.
func NewGeoIndex() *GeoIndex {
	return &GeoIndex{byHash: make(map[string]*GeoPayload)}
}

func bbox(p geo.Point) (min, max [2]float64) {
	v := [2]float64{p.Lat, p.Long}
	return v, v
}

// Insert locates by geohash equality; if a node already exists there, it
// splices the conclusion into that node's event-set, else it inserts a
// new (point, event-set{uid→conclusion}) node.
func (idx *GeoIndex) Insert(uid string, point geo.Point, c conclusion.Conclusion) {
	hash := point.Geohash()
	payload, ok := idx.byHash[hash]
	if !ok {
		payload = &GeoPayload{Point: point, Events: make(map[string]conclusion.Conclusion)}
		idx.byHash[hash] = payload
		min, max := bbox(point)
		idx.tree.Insert(min, max, payload)
	}
	if _, exists := payload.Events[uid]; !exists {
		payload.order = append(payload.order, uid)
	}
	payload.Events[uid] = c
}

// Remove removes uid from the co-located payload, purging the node if
// its event-set becomes empty.
func (idx *GeoIndex) Remove(uid string, point geo.Point) {
	hash := point.Geohash()
	payload, ok := idx.byHash[hash]
	if !ok {
		return
	}
	delete(payload.Events, uid)
	for i, u := range payload.order {
		if u == uid {
			payload.order = append(payload.order[:i], payload.order[i+1:]...)
			break
		}
	}
	if len(payload.Events) == 0 {
		min, max := bbox(payload.Point)
		idx.tree.Delete(min, max, payload)
		delete(idx.byHash, hash)
	}
}

// degreeSpan bounds the lat/long delta a given meter radius can possibly
// reach, used only to build a conservative R-tree search rectangle; the
// exact circular predicate is re-checked with Haversine below.
func degreeSpan(center geo.Point, meters float64) (latSpan, longSpan float64) {
	const metersPerDegreeLat = 111320.0
	latSpan = meters / metersPerDegreeLat
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	longSpan = meters / (metersPerDegreeLat * cosLat)
	return latSpan, longSpan
}

// LocateWithinDistance iterates R-tree candidates within a bounding box
// prefilter, exact-filters by haversine distance, and OR-merges all
// matching payload event-sets into one result.
func (idx *GeoIndex) LocateWithinDistance(point geo.Point, distance geo.Distance) map[string]conclusion.Conclusion {
	meters := distance.Meters()
	latSpan, longSpan := degreeSpan(point, meters)
	min := [2]float64{point.Lat - latSpan, point.Long - longSpan}
	max := [2]float64{point.Lat + latSpan, point.Long + longSpan}

	result := make(map[string]conclusion.Conclusion)
	idx.tree.Search(min, max, func(_, _ [2]float64, payload *GeoPayload) bool {
		if geo.Haversine(point, payload.Point).Meters() > meters {
			return true
		}
		for _, uid := range payload.order {
			c := payload.Events[uid]
			if existing, ok := result[uid]; ok {
				result[uid] = conclusion.MergeOr(existing, c)
			} else {
				result[uid] = c
			}
		}
		return true
	})
	return result
}

// NearestUID is one entry of a nearest-neighbor walk: a uid, its
// Conclusion at the co-located point, and the distance from the query
// point.
type NearestUID struct {
	UID        string
	Conclusion conclusion.Conclusion
	Distance   geo.Distance
}

// NearestOrder walks every indexed point in nearest-neighbor order from
// point. Uids sharing one point are listed in that payload's insertion
// order; the relative order of distinct points at equal distance is not
// defined.
func (idx *GeoIndex) NearestOrder(point geo.Point) []NearestUID {
	type ranked struct {
		payload  *GeoPayload
		distance geo.Distance
	}
	ranks := make([]ranked, 0, len(idx.byHash))
	for _, payload := range idx.byHash {
		ranks = append(ranks, ranked{payload: payload, distance: geo.Haversine(point, payload.Point)})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].distance.Compare(ranks[j].distance) < 0
	})

	out := make([]NearestUID, 0, len(ranks))
	for _, r := range ranks {
		for _, uid := range r.payload.order {
			out = append(out, NearestUID{UID: uid, Conclusion: r.payload.Events[uid], Distance: r.distance})
		}
	}
	return out
}
