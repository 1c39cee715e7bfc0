package geo

import (
	"math"
	"sort"
	"sync"
)

// Entry is an indexed entity. Value carries the caller's payload; the index
// never inspects it beyond the filter predicate.
type Entry struct {
	ID    string
	Point Point
	Value any
}

// Match is a query result with its distance from the query point.
type Match struct {
	Entry
	DistanceKm float64
}

// Filter restricts query results. A nil filter matches everything. Status
// changes (a station going offline) are expressed here at query time, not by
// removing the entity from the index.
type Filter func(Entry) bool

// Index is a grid-partitioned spatial index over a catalog that changes
// infrequently relative to query volume. Reads proceed concurrently; catalog
// mutations take a brief exclusive lock. Results are ordered by ascending
// distance with ties broken by entity id.
type Index struct {
	mu    sync.RWMutex
	cells map[cellKey][]Entry
	byID  map[string]cellKey
}

// Cells are 1 degree on a side: about 111 km of latitude, which keeps a
// radius query at city scale within a handful of buckets.
type cellKey struct {
	lat int // 0..179
	lon int // 0..359
}

func cellOf(p Point) cellKey {
	lat := int(math.Floor(p.Lat + 90))
	if lat > 179 {
		lat = 179
	}
	if lat < 0 {
		lat = 0
	}
	lon := int(math.Floor(p.Lon+180)) % 360
	if lon < 0 {
		lon += 360
	}
	return cellKey{lat: lat, lon: lon}
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{cells: map[cellKey][]Entry{}, byID: map[string]cellKey{}}
}

// Insert adds or replaces the entry for e.ID.
func (ix *Index) Insert(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(e.ID)
	k := cellOf(e.Point)
	ix.cells[k] = append(ix.cells[k], e)
	ix.byID[e.ID] = k
}

// Update is Insert for an existing id; kept separate for call-site clarity.
func (ix *Index) Update(e Entry) { ix.Insert(e) }

// Remove deletes the entry for id. Removing an unknown id is a no-op.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *Index) removeLocked(id string) {
	k, ok := ix.byID[id]
	if !ok {
		return
	}
	bucket := ix.cells[k]
	for i, e := range bucket {
		if e.ID == id {
			ix.cells[k] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(ix.cells[k]) == 0 {
		delete(ix.cells, k)
	}
	delete(ix.byID, id)
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// Query returns all matching entries within radiusKm of p, ascending by
// distance, ties by id. An empty result is not an error.
func (ix *Index) Query(p Point, radiusKm float64, filter Filter) []Match {
	if radiusKm < 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Match
	for _, k := range candidateCells(p, radiusKm) {
		for _, e := range ix.cells[k] {
			d := Haversine(p, e.Point)
			if d > radiusKm {
				continue
			}
			if filter != nil && !filter(e) {
				continue
			}
			out = append(out, Match{Entry: e, DistanceKm: d})
		}
	}
	sortMatches(out)
	return out
}

// Nearest returns up to k matching entries ordered by distance, ties by id.
// It scans the whole catalog; at tens of thousands of entries this is still
// comfortably sub-millisecond.
func (ix *Index) Nearest(p Point, k int, filter Filter) []Match {
	if k <= 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Match
	for _, bucket := range ix.cells {
		for _, e := range bucket {
			if filter != nil && !filter(e) {
				continue
			}
			out = append(out, Match{Entry: e, DistanceKm: Haversine(p, e.Point)})
		}
	}
	sortMatches(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func sortMatches(ms []Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].DistanceKm != ms[j].DistanceKm {
			return ms[i].DistanceKm < ms[j].DistanceKm
		}
		return ms[i].ID < ms[j].ID
	})
}

// candidateCells returns the grid cells whose contents may fall within
// radiusKm of p. The longitude span widens with latitude; near the poles the
// scan degrades to full longitude rings, which is correct and still cheap.
func candidateCells(p Point, radiusKm float64) []cellKey {
	latSpan := radiusKm / 111.0 // degrees of latitude per km, near enough
	minLat := int(math.Floor(p.Lat - latSpan + 90))
	maxLat := int(math.Floor(p.Lat + latSpan + 90))
	if minLat < 0 {
		minLat = 0
	}
	if maxLat > 179 {
		maxLat = 179
	}

	var keys []cellKey
	for lat := minLat; lat <= maxLat; lat++ {
		cosLat := math.Cos((float64(lat) - 90 + 0.5) * math.Pi / 180)
		var lonSpan float64
		if cosLat < 1e-3 {
			lonSpan = 180
		} else {
			lonSpan = latSpan / cosLat
		}
		if lonSpan >= 180 {
			for lon := 0; lon < 360; lon++ {
				keys = append(keys, cellKey{lat: lat, lon: lon})
			}
			continue
		}
		minLon := int(math.Floor(p.Lon - lonSpan + 180))
		maxLon := int(math.Floor(p.Lon + lonSpan + 180))
		if maxLon-minLon >= 359 {
			for lon := 0; lon < 360; lon++ {
				keys = append(keys, cellKey{lat: lat, lon: lon})
			}
			continue
		}
		for lon := minLon; lon <= maxLon; lon++ {
			l := lon % 360
			if l < 0 {
				l += 360
			}
			keys = append(keys, cellKey{lat: lat, lon: l})
		}
	}
	return keys
}
