package geo

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func testIndex() *Index {
	ix := NewIndex()
	ix.Insert(Entry{ID: "paris", Point: paris})
	ix.Insert(Entry{ID: "lyon", Point: lyon})
	ix.Insert(Entry{ID: "london", Point: london})
	return ix
}

func ids(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestQueryOrdering(t *testing.T) {
	ix := testIndex()
	ms := ix.Query(paris, 1000, nil)
	if len(ms) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(ms))
	}
	if ms[0].ID != "paris" || ms[1].ID != "london" || ms[2].ID != "lyon" {
		t.Fatalf("bad order: %v", ids(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].DistanceKm < ms[i-1].DistanceKm {
			t.Fatalf("distances not ascending: %v", ms)
		}
	}
}

func TestQueryRadiusMonotonic(t *testing.T) {
	ix := testIndex()
	small := ix.Query(paris, 350, nil)
	large := ix.Query(paris, 1000, nil)
	// every id in the smaller radius appears, in order, in the larger one
	j := 0
	for _, m := range small {
		for j < len(large) && large[j].ID != m.ID {
			j++
		}
		if j == len(large) {
			t.Fatalf("%q in small radius missing from large", m.ID)
		}
	}
}

func TestQueryEmptyResult(t *testing.T) {
	ix := testIndex()
	if ms := ix.Query(Point{Lat: -33.9, Lon: 151.2}, 100, nil); len(ms) != 0 {
		t.Fatalf("expected empty result, got %v", ids(ms))
	}
}

func TestQueryFilterPredicate(t *testing.T) {
	ix := testIndex()
	ms := ix.Query(paris, 1000, func(e Entry) bool { return e.ID != "london" })
	if len(ms) != 2 {
		t.Fatalf("expected 2 matches, got %v", ids(ms))
	}
	for _, m := range ms {
		if m.ID == "london" {
			t.Fatalf("filter not applied")
		}
	}
}

func TestNearest(t *testing.T) {
	ix := testIndex()
	ms := ix.Nearest(lyon, 2, nil)
	if len(ms) != 2 || ms[0].ID != "lyon" || ms[1].ID != "paris" {
		t.Fatalf("bad nearest: %v", ids(ms))
	}
	if ms = ix.Nearest(lyon, 10, nil); len(ms) != 3 {
		t.Fatalf("k above catalog size must return all: %v", ids(ms))
	}
	if ms = ix.Nearest(lyon, 0, nil); ms != nil {
		t.Fatalf("k=0 must return nil")
	}
}

func TestTiesBrokenByID(t *testing.T) {
	ix := NewIndex()
	p := Point{Lat: 10, Lon: 10}
	ix.Insert(Entry{ID: "b", Point: p})
	ix.Insert(Entry{ID: "a", Point: p})
	ix.Insert(Entry{ID: "c", Point: p})
	ms := ix.Query(p, 1, nil)
	if got := ids(ms); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("ties not broken by id: %v", got)
	}
}

func TestRemoveAndUpdate(t *testing.T) {
	ix := testIndex()
	ix.Remove("london")
	ix.Remove("london") // no-op
	if ix.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", ix.Len())
	}
	ix.Update(Entry{ID: "lyon", Point: london})
	ms := ix.Query(london, 10, nil)
	if len(ms) != 1 || ms[0].ID != "lyon" {
		t.Fatalf("update did not relocate entry: %v", ids(ms))
	}
}

func TestGridMatchesFlatScan(t *testing.T) {
	ix := NewIndex()
	rng := rand.New(rand.NewSource(42))
	type loc struct {
		id string
		p  Point
	}
	var all []loc
	for i := 0; i < 500; i++ {
		p := Point{Lat: rng.Float64()*20 + 40, Lon: rng.Float64()*20 - 10}
		id := fmt.Sprintf("e%03d", i)
		all = append(all, loc{id: id, p: p})
		ix.Insert(Entry{ID: id, Point: p})
	}
	center := Point{Lat: 50, Lon: 0}
	const radius = 250.0
	want := map[string]bool{}
	for _, l := range all {
		if Haversine(center, l.p) <= radius {
			want[l.id] = true
		}
	}
	ms := ix.Query(center, radius, nil)
	if len(ms) != len(want) {
		t.Fatalf("grid returned %d, flat scan %d", len(ms), len(want))
	}
	seen := map[string]bool{}
	for _, m := range ms {
		if seen[m.ID] {
			t.Fatalf("duplicate match %q", m.ID)
		}
		seen[m.ID] = true
		if !want[m.ID] {
			t.Fatalf("unexpected match %q at %.1f km", m.ID, m.DistanceKm)
		}
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	ix := testIndex()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ix.Query(paris, 500, nil)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			ix.Insert(Entry{ID: fmt.Sprintf("w%d", j), Point: Point{Lat: 1, Lon: 1}})
		}
	}()
	wg.Wait()
}
