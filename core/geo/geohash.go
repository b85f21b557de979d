package geo

import (
	"sort"

	"github.com/mmcloughlin/geohash"

	"github.com/fieldserve/dispatch/core/model"
)

// Bound is a half-open string interval over geohash-ordered keys. Every key k
// with Start <= k <= End shares the bound's prefix.
type Bound struct {
	Start string
	End   string
}

// cellMinSideMeters is the smaller side of a geohash cell per precision
// (characters 1..8). Index 0 is unused.
var cellMinSideMeters = [...]float64{0,
	4992600, 624100, 156000, 19500, 4890, 610, 153, 19,
}

// precisionFor picks the finest geohash precision whose cell still spans the
// radius, so the center cell plus its eight neighbors cover the search disc.
func precisionFor(radiusMeters float64) uint {
	p := uint(1)
	for i := 2; i < len(cellMinSideMeters); i++ {
		if cellMinSideMeters[i] < radiusMeters {
			break
		}
		p = uint(i)
	}
	return p
}

// CoverBounds partitions the disc around center into geohash prefix intervals.
// The intervals are a superset of the disc: geohash cells are rectangular, so
// callers must prune results by exact distance. Bounds are deduplicated and
// sorted for deterministic query order.
func CoverBounds(center model.Location, radiusMeters float64) []Bound {
	p := precisionFor(radiusMeters)
	cell := geohash.EncodeWithPrecision(center.Latitude, center.Longitude, p)

	seen := map[string]struct{}{cell: {}}
	for _, n := range geohash.Neighbors(cell) {
		seen[n] = struct{}{}
	}

	prefixes := make([]string, 0, len(seen))
	for h := range seen {
		prefixes = append(prefixes, h)
	}
	sort.Strings(prefixes)

	bounds := make([]Bound, 0, len(prefixes))
	for _, h := range prefixes {
		// '~' sorts after every geohash base32 character, closing the
		// prefix range.
		bounds = append(bounds, Bound{Start: h, End: h + "~"})
	}
	return bounds
}

// Encode returns the full-precision geohash for a point. Location records are
// stored under this key.
func Encode(l model.Location) string {
	return geohash.Encode(l.Latitude, l.Longitude)
}
