package geo

import (
	"context"
	"fmt"
	"sort"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/logger"
	"github.com/fieldserve/dispatch/core/model"
)

// Index is the geospatial index holding technician location records ordered by
// geohash.
type Index interface {
	// RangeQuery returns every record whose geohash falls within
	// [start, end], in index order.
	RangeQuery(ctx context.Context, start, end string) ([]model.LocationRecord, error)

	// Upsert replaces the technician's record wholesale.
	Upsert(ctx context.Context, rec model.LocationRecord) error
}

// Search finds nearby technicians by querying geohash prefix intervals and
// pruning by exact distance. Searches are pure reads.
type Search struct {
	index Index
	log   logger.Logger
}

// NewSearch creates a proximity search over the given index.
func NewSearch(index Index, log logger.Logger) (*Search, error) {
	if index == nil {
		return nil, fmt.Errorf("geo: nil index provided to NewSearch")
	}
	return &Search{index: index, log: log}, nil
}

// FindNearby returns all technicians within radiusMeters of center, sorted by
// ascending distance with ties broken by technician id. The geohash bounds
// overshoot the disc, so every record is re-checked against the exact
// great-circle distance before inclusion.
func (s *Search) FindNearby(ctx context.Context, center model.Location, radiusMeters float64) ([]model.Candidate, error) {
	if err := center.Validate(); err != nil {
		return nil, errs.Validationf("center: %v", err)
	}
	if radiusMeters <= 0 {
		return nil, errs.Validationf("radius must be positive, got %v", radiusMeters)
	}

	bounds := CoverBounds(center, radiusMeters)
	seen := make(map[string]struct{})
	var candidates []model.Candidate
	for _, b := range bounds {
		recs, err := s.index.RangeQuery(ctx, b.Start, b.End)
		if err != nil {
			return nil, fmt.Errorf("%w: geo index range query: %v", errs.ErrUnavailable, err)
		}
		for _, rec := range recs {
			// A technician near a bucket boundary can appear in more
			// than one bound; keep the first occurrence.
			if _, dup := seen[rec.TechnicianID]; dup {
				continue
			}
			seen[rec.TechnicianID] = struct{}{}

			d := Distance(center, rec.Location)
			if d > radiusMeters {
				continue
			}
			candidates = append(candidates, model.Candidate{
				TechnicianID:    rec.TechnicianID,
				Location:        rec.Location,
				ServiceCategory: rec.ServiceCategory,
				DistanceMeters:  roundMeters(d),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceMeters != candidates[j].DistanceMeters {
			return candidates[i].DistanceMeters < candidates[j].DistanceMeters
		}
		return candidates[i].TechnicianID < candidates[j].TechnicianID
	})

	if s.log != nil {
		s.log.Debugw("proximity search", map[string]any{
			"bounds":     len(bounds),
			"candidates": len(candidates),
			"radius_m":   radiusMeters,
		})
	}
	return candidates, nil
}
