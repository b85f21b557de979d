package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/logger"
	"github.com/fieldserve/dispatch/core/model"
)

func seedIndex(t *testing.T, idx *MockIndex, id string, loc model.Location, cat model.ServiceCategory) {
	t.Helper()
	err := idx.Upsert(context.Background(), model.LocationRecord{
		TechnicianID:    id,
		Geohash:         Encode(loc),
		Location:        loc,
		ServiceCategory: cat,
		UpdatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestFindNearby_PrunesAndSorts(t *testing.T) {
	center := model.Location{Latitude: 6.9271, Longitude: 79.8612}
	idx := NewMockIndex()
	// ~1km north, ~2.5km north, and well outside the 5km radius.
	seedIndex(t, idx, "tech-near", model.Location{Latitude: center.Latitude + 0.009, Longitude: center.Longitude}, model.CategoryHomes)
	seedIndex(t, idx, "tech-mid", model.Location{Latitude: center.Latitude + 0.0225, Longitude: center.Longitude}, model.CategoryHomes)
	seedIndex(t, idx, "tech-far", model.Location{Latitude: center.Latitude + 0.5, Longitude: center.Longitude}, model.CategoryHomes)

	s, err := NewSearch(idx, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	got, err := s.FindNearby(context.Background(), center, 5000)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	assert.Equal(t, "tech-near", got[0].TechnicianID)
	assert.Equal(t, "tech-mid", got[1].TechnicianID)
	assert.Less(t, got[0].DistanceMeters, got[1].DistanceMeters)
}

func TestFindNearby_DedupesAcrossBounds(t *testing.T) {
	center := model.Location{Latitude: 6.9271, Longitude: 79.8612}
	idx := NewMockIndex()
	seedIndex(t, idx, "tech-1", center, model.CategoryHomes)

	s, err := NewSearch(idx, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	got, err := s.FindNearby(context.Background(), center, 5000)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	// Nine bounds are queried but the single record must appear once.
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if idx.RangeCalls < 2 {
		t.Fatalf("expected multiple range queries, got %d", idx.RangeCalls)
	}
}

func TestFindNearby_TieBreaksByID(t *testing.T) {
	center := model.Location{Latitude: 6.9271, Longitude: 79.8612}
	idx := NewMockIndex()
	// Same point, so identical rounded distances.
	at := model.Location{Latitude: center.Latitude + 0.001, Longitude: center.Longitude}
	seedIndex(t, idx, "tech-b", at, model.CategoryHomes)
	seedIndex(t, idx, "tech-a", at, model.CategoryVehicles)

	s, _ := NewSearch(idx, logger.NopLogger{})
	got, err := s.FindNearby(context.Background(), center, 5000)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	assert.Equal(t, "tech-a", got[0].TechnicianID)
	assert.Equal(t, "tech-b", got[1].TechnicianID)
}

func TestFindNearby_Validation(t *testing.T) {
	idx := NewMockIndex()
	s, _ := NewSearch(idx, logger.NopLogger{})

	_, err := s.FindNearby(context.Background(), model.Location{Latitude: 91, Longitude: 0}, 5000)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for bad latitude, got %v", err)
	}
	_, err = s.FindNearby(context.Background(), model.Location{Latitude: 0, Longitude: 0}, -1)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for negative radius, got %v", err)
	}
	if idx.RangeCalls != 0 {
		t.Fatalf("index queried despite invalid input")
	}
}

func TestFindNearby_IndexUnavailable(t *testing.T) {
	idx := NewMockIndex()
	idx.Err = errors.New("connection refused")
	s, _ := NewSearch(idx, logger.NopLogger{})

	_, err := s.FindNearby(context.Background(), model.Location{Latitude: 6.9271, Longitude: 79.8612}, 5000)
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewSearch_NilIndex(t *testing.T) {
	if _, err := NewSearch(nil, logger.NopLogger{}); err == nil {
		t.Fatalf("expected error for nil index")
	}
}
