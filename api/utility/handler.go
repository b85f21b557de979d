// Package utility exposes the raw proximity search and location ingestion
// endpoints.
package utility

import (
	"net/http"
	"strings"

	"github.com/fieldserve/dispatch/api/httpx"
	"github.com/fieldserve/dispatch/core/dispatch"
	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/logger"
	"github.com/fieldserve/dispatch/core/model"
)

type searchRequest struct {
	CustomerLocation model.Location        `json:"customerLocation"`
	RadiusMeters     float64               `json:"radiusMeters"`
	ServiceCategory  model.ServiceCategory `json:"serviceCategory"`
}

// NewSearchHandler serves POST /utility/findNearestTechnicians: proximity
// search with optional category filtering, no side effects.
func NewSearchHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpx.PostOnly(w, r) {
			return
		}
		var req searchRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		candidates, err := coord.FindNearby(r.Context(), req.CustomerLocation, req.RadiusMeters, req.ServiceCategory)
		if err != nil {
			log.Errorf("proximity search failed: %v", err)
			httpx.WriteError(w, err)
			return
		}
		if candidates == nil {
			candidates = []model.Candidate{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"technicians": candidates,
			"count":       len(candidates),
		})
	})
}

type locationRequest struct {
	Latitude        float64               `json:"latitude"`
	Longitude       float64               `json:"longitude"`
	ServiceCategory model.ServiceCategory `json:"serviceCategory"`
}

// NewLocationHandler serves POST /utility/updateTechnicianLocation/{technicianId}.
func NewLocationHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpx.PostOnly(w, r) {
			return
		}
		technicianID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/utility/updateTechnicianLocation/"), "/")
		if technicianID == "" {
			httpx.WriteError(w, errs.Validationf("technicianId path segment is required"))
			return
		}
		var req locationRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		loc := model.Location{Latitude: req.Latitude, Longitude: req.Longitude}
		if err := coord.UpdateLocation(r.Context(), technicianID, loc, req.ServiceCategory); err != nil {
			log.Errorf("location update failed for %s: %v", technicianID, err)
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "technicianId": technicianID})
	})
}
