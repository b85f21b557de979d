// Package jobs exposes the dispatch endpoints.
package jobs

import (
	"net/http"

	"github.com/fieldserve/dispatch/api/httpx"
	"github.com/fieldserve/dispatch/core/dispatch"
	"github.com/fieldserve/dispatch/core/logger"
)

// NewDispatchHandler serves POST /jobs/findNearestTechnician: the greedy
// dispatch attempt. A dispatch that finds nobody is still a 200; only
// validation failures are 400.
func NewDispatchHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpx.PostOnly(w, r) {
			return
		}
		var req dispatch.NewJobRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		res, err := coord.DispatchNearest(r.Context(), req)
		if err != nil {
			log.Errorf("dispatch failed: %v", err)
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res)
	})
}

// NewAssignHandler serves POST /jobRequests/findNearestTechnician: the full
// synchronous-assignment flow. No eligible technician is a 404 carrying the
// nearby count; success returns the job, the technician and the distance.
func NewAssignHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return handleAssign(log, func(r *http.Request, req dispatch.NewJobRequest) (*dispatch.Assignment, error) {
		return coord.DispatchNearest(r.Context(), req)
	})
}

// NewNegotiateHandler serves POST /jobRequests/dispatchNegotiated: the
// notify-and-wait flow. Response semantics match NewAssignHandler.
func NewNegotiateHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return handleAssign(log, func(r *http.Request, req dispatch.NewJobRequest) (*dispatch.Assignment, error) {
		return coord.DispatchNegotiated(r.Context(), req)
	})
}

func handleAssign(log logger.Logger, run func(*http.Request, dispatch.NewJobRequest) (*dispatch.Assignment, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpx.PostOnly(w, r) {
			return
		}
		var req dispatch.NewJobRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		res, err := run(r, req)
		if err != nil {
			log.Errorf("dispatch failed: %v", err)
			httpx.WriteError(w, err)
			return
		}
		if !res.Found {
			httpx.WriteJSON(w, http.StatusNotFound, res)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res)
	})
}
