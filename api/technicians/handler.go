// Package technicians exposes the accept/reject endpoint of the response
// protocol.
package technicians

import (
	"errors"
	"net/http"
	"time"

	"github.com/fieldserve/dispatch/api/httpx"
	"github.com/fieldserve/dispatch/core/dispatch"
	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/logger"
	"github.com/fieldserve/dispatch/core/model"
)

type responseRequest struct {
	JobID        string     `json:"jobId"`
	TechnicianID string     `json:"technicianId"`
	Response     string     `json:"response"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// NewResponseHandler serves POST /technicians/jobAcceptOrReject. The first
// accepted response wins the job; every later response gets a 200 with its
// entry recorded for audit. An unknown job is reported as a 500 with the
// message "Job request not found".
func NewResponseHandler(coord *dispatch.Coordinator, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpx.PostOnly(w, r) {
			return
		}
		var req responseRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		var ts time.Time
		if req.Timestamp != nil {
			ts = *req.Timestamp
		}
		res, err := coord.RecordResponse(r.Context(), req.JobID, req.TechnicianID, model.ResponseKind(req.Response), ts)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"message": "Job request not found",
				})
				return
			}
			log.Errorf("record response failed: %v", err)
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"jobId":        req.JobID,
			"technicianId": req.TechnicianID,
			"response":     req.Response,
			"assigned":     res.Assigned,
		})
	})
}
