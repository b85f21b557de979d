// Package api assembles the HTTP surface of the dispatch service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fieldserve/dispatch/api/jobs"
	"github.com/fieldserve/dispatch/api/technicians"
	"github.com/fieldserve/dispatch/api/utility"
	"github.com/fieldserve/dispatch/core/dispatch"
	"github.com/fieldserve/dispatch/core/logger"
)

// NewMux routes the service endpoints.
func NewMux(coord *dispatch.Coordinator, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/jobs/findNearestTechnician", jobs.NewDispatchHandler(coord, log))
	mux.Handle("/jobRequests/findNearestTechnician", jobs.NewAssignHandler(coord, log))
	mux.Handle("/jobRequests/dispatchNegotiated", jobs.NewNegotiateHandler(coord, log))
	mux.Handle("/utility/findNearestTechnicians", utility.NewSearchHandler(coord, log))
	mux.Handle("/utility/updateTechnicianLocation/", utility.NewLocationHandler(coord, log))
	mux.Handle("/technicians/jobAcceptOrReject", technicians.NewResponseHandler(coord, log))
	return mux
}

// Serve runs the API server until the context is canceled.
func Serve(ctx context.Context, addr string, coord *dispatch.Coordinator, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(coord, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
	}()
	log.Infof("api server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
