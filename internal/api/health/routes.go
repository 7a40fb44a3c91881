// Package health provides the liveness, readiness and version endpoints.
package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/versions"
)

// StatusResponse is the body returned by the liveness and readiness probes.
type StatusResponse struct {
	Status string `json:"status" example:"healthy"`
}

// Router serves the probe endpoints. They are mounted outside the gallery
// API prefix so orchestrators can reach them directly.
func Router(svc service.GalleryService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler reports process liveness.
//
// @Summary		Health check
// @Description	Check if the gallery API is healthy
// @Tags		system
// @Produce		json
// @Success		200	{object}	StatusResponse
// @Router		/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, StatusResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports whether the gallery can serve traffic, which
// means its database is reachable.
//
// @Summary		Readiness check
// @Description	Check if the gallery API is ready to serve requests
// @Tags		system
// @Produce		json
// @Success		200	{object}	StatusResponse
// @Failure		503	{object}	common.ErrorResponse
// @Router		/readiness [get]
func readinessHandler(svc service.GalleryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "Gallery service not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, StatusResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler reports build information.
//
// @Summary		Version information
// @Description	Get version information about the gallery API
// @Tags		system
// @Produce		json
// @Success		200	{object}	versions.VersionInfo
// @Router		/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
