package gallery

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

// maxPackageSize caps the accepted VSIX upload size.
const maxPackageSize = 512 * 1024 * 1024

// PublishResponse summarizes one published extension version.
type PublishResponse struct {
	Namespace      string            `json:"namespace" example:"redhat"`
	Name           string            `json:"name" example:"vscode-yaml"`
	Version        string            `json:"version" example:"0.5.2"`
	TargetPlatform string            `json:"targetPlatform,omitempty" example:"linux-x64"`
	Files          map[string]string `json:"files"`
}

// publish handles POST /api/-/publish?token={token}
//
// @Summary		Publish an extension package
// @Description	Ingests a VSIX package, creating the namespace and extension as needed
// @Tags		gallery
// @Accept		octet-stream
// @Produce		json
// @Param		token	query	string	true	"Publish access token"
// @Success		201	{object}	PublishResponse
// @Failure		400	{object}	map[string]string	"Malformed package"
// @Failure		403	{object}	map[string]string	"Invalid access token"
// @Failure		409	{object}	map[string]string	"Version already exists"
// @Router		/api/-/publish [post]
func (routes *Routes) publish(w http.ResponseWriter, r *http.Request) {
	if !routes.validToken(r.URL.Query().Get("token")) {
		common.WriteErrorResponse(w, service.ErrInvalidToken.Error(), http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPackageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteErrorResponse(w,
				fmt.Sprintf("Package exceeds the maximum size of %d bytes", tooLarge.Limit),
				http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteErrorResponse(w, "Failed to read package body", http.StatusBadRequest)
		return
	}

	pkg, err := publish.Read(body)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	version, err := routes.service.PublishExtension(r.Context(), service.WithPackage(pkg))
	routes.metrics.RecordPublish(r.Context(), time.Since(start), err == nil)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBuiltInNamespace):
			common.WriteErrorResponse(w,
				fmt.Sprintf("Built-in extension namespace '%s' not allowed", pkg.Namespace),
				http.StatusBadRequest)
		case errors.Is(err, service.ErrVersionExists):
			common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
		case errors.Is(err, service.ErrLicenseRequired):
			common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		default:
			slog.ErrorContext(r.Context(), "Publish failed",
				"namespace", pkg.Namespace, "extension", pkg.Name, "version", pkg.Version, "error", err)
			common.WriteErrorResponse(w, "Failed to publish extension", http.StatusInternalServerError)
		}
		return
	}

	files := make(map[string]string, len(version.Files))
	for _, f := range version.Files {
		files[f.Type] = f.Name
	}
	resp := PublishResponse{
		Namespace: pkg.Namespace,
		Name:      pkg.Name,
		Version:   version.Version,
		Files:     files,
	}
	if version.TargetPlatform != registry.TargetUniversal {
		resp.TargetPlatform = version.TargetPlatform
	}
	common.WriteJSONResponse(w, resp, http.StatusCreated)
}

// validToken reports whether the presented token matches one of the
// configured publish tokens. Comparison is constant-time per token.
func (routes *Routes) validToken(token string) bool {
	if token == "" {
		return false
	}
	valid := false
	for _, t := range routes.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			valid = true
		}
	}
	return valid
}
