// Package gallery implements the VS Code Marketplace compatible HTTP
// surface: extension queries, asset retrieval, item and download redirects,
// package browsing, the public key endpoint and package publishing.
package gallery

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/telemetry"
	"github.com/BuckysMyHero/openvsx/internal/upstream"
)

// Routes handles HTTP requests for the gallery endpoints.
type Routes struct {
	service  service.GalleryService
	upstream upstream.Client
	metrics  *telemetry.GalleryMetrics
	baseURL  string
	webUIURL string
	builtins []string
	tokens   []string
}

// RouteOption configures optional behavior of the gallery routes.
type RouteOption func(*Routes)

// WithBaseURL sets the absolute server base used in rendered URLs. When
// empty, the base is derived from each request.
func WithBaseURL(u string) RouteOption {
	return func(r *Routes) {
		r.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithWebUI sets the web UI base for item redirects. When empty, redirects
// are service-relative.
func WithWebUI(u string) RouteOption {
	return func(r *Routes) {
		r.webUIURL = strings.TrimSuffix(u, "/")
	}
}

// WithUpstream sets the upstream gallery used as a fallback for extensions
// that are not published locally.
func WithUpstream(c upstream.Client) RouteOption {
	return func(r *Routes) {
		r.upstream = c
	}
}

// WithBuiltinNamespaces sets the namespaces reserved for editor built-ins.
// Requests naming them are rejected before any lookup.
func WithBuiltinNamespaces(namespaces []string) RouteOption {
	return func(r *Routes) {
		r.builtins = namespaces
	}
}

// WithPublishTokens sets the access tokens accepted by the publish endpoint.
func WithPublishTokens(tokens []string) RouteOption {
	return func(r *Routes) {
		r.tokens = tokens
	}
}

// WithMetrics sets the gallery metrics instruments. A nil value disables
// domain metrics.
func WithMetrics(m *telemetry.GalleryMetrics) RouteOption {
	return func(r *Routes) {
		r.metrics = m
	}
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.GalleryService, opts ...RouteOption) *Routes {
	routes := &Routes{
		service: svc,
	}
	for _, opt := range opts {
		opt(routes)
	}
	return routes
}

// VSCodeRouter creates the router for the /vscode endpoint family.
func (routes *Routes) VSCodeRouter() http.Handler {
	r := chi.NewRouter()

	r.Post("/gallery/extensionquery", routes.extensionQuery)
	r.Get("/asset/{namespace}/{extension}/{version}/*", routes.asset)
	r.Get("/item", routes.item)
	r.Get("/gallery/publishers/{namespace}/vsextensions/{extension}/{version}/vspackage", routes.download)
	r.Get("/unpkg/{namespace}/{extension}/{version}", routes.browse)
	r.Get("/unpkg/{namespace}/{extension}/{version}/*", routes.browse)

	return r
}

// RegistryRouter creates the router for the /api endpoint family.
func (routes *Routes) RegistryRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/-/public-key/{publicId}", routes.publicKey)
	r.Post("/-/publish", routes.publish)

	return r
}

// item handles GET /vscode/item?itemName={namespace}.{name}
//
// @Summary		Extension item redirect
// @Description	Redirects to the web UI page of an extension
// @Tags		gallery
// @Param		itemName	query	string	true	"Item name of the form {publisher}.{name}"
// @Success		302
// @Failure		400	{object}	map[string]string	"Malformed item name or built-in namespace"
// @Failure		404	{object}	map[string]string	"Extension not found"
// @Router		/vscode/item [get]
func (routes *Routes) item(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Query().Get("itemName"), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		common.WriteErrorResponse(w, "Expecting an item of the form `{publisher}.{name}`", http.StatusBadRequest)
		return
	}
	namespace, name := parts[0], parts[1]
	if routes.rejectBuiltin(w, namespace) {
		return
	}

	_, err := routes.service.GetExtension(r.Context(), service.WithExtensionName[service.GetExtensionOptions](namespace, name))
	if err != nil {
		if errors.Is(err, service.ErrExtensionNotFound) {
			common.WriteErrorResponse(w, "extension not found", http.StatusNotFound)
			return
		}
		common.WriteErrorResponse(w, "Failed to look up extension", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, routes.webUIURL+"/extension/"+namespace+"/"+name, http.StatusFound)
}

// publicKey handles GET /api/-/public-key/{publicId}
//
// @Summary		Signing public key
// @Description	Returns the PEM-encoded public key of a signing key pair
// @Tags		gallery
// @Produce		plain
// @Param		publicId	path	string	true	"Public id of the key pair"
// @Success		200	{string}	string	"PEM document"
// @Failure		404	{object}	map[string]string	"Key pair not found"
// @Router		/api/-/public-key/{publicId} [get]
func (routes *Routes) publicKey(w http.ResponseWriter, r *http.Request) {
	publicID, err := common.GetAndValidateURLParam(r, "publicId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	pem, err := routes.service.GetPublicKey(r.Context(), publicID)
	if err != nil {
		if errors.Is(err, service.ErrKeyPairNotFound) {
			common.WriteErrorResponse(w, "key pair not found", http.StatusNotFound)
			return
		}
		common.WriteErrorResponse(w, "Failed to load public key", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pem)
}

// rejectBuiltin writes the built-in rejection when the namespace is reserved
// for editor built-ins and reports whether it did so.
func (routes *Routes) rejectBuiltin(w http.ResponseWriter, namespace string) bool {
	if !routes.isBuiltin(namespace) {
		return false
	}
	common.WriteErrorResponse(w,
		fmt.Sprintf("Built-in extension namespace '%s' not allowed", namespace),
		http.StatusBadRequest)
	return true
}

// requestBaseURL returns the configured server base, or one derived from the
// request when none is configured.
func (routes *Routes) requestBaseURL(r *http.Request) string {
	if routes.baseURL != "" {
		return routes.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// isNotFound reports whether err is one of the lookup misses that permit an
// upstream fallback.
func isNotFound(err error) bool {
	return errors.Is(err, service.ErrExtensionNotFound) ||
		errors.Is(err, service.ErrVersionNotFound) ||
		errors.Is(err, service.ErrFileNotFound)
}
