package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/gallery"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/storage"
)

// asset handles GET /vscode/asset/{namespace}/{extension}/{version}/{assetType...}
//
// @Summary		Serve an extension asset
// @Description	Streams one asset of an extension version, resolving the target platform with universal fallback
// @Tags		gallery
// @Param		namespace	path	string	true	"Namespace name"
// @Param		extension	path	string	true	"Extension name"
// @Param		version		path	string	true	"Version string"
// @Param		assetType	path	string	true	"Asset type identifier"
// @Param		targetPlatform	query	string	false	"Target platform name"
// @Success		200	{file}		binary
// @Failure		400	{object}	map[string]string	"Built-in namespace"
// @Failure		404	{object}	map[string]string	"Asset not found"
// @Router		/vscode/asset/{namespace}/{extension}/{version}/{assetType} [get]
func (routes *Routes) asset(w http.ResponseWriter, r *http.Request) {
	namespace, extension, version, ok := galleryParams(w, r)
	if !ok || routes.rejectBuiltin(w, namespace) {
		return
	}
	assetType, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || assetType == "" {
		common.WriteErrorResponse(w, "asset not found", http.StatusNotFound)
		return
	}
	targetPlatform := r.URL.Query().Get("targetPlatform")

	v, err := routes.resolveVersion(r, namespace, extension, version, targetPlatform)
	if err != nil {
		if isNotFound(err) {
			if routes.upstream != nil {
				http.Redirect(w, r, routes.upstream.AssetURL(namespace, extension, version, assetType, targetPlatform), http.StatusFound)
				return
			}
			common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
			return
		}
		common.WriteErrorResponse(w, "Failed to resolve version", http.StatusInternalServerError)
		return
	}

	if assetType == gallery.AssetPublicKey {
		if v.SignatureKeyPair == nil {
			common.WriteErrorResponse(w, "asset not found", http.StatusNotFound)
			return
		}
		http.Redirect(w, r,
			routes.requestBaseURL(r)+"/api/-/public-key/"+url.PathEscape(v.SignatureKeyPair.PublicID),
			http.StatusFound)
		return
	}

	var file *registry.FileResource
	if resource, isWebResource := strings.CutPrefix(assetType, gallery.AssetWebResources+"/"); isWebResource {
		if strings.HasPrefix(resource, "extension/") {
			file = v.FindFileByName(resource)
		}
	} else if fileType, known := gallery.FileTypeForAsset(assetType); known {
		file = v.FindFile(fileType)
	}
	if file == nil {
		if routes.upstream != nil {
			http.Redirect(w, r, routes.upstream.AssetURL(namespace, extension, version, assetType, targetPlatform), http.StatusFound)
			return
		}
		common.WriteErrorResponse(w, "asset not found", http.StatusNotFound)
		return
	}

	if routes.serveFile(w, r, v, file) && file.Type == registry.FileTypeDownload {
		routes.countDownload(r.Context(), v.Extension)
	}
}

// download handles GET /vscode/gallery/publishers/{namespace}/vsextensions/{extension}/{version}/vspackage
//
// @Summary		Download redirect
// @Description	Redirects to the VSIX package asset of the resolved version
// @Tags		gallery
// @Param		namespace	path	string	true	"Namespace name"
// @Param		extension	path	string	true	"Extension name"
// @Param		version		path	string	true	"Version string"
// @Param		targetPlatform	query	string	false	"Target platform name"
// @Success		302
// @Failure		400	{object}	map[string]string	"Built-in namespace"
// @Failure		404	{object}	map[string]string	"Version not found"
// @Router		/vscode/gallery/publishers/{namespace}/vsextensions/{extension}/{version}/vspackage [get]
func (routes *Routes) download(w http.ResponseWriter, r *http.Request) {
	namespace, extension, version, ok := galleryParams(w, r)
	if !ok || routes.rejectBuiltin(w, namespace) {
		return
	}
	targetPlatform := r.URL.Query().Get("targetPlatform")

	v, err := routes.resolveVersion(r, namespace, extension, version, targetPlatform)
	if err != nil {
		if isNotFound(err) {
			if routes.upstream != nil {
				http.Redirect(w, r, routes.upstream.DownloadURL(namespace, extension, version, targetPlatform), http.StatusFound)
				return
			}
			common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
			return
		}
		common.WriteErrorResponse(w, "Failed to resolve version", http.StatusInternalServerError)
		return
	}

	rend := gallery.NewRenderer(routes.requestBaseURL(r), 0, "")
	assetURL := rend.AssetURL(v.Extension.NamespaceName(), v.Extension.Name, v.Version, gallery.AssetVSIX, v.TargetPlatform)
	http.Redirect(w, r, assetURL, http.StatusFound)
}

// browse handles GET /vscode/unpkg/{namespace}/{extension}/{version}[/{path...}]
//
// @Summary		Browse package contents
// @Description	Streams a file inside the package, or lists a directory as a JSON array of URLs
// @Tags		gallery
// @Produce		json
// @Param		namespace	path	string	true	"Namespace name"
// @Param		extension	path	string	true	"Extension name"
// @Param		version		path	string	true	"Version string"
// @Param		path		path	string	false	"Path inside the package"
// @Success		200
// @Failure		400	{object}	map[string]string	"Built-in namespace"
// @Failure		404	{object}	map[string]string	"No package resources found"
// @Router		/vscode/unpkg/{namespace}/{extension}/{version}/{path} [get]
func (routes *Routes) browse(w http.ResponseWriter, r *http.Request) {
	namespace, extension, version, ok := galleryParams(w, r)
	if !ok || routes.rejectBuiltin(w, namespace) {
		return
	}
	browsePath, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		common.WriteErrorResponse(w, "no package resources found", http.StatusNotFound)
		return
	}

	v, err := routes.resolveVersion(r, namespace, extension, version, "")
	if err != nil {
		if isNotFound(err) {
			if routes.upstream != nil {
				http.Redirect(w, r, routes.upstream.BrowseURL(namespace, extension, version, browsePath), http.StatusFound)
				return
			}
			common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
			return
		}
		common.WriteErrorResponse(w, "Failed to resolve version", http.StatusInternalServerError)
		return
	}

	for _, file := range v.Files {
		if browsable(file) && file.Name == browsePath {
			routes.serveFile(w, r, v, file)
			return
		}
	}

	urls := browseListing(routes.requestBaseURL(r), namespace, extension, version, browsePath, v.Files)
	if len(urls) == 0 {
		common.WriteErrorResponse(w, "no package resources found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, urls, http.StatusOK)
}

// browseListing lists the immediate children under a directory prefix as
// absolute unpkg URLs: files directly, subdirectories with a trailing slash.
func browseListing(baseURL, namespace, extension, version, browsePath string, files []*registry.FileResource) []string {
	prefix := browsePath
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	base := fmt.Sprintf("%s/vscode/unpkg/%s/%s/%s",
		baseURL, url.PathEscape(namespace), url.PathEscape(extension), url.PathEscape(version))

	var urls []string
	seen := make(map[string]bool)
	for _, file := range files {
		if !browsable(file) {
			continue
		}
		child, ok := strings.CutPrefix(file.Name, prefix)
		if !ok || child == "" {
			continue
		}
		if i := strings.IndexByte(child, '/'); i >= 0 {
			child = child[:i+1]
		}
		u := base + "/" + escapePath(prefix+child)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// browsable reports whether a file is part of the package tree exposed by
// unpkg: the per-entry resources plus the vsixmanifest.
func browsable(file *registry.FileResource) bool {
	return file.Type == registry.FileTypeResource || file.Type == registry.FileTypeVSIXManifest
}

// galleryParams extracts and validates the namespace/extension/version path
// parameters shared by the asset, download and browse endpoints.
func galleryParams(w http.ResponseWriter, r *http.Request) (namespace, extension, version string, ok bool) {
	var err error
	if namespace, err = common.GetAndValidateURLParam(r, "namespace"); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", "", "", false
	}
	if extension, err = common.GetAndValidateURLParam(r, "extension"); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", "", "", false
	}
	if version, err = common.GetAndValidateURLParam(r, "version"); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", "", "", false
	}
	return namespace, extension, version, true
}

// resolveVersion resolves one version through the service, ignoring target
// platform values that are not valid platform names.
func (routes *Routes) resolveVersion(
	r *http.Request,
	namespace, extension, version, targetPlatform string,
) (*registry.ExtensionVersion, error) {
	opts := []service.Option[service.GetVersionOptions]{
		service.WithExtensionName[service.GetVersionOptions](namespace, extension),
		service.WithVersion(version),
	}
	if registry.IsValidTargetPlatform(targetPlatform) {
		opts = append(opts, service.WithTargetPlatform[service.GetVersionOptions](targetPlatform))
	}
	return routes.service.GetVersion(r.Context(), opts...)
}

// serveFile streams one file resource to the client and reports whether the
// content was opened successfully.
func (routes *Routes) serveFile(
	w http.ResponseWriter,
	r *http.Request,
	v *registry.ExtensionVersion,
	file *registry.FileResource,
) bool {
	content, err := routes.service.OpenFile(r.Context(), v, file)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			common.WriteErrorResponse(w, "asset not found", http.StatusNotFound)
			return false
		}
		common.WriteErrorResponse(w, "Failed to open file", http.StatusInternalServerError)
		return false
	}
	defer func() {
		_ = content.Close()
	}()

	w.Header().Set("Content-Type", storage.MediaType(file.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		slog.DebugContext(r.Context(), "Asset stream aborted", "file", file.Name, "error", err)
	}
	return true
}

// countDownload bumps the extension's download counter without holding up
// the response. Failures are logged and otherwise ignored.
func (routes *Routes) countDownload(ctx context.Context, ext *registry.Extension) {
	if ext == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	routes.metrics.RecordDownload(ctx, ext.NamespaceName(), ext.Name)
	go func() {
		if err := routes.service.IncrementDownloads(ctx, ext.ID); err != nil {
			slog.WarnContext(ctx, "Failed to count download", "extension", ext.Name, "error", err)
		}
	}()
}

// escapePath escapes each segment of a package path for use in a URL.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
