package gallery

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/gallery"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

// extensionQuery handles POST /vscode/gallery/extensionquery
//
// @Summary		Query extensions
// @Description	Runs a marketplace extension query: direct id/name lookups or a search
// @Tags		gallery
// @Accept		json
// @Produce		json
// @Success		200	{object}	gallery.QueryResponse
// @Failure		400	{object}	map[string]string	"Malformed query"
// @Router		/vscode/gallery/extensionquery [post]
func (routes *Routes) extensionQuery(w http.ResponseWriter, r *http.Request) {
	var req gallery.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid query: malformed JSON body", http.StatusBadRequest)
		return
	}

	if len(req.Filters) == 0 {
		common.WriteJSONResponse(w, gallery.NewQueryResponse(nil, 0), http.StatusOK)
		return
	}
	filter := req.Filters[0]
	targetPlatform := queryTargetPlatform(filter)

	var (
		extensions []*registry.Extension
		total      int64
		err        error
	)
	ids := filter.FindCriteria(gallery.FilterExtensionID)
	names := filter.FindCriteria(gallery.FilterExtensionName)
	switch {
	case len(ids) > 0:
		extensions, err = routes.lookupByID(r, ids)
		total = int64(len(extensions))
	case len(names) > 0:
		extensions, err = routes.lookupByName(r, names)
		total = int64(len(extensions))
	default:
		extensions, total, err = routes.searchExtensions(r, filter, targetPlatform)
	}
	if err != nil {
		common.WriteErrorResponse(w, "Failed to run extension query", http.StatusInternalServerError)
		return
	}

	if total == 0 && routes.upstream != nil {
		proxied, err := routes.upstream.Query(r.Context(), &req)
		if err == nil {
			common.WriteJSONResponse(w, proxied, http.StatusOK)
			return
		}
		slog.WarnContext(r.Context(), "Upstream query failed", "error", err)
	}

	rend := gallery.NewRenderer(routes.requestBaseURL(r), req.Flags, targetPlatform)
	out := make([]gallery.Extension, 0, len(extensions))
	for _, ext := range extensions {
		if wire, ok := rend.Extension(ext); ok {
			out = append(out, wire)
		}
	}
	common.WriteJSONResponse(w, gallery.NewQueryResponse(out, total), http.StatusOK)
}

// lookupByID resolves FilterExtensionID criteria in order. Unknown ids and
// built-in namespaces yield no entry; duplicates are dropped.
func (routes *Routes) lookupByID(r *http.Request, ids []string) ([]*registry.Extension, error) {
	var out []*registry.Extension
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		ext, err := routes.service.GetExtension(r.Context(), service.WithExtensionID(id))
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if routes.isBuiltin(ext.NamespaceName()) || seen[ext.PublicID] {
			continue
		}
		seen[id] = true
		seen[ext.PublicID] = true
		out = append(out, ext)
	}
	return out, nil
}

// lookupByName resolves FilterExtensionName criteria of the form
// {namespace}.{name} in order. Malformed values, unknown extensions and
// built-in namespaces yield no entry; duplicates are dropped.
func (routes *Routes) lookupByName(r *http.Request, names []string) ([]*registry.Extension, error) {
	var out []*registry.Extension
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		parts := strings.Split(name, ".")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		if routes.isBuiltin(parts[0]) {
			continue
		}
		ext, err := routes.service.GetExtension(r.Context(),
			service.WithExtensionName[service.GetExtensionOptions](parts[0], parts[1]))
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if seen[ext.PublicID] {
			continue
		}
		seen[ext.PublicID] = true
		out = append(out, ext)
	}
	return out, nil
}

// searchExtensions runs the search path of an extension query.
func (routes *Routes) searchExtensions(
	r *http.Request,
	filter gallery.QueryFilter,
	targetPlatform string,
) ([]*registry.Extension, int64, error) {
	opts := []service.Option[service.SearchExtensionsOptions]{}

	if query := strings.TrimSpace(strings.Join(filter.FindCriteria(gallery.FilterSearchText), " ")); query != "" {
		opts = append(opts, service.WithQuery(query))
	}
	if categories := filter.FindCriteria(gallery.FilterCategory); len(categories) > 0 && categories[0] != "" {
		opts = append(opts, service.WithCategory(categories[0]))
	}
	if targetPlatform != "" {
		opts = append(opts, service.WithTargetPlatform[service.SearchExtensionsOptions](targetPlatform))
	}

	size := filter.PageSize
	if size <= 0 {
		size = search.DefaultSize
	}
	if size > search.MaxSize {
		size = search.MaxSize
	}
	page := filter.PageNumber
	if page < 1 {
		page = 1
	}
	opts = append(opts, service.WithPage(size, (page-1)*size))

	if sortBy := querySortBy(filter.SortBy); sortBy != "" {
		opts = append(opts, service.WithSortBy(sortBy))
	}
	if filter.SortOrder == 1 {
		opts = append(opts, service.WithSortOrder(search.OrderAsc))
	}

	return routes.service.SearchExtensions(r.Context(), opts...)
}

// queryTargetPlatform extracts the target platform from the TARGET criteria.
// Values that are not platform names, such as the literal
// Microsoft.VisualStudio.Code installation target, do not narrow anything.
func queryTargetPlatform(filter gallery.QueryFilter) string {
	for _, value := range filter.FindCriteria(gallery.FilterTarget) {
		if registry.IsValidTargetPlatform(value) {
			return value
		}
	}
	return ""
}

// querySortBy maps the wire sortBy codes to search sort keys. Unknown codes
// sort by relevance.
func querySortBy(sortBy int) string {
	switch sortBy {
	case 4:
		return search.SortDownloadCount
	case 5:
		return search.SortTimestamp
	case 6:
		return search.SortAverageRating
	default:
		return ""
	}
}

func (routes *Routes) isBuiltin(namespace string) bool {
	for _, builtin := range routes.builtins {
		if strings.EqualFold(builtin, namespace) {
			return true
		}
	}
	return false
}
