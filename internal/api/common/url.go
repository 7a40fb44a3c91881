// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetAndValidateURLParam extracts and decodes a URL parameter from the
// request. Parameter values name gallery entities (namespaces, extensions,
// versions, key identifiers) that end up in storage keys and redirect URLs,
// so a decoded value must be a single clean path segment.
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}
	if err := validateSegment(paramName, decoded); err != nil {
		return "", err
	}
	return decoded, nil
}

// validateSegment rejects values that would break out of a single path
// segment once embedded in a storage key or URL.
func validateSegment(name, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Errorf("%s cannot be empty", name)
	case strings.ContainsAny(value, " \t\n\r"):
		return fmt.Errorf("%s cannot contain whitespace", name)
	case strings.ContainsAny(value, `/\`):
		return fmt.Errorf("%s cannot contain path separators", name)
	}
	return nil
}
