package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/search"
)

func TestWithExtensionID(t *testing.T) {
	t.Parallel()

	var opts GetExtensionOptions
	require.NoError(t, WithExtensionID("test-1")(&opts))
	assert.Equal(t, "test-1", opts.PublicID)

	assert.Error(t, WithExtensionID("")(&opts))
}

func TestWithExtensionName(t *testing.T) {
	t.Parallel()

	var extOpts GetExtensionOptions
	require.NoError(t, WithExtensionName[GetExtensionOptions]("redhat", "vscode-yaml")(&extOpts))
	assert.Equal(t, "redhat", extOpts.Namespace)
	assert.Equal(t, "vscode-yaml", extOpts.Name)

	var verOpts GetVersionOptions
	require.NoError(t, WithExtensionName[GetVersionOptions]("redhat", "vscode-yaml")(&verOpts))
	assert.Equal(t, "redhat", verOpts.Namespace)
	assert.Equal(t, "vscode-yaml", verOpts.Extension)

	assert.Error(t, WithExtensionName[GetExtensionOptions]("", "vscode-yaml")(&extOpts))
	assert.Error(t, WithExtensionName[GetExtensionOptions]("redhat", "")(&extOpts))
}

func TestWithTargetPlatform(t *testing.T) {
	t.Parallel()

	var verOpts GetVersionOptions
	require.NoError(t, WithTargetPlatform[GetVersionOptions]("darwin-arm64")(&verOpts))
	assert.Equal(t, "darwin-arm64", verOpts.TargetPlatform)

	var searchOpts SearchExtensionsOptions
	require.NoError(t, WithTargetPlatform[SearchExtensionsOptions]("linux-x64")(&searchOpts))
	assert.Equal(t, "linux-x64", searchOpts.TargetPlatform)

	assert.Error(t, WithTargetPlatform[GetVersionOptions]("solaris-sparc")(&verOpts))
	assert.Error(t, WithTargetPlatform[GetVersionOptions]("")(&verOpts))
}

func TestWithVersion(t *testing.T) {
	t.Parallel()

	var opts GetVersionOptions
	require.NoError(t, WithVersion("0.5.2")(&opts))
	assert.Equal(t, "0.5.2", opts.Version)

	assert.Error(t, WithVersion("")(&opts))
}

func TestSearchOptions(t *testing.T) {
	t.Parallel()

	var opts SearchExtensionsOptions
	require.NoError(t, WithQuery("yaml")(&opts))
	require.NoError(t, WithCategory("Programming Languages")(&opts))
	require.NoError(t, WithPage(50, 100)(&opts))
	require.NoError(t, WithSortBy(search.SortDownloadCount)(&opts))
	require.NoError(t, WithSortOrder(search.OrderAsc)(&opts))

	assert.Equal(t, SearchExtensionsOptions{
		Query:     "yaml",
		Category:  "Programming Languages",
		Size:      50,
		Offset:    100,
		SortBy:    search.SortDownloadCount,
		SortOrder: search.OrderAsc,
	}, opts)
}

func TestSearchOptionsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option[SearchExtensionsOptions]
	}{
		{name: "empty query", opt: WithQuery("")},
		{name: "empty category", opt: WithCategory("")},
		{name: "zero page size", opt: WithPage(0, 0)},
		{name: "negative offset", opt: WithPage(10, -1)},
		{name: "unknown sort key", opt: WithSortBy("popularity")},
		{name: "unknown sort order", opt: WithSortOrder("sideways")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var opts SearchExtensionsOptions
			assert.Error(t, tt.opt(&opts))
		})
	}
}

func TestWithPackage(t *testing.T) {
	t.Parallel()

	var opts PublishExtensionOptions
	pkg := &publish.Package{Namespace: "redhat", Name: "vscode-yaml", Version: "0.5.2"}
	require.NoError(t, WithPackage(pkg)(&opts))
	assert.Same(t, pkg, opts.Package)

	assert.Error(t, WithPackage(nil)(&opts))
}
