package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/service/mocks"
	"github.com/BuckysMyHero/openvsx/internal/upstream"
)

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// yamlVersion builds a resolved version graph the way GetVersion returns it:
// the version back-linked to its extension.
func yamlVersion(opts ...registry.VersionOption) *registry.ExtensionVersion {
	opts = append([]registry.VersionOption{
		registry.WithFiles(
			registry.NewTestFile("redhat.vscode-yaml-0.5.2.vsix", registry.FileTypeDownload, []byte("vsix bytes")),
			registry.NewTestFile("package.json", registry.FileTypeManifest, []byte(`{"name":"vscode-yaml"}`)),
			registry.NewTestFile("extension.vsixmanifest", registry.FileTypeVSIXManifest, []byte("<xml/>")),
			registry.NewTestFile("extension/package.json", registry.FileTypeResource, []byte("{}")),
			registry.NewTestFile("extension/README.md", registry.FileTypeResource, []byte("# readme")),
			registry.NewTestFile("extension/images/icon128.png", registry.FileTypeResource, []byte("png")),
		),
	}, opts...)
	ext := registry.NewTestExtension("redhat", "vscode-yaml",
		registry.WithVersions(registry.NewTestVersion("0.5.2", opts...)))
	return ext.Versions[0]
}

func expectVersion(t *testing.T, m *mocks.MockGalleryService, wantPlatform string, v *registry.ExtensionVersion) {
	t.Helper()
	m.EXPECT().GetVersion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, opts ...service.Option[service.GetVersionOptions]) (*registry.ExtensionVersion, error) {
			var o service.GetVersionOptions
			for _, opt := range opts {
				require.NoError(t, opt(&o))
			}
			assert.Equal(t, "redhat", o.Namespace)
			assert.Equal(t, "vscode-yaml", o.Extension)
			assert.Equal(t, "0.5.2", o.Version)
			assert.Equal(t, wantPlatform, o.TargetPlatform)
			return v, nil
		})
}

func expectOpen(m *mocks.MockGalleryService) {
	m.EXPECT().OpenFile(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *registry.ExtensionVersion, file *registry.FileResource) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(file.Content)), nil
		})
}

func TestAssetServesManifest(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())
	expectOpen(mockSvc)

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.Manifest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"name":"vscode-yaml"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAssetIgnoresInvalidTargetPlatform(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	// The bogus platform must not reach version resolution.
	expectVersion(t, mockSvc, "", yamlVersion())
	expectOpen(mockSvc)

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.Manifest?targetPlatform=commodore-64")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssetTargetPlatform(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "darwin-arm64", yamlVersion(registry.WithTargetPlatform("darwin-arm64")))
	expectOpen(mockSvc)

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.Manifest?targetPlatform=darwin-arm64")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssetUnknownType(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Something.Unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetWebResource(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())
	expectOpen(mockSvc)

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.WebResources/extension/images/icon128.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestAssetWebResourceOutsideExtensionDir(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.WebResources/img/logo.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetPublicKeyRedirect(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion(registry.WithKeyPair("1e5f2e4e-63d2-4a1b-9d29-1c4ef7f3c3a4")))

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Services.PublicKey")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testBase+"/api/-/public-key/1e5f2e4e-63d2-4a1b-9d29-1c4ef7f3c3a4",
		rec.Header().Get("Location"))
}

func TestAssetPublicKeyWithoutKeyPair(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Services.PublicKey")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetBuiltinNamespace(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	handler := newTestRouter(mockSvc, WithBuiltinNamespaces([]string{"vscode"}))
	rec := get(t, handler, "/vscode/asset/vscode/css/1.0.0/Microsoft.VisualStudio.Code.Manifest")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Built-in extension namespace 'vscode' not allowed")
}

func TestAssetDownloadCountsDownload(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	version := yamlVersion()
	expectVersion(t, mockSvc, "", version)
	expectOpen(mockSvc)

	counted := make(chan int64, 1)
	mockSvc.EXPECT().IncrementDownloads(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, extensionID int64) error {
			counted <- extensionID
			return nil
		})

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Services.VSIXPackage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vsix bytes", rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	select {
	case id := <-counted:
		assert.Equal(t, version.Extension.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("download was not counted")
	}
}

func TestAssetNotFound(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	mockSvc.EXPECT().GetVersion(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: redhat.vscode-yaml 9.9.9", service.ErrVersionNotFound))

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/asset/redhat/vscode-yaml/9.9.9/Microsoft.VisualStudio.Code.Manifest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "version not found")
}

func TestAssetUpstreamRedirect(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	mockSvc.EXPECT().GetVersion(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: redhat.vscode-yaml", service.ErrExtensionNotFound))

	handler := newTestRouter(mockSvc, WithUpstream(upstream.NewDefaultClient("https://open-vsx.org", 0)))
	rec := get(t, handler,
		"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.Manifest?targetPlatform=linux-x64")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"https://open-vsx.org/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Code.Manifest?targetPlatform=linux-x64",
		rec.Header().Get("Location"))
}

func TestDownloadRedirect(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/gallery/publishers/redhat/vsextensions/vscode-yaml/0.5.2/vspackage")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		testBase+"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Services.VSIXPackage",
		rec.Header().Get("Location"))
}

func TestDownloadRedirectTargetPlatform(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "darwin-arm64", yamlVersion(registry.WithTargetPlatform("darwin-arm64")))

	rec := get(t, newTestRouter(mockSvc),
		"/vscode/gallery/publishers/redhat/vsextensions/vscode-yaml/0.5.2/vspackage?targetPlatform=darwin-arm64")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		testBase+"/vscode/asset/redhat/vscode-yaml/0.5.2/Microsoft.VisualStudio.Services.VSIXPackage?targetPlatform=darwin-arm64",
		rec.Header().Get("Location"))
}

func TestDownloadBuiltinNamespace(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	handler := newTestRouter(mockSvc, WithBuiltinNamespaces([]string{"vscode"}))
	rec := get(t, handler, "/vscode/gallery/publishers/vscode/vsextensions/css/1.0.0/vspackage")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Built-in extension namespace 'vscode' not allowed")
}

func TestDownloadUpstreamRedirect(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	mockSvc.EXPECT().GetVersion(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: redhat.vscode-yaml", service.ErrExtensionNotFound))

	handler := newTestRouter(mockSvc, WithUpstream(upstream.NewDefaultClient("https://open-vsx.org", 0)))
	rec := get(t, handler, "/vscode/gallery/publishers/redhat/vsextensions/vscode-yaml/0.5.2/vspackage")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"https://open-vsx.org/vscode/gallery/publishers/redhat/vsextensions/vscode-yaml/0.5.2/vspackage",
		rec.Header().Get("Location"))
}

func TestBrowseTopDir(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc), "/vscode/unpkg/redhat/vscode-yaml/0.5.2")
	require.Equal(t, http.StatusOK, rec.Code)

	var urls []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &urls))
	assert.Equal(t, []string{
		testBase + "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension.vsixmanifest",
		testBase + "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/",
	}, urls)
}

func TestBrowseDirListing(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc), "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/")
	require.Equal(t, http.StatusOK, rec.Code)

	var urls []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &urls))
	assert.Equal(t, []string{
		testBase + "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/package.json",
		testBase + "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/README.md",
		testBase + "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/images/",
	}, urls)
}

func TestBrowseExactFile(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())
	expectOpen(mockSvc)

	rec := get(t, newTestRouter(mockSvc), "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/README.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# readme", rec.Body.String())
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
}

func TestBrowseNoMatch(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)
	expectVersion(t, mockSvc, "", yamlVersion())

	rec := get(t, newTestRouter(mockSvc), "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/img")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no package resources found")
}

func TestBrowseBuiltinNamespace(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	handler := newTestRouter(mockSvc, WithBuiltinNamespaces([]string{"vscode"}))
	rec := get(t, handler, "/vscode/unpkg/vscode/css/1.0.0/extension/img")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Built-in extension namespace 'vscode' not allowed")
}

func TestBrowseUpstreamRedirect(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockGalleryService(ctrl)

	mockSvc.EXPECT().GetVersion(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: redhat.vscode-yaml", service.ErrExtensionNotFound))

	handler := newTestRouter(mockSvc, WithUpstream(upstream.NewDefaultClient("https://open-vsx.org", 0)))
	rec := get(t, handler, "/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/package.json")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"https://open-vsx.org/vscode/unpkg/redhat/vscode-yaml/0.5.2/extension/package.json",
		rec.Header().Get("Location"))
}
