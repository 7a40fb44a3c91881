package inmemory

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/search"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

// buildVSIX assembles an extension package zip in memory.
func buildVSIX(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// packageEntries returns the zip entries of a minimal publishable package.
// An empty targetPlatform leaves the attribute out, making the build
// universal.
func packageEntries(publisher, name, version, targetPlatform string) map[string]string {
	manifest := fmt.Sprintf(`{
		"name": %q,
		"publisher": %q,
		"version": %q,
		"displayName": "%s tools",
		"description": "Language support for %s",
		"engines": {"vscode": "^1.31.0"},
		"categories": ["Programming Languages"],
		"keywords": [%q],
		"license": "MIT"
	}`, name, publisher, version, name, name, name)
	platformAttr := ""
	if targetPlatform != "" {
		platformAttr = fmt.Sprintf(" TargetPlatform=%q", targetPlatform)
	}
	vsixManifest := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<PackageManifest Version="2.0.0" xmlns="http://schemas.microsoft.com/developer/vsx-schema/2011">
	<Metadata>
		<Identity Language="en-US" Id=%q Version=%q Publisher=%q%s/>
	</Metadata>
</PackageManifest>`, name, version, publisher, platformAttr)
	return map[string]string{
		"extension/package.json": manifest,
		"extension.vsixmanifest": vsixManifest,
		"extension/README.md":    "# " + name,
		"extension/LICENSE.txt":  "MIT License",
	}
}

func readPackage(t *testing.T, entries map[string]string) *publish.Package {
	t.Helper()
	pkg, err := publish.Read(buildVSIX(t, entries))
	require.NoError(t, err)
	return pkg
}

func mustPublish(t *testing.T, svc service.GalleryService, entries map[string]string) *registry.ExtensionVersion {
	t.Helper()
	v, err := svc.PublishExtension(context.Background(), service.WithPackage(readPackage(t, entries)))
	require.NoError(t, err)
	return v
}

func TestMemService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, err := New(ctx, WithBuiltinNamespaces([]string{"vscode"}))
	require.NoError(t, err)

	pkgBytes := buildVSIX(t, packageEntries("redhat", "vscode-yaml", "0.5.2", ""))
	pkg, err := publish.Read(pkgBytes)
	require.NoError(t, err)
	published, err := svc.PublishExtension(ctx, service.WithPackage(pkg))
	require.NoError(t, err)
	require.NotNil(t, published)

	t.Run("get extension by name and public id", func(t *testing.T) {
		ext, err := svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("RedHat", "VSCODE-YAML"))
		require.NoError(t, err)
		assert.Equal(t, "vscode-yaml", ext.Name)
		assert.Equal(t, "redhat", ext.Namespace.Name)
		require.Len(t, ext.Versions, 1)
		assert.NotNil(t, ext.Versions[0].FindFile(registry.FileTypeDownload))
		assert.NotNil(t, ext.Versions[0].FindFile(registry.FileTypeReadme))

		byID, err := svc.GetExtension(ctx, service.WithExtensionID(ext.PublicID))
		require.NoError(t, err)
		assert.Equal(t, ext.ID, byID.ID)

		_, err = svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("redhat", "missing"))
		assert.ErrorIs(t, err, service.ErrExtensionNotFound)
	})

	t.Run("get version with platform fallback", func(t *testing.T) {
		mustPublish(t, svc, packageEntries("redhat", "vscode-yaml", "0.6.0", "darwin-arm64"))
		mustPublish(t, svc, packageEntries("redhat", "vscode-yaml", "0.6.0", ""))

		exact, err := svc.GetVersion(ctx,
			service.WithExtensionName[service.GetVersionOptions]("redhat", "vscode-yaml"),
			service.WithVersion("0.6.0"),
			service.WithTargetPlatform[service.GetVersionOptions]("darwin-arm64"))
		require.NoError(t, err)
		assert.Equal(t, registry.TargetDarwinARM64, exact.TargetPlatform)

		fallback, err := svc.GetVersion(ctx,
			service.WithExtensionName[service.GetVersionOptions]("redhat", "vscode-yaml"),
			service.WithVersion("0.6.0"),
			service.WithTargetPlatform[service.GetVersionOptions]("win32-x64"))
		require.NoError(t, err)
		assert.Equal(t, registry.TargetUniversal, fallback.TargetPlatform)

		any, err := svc.GetVersion(ctx,
			service.WithExtensionName[service.GetVersionOptions]("redhat", "vscode-yaml"),
			service.WithVersion("0.6.0"))
		require.NoError(t, err)
		assert.Equal(t, registry.TargetUniversal, any.TargetPlatform)

		_, err = svc.GetVersion(ctx,
			service.WithExtensionName[service.GetVersionOptions]("redhat", "vscode-yaml"),
			service.WithVersion("9.9.9"))
		assert.ErrorIs(t, err, service.ErrVersionNotFound)
	})

	t.Run("open file streams inline content", func(t *testing.T) {
		version, err := svc.GetVersion(ctx,
			service.WithExtensionName[service.GetVersionOptions]("redhat", "vscode-yaml"),
			service.WithVersion("0.5.2"))
		require.NoError(t, err)

		download := version.FindFile(registry.FileTypeDownload)
		require.NotNil(t, download)
		rc, err := svc.OpenFile(ctx, version, download)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, pkgBytes, data)

		_, err = svc.OpenFile(ctx, version, &registry.FileResource{Name: "empty"})
		assert.ErrorIs(t, err, service.ErrFileNotFound)
	})

	t.Run("download counter", func(t *testing.T) {
		ext, err := svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("redhat", "vscode-yaml"))
		require.NoError(t, err)
		before := ext.DownloadCount

		require.NoError(t, svc.IncrementDownloads(ctx, ext.ID))

		ext, err = svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("redhat", "vscode-yaml"))
		require.NoError(t, err)
		assert.Equal(t, before+1, ext.DownloadCount)

		assert.ErrorIs(t, svc.IncrementDownloads(ctx, 424242), service.ErrExtensionNotFound)
	})

	t.Run("duplicate version rejected", func(t *testing.T) {
		_, err := svc.PublishExtension(ctx,
			service.WithPackage(readPackage(t, packageEntries("redhat", "vscode-yaml", "0.5.2", ""))))
		assert.ErrorIs(t, err, service.ErrVersionExists)

		// same version string for a new platform is a separate build
		mustPublish(t, svc, packageEntries("redhat", "vscode-yaml", "0.5.2", "linux-x64"))
	})

	t.Run("builtin namespace rejected", func(t *testing.T) {
		_, err := svc.PublishExtension(ctx,
			service.WithPackage(readPackage(t, packageEntries("VSCode", "css", "1.0.0", ""))))
		assert.ErrorIs(t, err, service.ErrBuiltInNamespace)
	})

	t.Run("readiness", func(t *testing.T) {
		assert.NoError(t, svc.CheckReadiness(ctx))
	})
}

func TestMemServiceSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, err := New(ctx)
	require.NoError(t, err)

	mustPublish(t, svc, packageEntries("redhat", "java", "1.0.0", ""))
	mustPublish(t, svc, packageEntries("golang", "go", "0.9.0", ""))
	mustPublish(t, svc, packageEntries("redhat", "vscode-yaml", "0.5.2", ""))
	mustPublish(t, svc, packageEntries("ms-python", "pylance", "2024.8.1", "darwin-arm64"))

	// spread download counts so popularity ordering is deterministic
	java, err := svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("redhat", "java"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.IncrementDownloads(ctx, java.ID))
	}
	yaml, err := svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("redhat", "vscode-yaml"))
	require.NoError(t, err)
	require.NoError(t, svc.IncrementDownloads(ctx, yaml.ID))

	t.Run("empty query matches everything by popularity", func(t *testing.T) {
		results, total, err := svc.SearchExtensions(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, results, 4)
		assert.Equal(t, "java", results[0].Name)
	})

	t.Run("name match outranks description match", func(t *testing.T) {
		results, total, err := svc.SearchExtensions(ctx, service.WithQuery("yaml"))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, "vscode-yaml", results[0].Name)
	})

	t.Run("description match", func(t *testing.T) {
		_, total, err := svc.SearchExtensions(ctx, service.WithQuery("language support"))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
	})

	t.Run("category filter is case-insensitive", func(t *testing.T) {
		results, total, err := svc.SearchExtensions(ctx, service.WithCategory("programming languages"))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, results, 4)

		_, total, err = svc.SearchExtensions(ctx, service.WithCategory("Themes"))
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("target platform keeps universal builds", func(t *testing.T) {
		results, total, err := svc.SearchExtensions(ctx,
			service.WithTargetPlatform[service.SearchExtensionsOptions]("win32-x64"))
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		for _, ext := range results {
			assert.NotEqual(t, "pylance", ext.Name)
		}

		_, total, err = svc.SearchExtensions(ctx,
			service.WithTargetPlatform[service.SearchExtensionsOptions]("darwin-arm64"))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
	})

	t.Run("sort by download count", func(t *testing.T) {
		results, _, err := svc.SearchExtensions(ctx, service.WithSortBy(search.SortDownloadCount))
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, "java", results[0].Name)
		assert.Equal(t, "vscode-yaml", results[1].Name)

		results, _, err = svc.SearchExtensions(ctx,
			service.WithSortBy(search.SortDownloadCount),
			service.WithSortOrder(search.OrderAsc))
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, "java", results[3].Name)
	})

	t.Run("paging", func(t *testing.T) {
		first, total, err := svc.SearchExtensions(ctx, service.WithPage(3, 0))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, first, 3)

		second, total, err := svc.SearchExtensions(ctx, service.WithPage(3, 3))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, second, 1)
		for _, ext := range first {
			assert.NotEqual(t, ext.ID, second[0].ID)
		}

		beyond, total, err := svc.SearchExtensions(ctx, service.WithPage(10, 100))
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Empty(t, beyond)
	})

	t.Run("no match", func(t *testing.T) {
		results, total, err := svc.SearchExtensions(ctx, service.WithQuery("no such extension"))
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Nil(t, results)
	})
}

func TestMemServiceBuiltinsExcludedFromSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// publish with an open service, then search through one that treats the
	// namespace as builtin
	open, err := New(ctx)
	require.NoError(t, err)
	mustPublish(t, open, packageEntries("vscode", "css", "1.0.0", ""))

	svc := open.(*memSvc)
	svc.builtinNamespaces = []string{"vscode"}

	_, total, err := svc.SearchExtensions(ctx, service.WithQuery("css"))
	require.NoError(t, err)
	assert.Zero(t, total)

	// direct lookup still resolves
	_, err = svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("vscode", "css"))
	assert.NoError(t, err)
}

func TestMemServiceSigning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, err := New(ctx, WithSigning(true))
	require.NoError(t, err)

	first := mustPublish(t, svc, packageEntries("redhat", "vscode-yaml", "0.5.2", ""))
	require.NotNil(t, first.SignatureKeyPair)
	assert.NotNil(t, first.FindFile(registry.FileTypeSignature))

	pem, err := svc.GetPublicKey(ctx, first.SignatureKeyPair.PublicID)
	require.NoError(t, err)
	assert.Contains(t, string(pem), "BEGIN PUBLIC KEY")

	second := mustPublish(t, svc, packageEntries("redhat", "vscode-xml", "1.0.0", ""))
	require.NotNil(t, second.SignatureKeyPair)
	assert.Equal(t, first.SignatureKeyPair.PublicID, second.SignatureKeyPair.PublicID)

	_, err = svc.GetPublicKey(ctx, "c3e85702-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, service.ErrKeyPairNotFound)
}

func TestMemServiceLicenseRequired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, err := New(ctx, WithRequireLicense(true))
	require.NoError(t, err)

	entries := packageEntries("redhat", "vscode-yaml", "0.5.2", "")
	entries["extension/package.json"] = `{
		"name": "vscode-yaml",
		"publisher": "redhat",
		"version": "0.5.2",
		"engines": {"vscode": "^1.31.0"}
	}`
	delete(entries, "extension/LICENSE.txt")

	_, err = svc.PublishExtension(ctx, service.WithPackage(readPackage(t, entries)))
	assert.ErrorIs(t, err, service.ErrLicenseRequired)

	// license file alone satisfies the requirement
	entries["extension/LICENSE.txt"] = "MIT License"
	_, err = svc.PublishExtension(ctx, service.WithPackage(readPackage(t, entries)))
	assert.NoError(t, err)
}

func TestMemServiceSeedDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "redhat.vscode-yaml-0.5.2.vsix"),
		buildVSIX(t, packageEntries("redhat", "vscode-yaml", "0.5.2", "")),
		0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "golang.go-0.9.0.vsix"),
		buildVSIX(t, packageEntries("golang", "go", "0.9.0", "")),
		0o600))
	// broken packages are skipped, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.vsix"), []byte("not a zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	svc, err := New(ctx, WithSeedDirectory(dir))
	require.NoError(t, err)

	_, total, err := svc.SearchExtensions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, err = svc.GetExtension(ctx, service.WithExtensionName[service.GetExtensionOptions]("golang", "go"))
	assert.NoError(t, err)

	_, err = New(ctx, WithSeedDirectory(filepath.Join(dir, "missing")))
	assert.Error(t, err)
}
