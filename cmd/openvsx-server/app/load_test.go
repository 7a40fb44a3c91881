package app

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loadTestManifest = `{
	"name": "vscode-yaml",
	"publisher": "redhat",
	"version": "0.5.2",
	"displayName": "YAML",
	"description": "YAML Language Support",
	"engines": {"vscode": "^1.31.0"},
	"license": "MIT"
}`

const loadTestVsixManifest = `<?xml version="1.0" encoding="utf-8"?>
<PackageManifest Version="2.0.0" xmlns="http://schemas.microsoft.com/developer/vsx-schema/2011">
	<Metadata>
		<Identity Language="en-US" Id="vscode-yaml" Version="0.5.2" Publisher="redhat"/>
	</Metadata>
</PackageManifest>`

// writeVsix assembles a minimal extension package under dir.
func writeVsix(t *testing.T, dir, name string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := map[string]string{
		"extension/package.json":      loadTestManifest,
		"extension.vsixmanifest":      loadTestVsixManifest,
		"extension/README.md":         "# YAML",
		"extension/LICENSE.txt":       "MIT License",
		"extension/dist/extension.js": "exports.activate = () => {};",
	}
	for entryName, content := range entries {
		w, err := zw.Create(entryName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

// writeGalleryConfig writes a minimal in-memory configuration file.
func writeGalleryConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  baseUrl: \"https://gallery.test\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// newLoadCommand builds a fresh command wired to runLoad so tests can run
// in parallel without sharing flag state.
func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "load [directory]",
		Args: cobra.ExactArgs(1),
		RunE: runLoad,
	}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("dry-run", false, "")
	return cmd
}

func TestCollectPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeVsix(t, dir, "redhat.vscode-yaml-0.5.2.vsix")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.vsix"), []byte("not a zip"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.vsix"), 0700))

	entries, err := collectPackages(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "redhat", entries[0].pkg.Namespace)
	assert.Equal(t, "vscode-yaml", entries[0].pkg.Name)
	assert.Equal(t, "0.5.2", entries[0].pkg.Version)
}

func TestCollectPackagesMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := collectPackages("/does/not/exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read directory")
}

func TestRunLoadDryRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeVsix(t, dir, "redhat.vscode-yaml-0.5.2.vsix")

	out := new(bytes.Buffer)
	cmd := newLoadCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{dir, "--config", writeGalleryConfig(t), "--dry-run"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "redhat.vscode-yaml 0.5.2 universal\n", out.String())
}

func TestRunLoadInMemory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeVsix(t, dir, "redhat.vscode-yaml-0.5.2.vsix")

	cmd := newLoadCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{dir, "--config", writeGalleryConfig(t)})

	require.NoError(t, cmd.Execute())
}

func TestRunLoadNoPackages(t *testing.T) {
	t.Parallel()

	cmd := newLoadCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{t.TempDir(), "--config", writeGalleryConfig(t)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable .vsix packages found")
}
