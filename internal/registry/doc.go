// Package registry contains the domain model of the extension gallery:
// namespaces, extensions, versions, file resources and signature key pairs,
// together with target-platform handling and the version ordering rules used
// to pick the latest version of an extension.
//
// The types here are persistence-agnostic. The database store maps them to
// tables, the in-memory service holds them directly, and the gallery adapter
// renders them into marketplace wire types.
//
// # Test Utilities
//
// The package provides builder functions following the options pattern for
// assembling realistic fixtures without manual struct wiring:
//
//	ext := registry.NewTestExtension("redhat", "vscode-yaml",
//	    registry.WithPublicID("test-1"),
//	    registry.WithDownloadCount(100),
//	    registry.WithVersions(
//	        registry.NewTestVersion("0.5.2",
//	            registry.WithDisplayName("YAML"),
//	            registry.WithEngines("vscode@^1.31.0"),
//	        ),
//	    ),
//	)
package registry
