package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BuckysMyHero/openvsx/internal/app/storage"
	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/publish"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

var loadCmd = &cobra.Command{
	Use:   "load [directory]",
	Short: "Load extension packages into the gallery",
	Long: `Load the .vsix packages from a directory into the configured gallery store.

This command:
- Reads every .vsix file in the directory (non-recursively)
- Validates each package manifest
- Publishes each extension under its manifest namespace and version

The command uses the --config option to select the backing store. Packages
that do not process cleanly are skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	loadCmd.Flags().Bool("dry-run", false, "Validate the packages and print what would be published")

	if err := loadCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

// loadEntry pairs a parsed package with the file it came from.
type loadEntry struct {
	path string
	pkg  *publish.Package
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dir := args[0]
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	entries, err := collectPackages(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no usable .vsix packages found in %s", dir)
	}

	if dryRun {
		for _, entry := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s %s %s\n",
				entry.pkg.Namespace, entry.pkg.Name, entry.pkg.Version, entry.pkg.TargetPlatform)
		}
		return nil
	}

	return publishPackages(ctx, cfg, entries)
}

// collectPackages reads and parses the .vsix files in dir, a few at a time.
// Files that fail to parse are reported and skipped; read failures abort the
// load.
func collectPackages(dir string) ([]loadEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !strings.EqualFold(filepath.Ext(dirEntry.Name()), ".vsix") {
			continue
		}
		paths = append(paths, filepath.Join(dir, dirEntry.Name()))
	}

	// Parse in parallel; unzipping large packages is the slow part.
	parsed := make([]*publish.Package, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			pkg, err := publish.Read(content)
			if err != nil {
				slog.Warn("Skipping package", "path", path, "error", err)
				return nil
			}
			parsed[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []loadEntry
	for i, pkg := range parsed {
		if pkg != nil {
			entries = append(entries, loadEntry{path: paths[i], pkg: pkg})
		}
	}
	return entries, nil
}

func publishPackages(ctx context.Context, cfg *config.Config, entries []loadEntry) error {
	factory, err := storage.NewStorageFactory(ctx, cfg, "")
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	svc, err := factory.CreateGalleryService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create gallery service: %w", err)
	}

	published := 0
	for _, entry := range entries {
		version, err := svc.PublishExtension(ctx, service.WithPackage(entry.pkg))
		if err != nil {
			slog.Warn("Skipping package", "path", entry.path, "error", err)
			continue
		}
		slog.Info("Published extension",
			"namespace", entry.pkg.Namespace,
			"extension", entry.pkg.Name,
			"version", version.Version)
		published++
	}

	slog.Info("Gallery load complete", "published", published, "skipped", len(entries)-published)
	if published == 0 {
		return fmt.Errorf("no packages could be published")
	}
	return nil
}
