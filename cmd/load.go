package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/bundle"
	"github.com/IBM/igc-x-json-schema/internal/catalog"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
	"github.com/IBM/igc-x-json-schema/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newLoadCmd creates the `load` command: compile JSON Schema documents into
// an asset bundle and post it to the catalog (or write it to a file).
func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load JSON Schema documents into the catalog as an asset bundle",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindCatalogFlags(cmd); err != nil {
				return err
			}
			for flag, key := range map[string]string{
				"input":     "load.input",
				"bundle-id": "load.bundle_id",
				"output":    "load.output",
				"dry-run":   "load.dry_run",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if cfg.Load.Input == "" {
				return fmt.Errorf("load requires an input file or directory (--input)")
			}

			files, err := collectSchemaFiles(cfg.Load.Input)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no schema documents found under %s", cfg.Load.Input)
			}

			contents, err := readAll(ctx, files)
			if err != nil {
				return err
			}

			// Phase one: build the asset tree. A document that fails to
			// compile is skipped; the rest of the batch still loads.
			builder := bundle.NewBuilder(cfg.Load.BundleID, logger)
			var compiled, failed int
			for _, file := range files {
				chain, err := builder.AddDocument(contents[file])
				if err != nil {
					failed++
					logger.Error("Failed to compile schema document",
						zap.String("file", file),
						zap.Error(err))
					continue
				}
				compiled++
				annotateFromSidecar(builder, chain, file, logger)
			}
			if compiled == 0 {
				return fmt.Errorf("no schema documents compiled (%d failed)", failed)
			}

			// Phase two: resolve $refs into edges and assemble the batch.
			assetBundle := builder.Bundle()
			logger.Info("Asset bundle built",
				zap.Int("documents", compiled),
				zap.Int("failed", failed),
				zap.Int("assets", len(assetBundle.Assets)),
				zap.Int("references", len(assetBundle.References)))

			if cfg.Load.Output != "" {
				if err := writeBundle(assetBundle, cfg.Load.Output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bundle written to %s\n", cfg.Load.Output)
			}

			if cfg.Load.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d assets, %d references (not posted)\n",
					len(assetBundle.Assets), len(assetBundle.References))
				return nil
			}

			client, err := catalog.New(cfg.Catalog, logger)
			if err != nil {
				return fmt.Errorf("failed to open catalog session: %w", err)
			}
			defer client.Close(ctx)

			if err := client.CreateBundleAssets(ctx, assetBundle); err != nil {
				return fmt.Errorf("failed to create bundle assets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d assets into bundle %s\n",
				len(assetBundle.Assets), cfg.Load.BundleID)
			return nil
		},
	}

	addCatalogFlags(loadCmd)
	loadCmd.Flags().StringP("input", "i", "", "Schema file or directory of schema files")
	loadCmd.Flags().String("bundle-id", "JSchema", "Bundle identifier the assets are created under")
	loadCmd.Flags().StringP("output", "o", "", "Write the bundle document to this file")
	loadCmd.Flags().Bool("dry-run", false, "Build the bundle without posting it to the catalog")
	return loadCmd
}

// collectSchemaFiles expands the input path into a sorted list of schema
// files, skipping provenance sidecars.
func collectSchemaFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("cannot read input %s: %w", input, err)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("cannot list input directory %s: %w", input, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, jsonschema.SidecarExt) {
			continue
		}
		files = append(files, filepath.Join(input, name))
	}
	sort.Strings(files)
	return files, nil
}

// readAll reads every input file concurrently.
func readAll(ctx context.Context, files []string) (map[string][]byte, error) {
	contents := make(map[string][]byte, len(files))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, file := range files {
		file := file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			mu.Lock()
			contents[file] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// annotateFromSidecar folds a companion provenance file onto the schema leaf
// asset, when one exists next to the document.
func annotateFromSidecar(builder *bundle.Builder, chain []string, file string, logger *zap.Logger) {
	if len(chain) == 0 {
		return
	}
	data, err := os.ReadFile(file + jsonschema.SidecarExt)
	if err != nil {
		return // no sidecar, nothing to carry over
	}
	var side jsonschema.Sidecar
	if err := json.Unmarshal(data, &side); err != nil {
		logger.Warn("Malformed sidecar, ignoring",
			zap.String("file", file+jsonschema.SidecarExt),
			zap.Error(err))
		return
	}
	leaf := chain[len(chain)-1]
	if side.TermID != "" {
		builder.SetAttribute(leaf, igc.AttributePrefix+"term_id", side.TermID)
	}
	if side.IdentityPath != "" {
		builder.SetAttribute(leaf, igc.AttributePrefix+"identity_path", side.IdentityPath)
	}
}

// writeBundle serializes the bundle document to a file.
func writeBundle(b *igc.Bundle, path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle to %s: %w", path, err)
	}
	return nil
}
