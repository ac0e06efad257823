package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/internal/catalog"
	"github.com/IBM/igc-x-json-schema/internal/generator"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
	"github.com/IBM/igc-x-json-schema/internal/observability"
	"github.com/IBM/igc-x-json-schema/internal/typeinfer"
)

// newGenerateCmd creates the `generate` command: read the term graph from
// the catalog, compile one JSON Schema document per term, then link
// associations in a second pass.
func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate JSON Schema documents from the catalog's business terms",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindCatalogFlags(cmd); err != nil {
				return err
			}
			for flag, key := range map[string]string{
				"output":    "generate.output",
				"namespace": "generate.namespace",
				"category":  "generate.category",
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

			runID := uuid.New().String()
			logger.Info("Starting schema generation",
				zap.String("run_id", runID),
				zap.String("output", cfg.Generate.Output),
				zap.String("namespace", cfg.Generate.Namespace),
				zap.String("category", cfg.Generate.Category))

			client, err := catalog.New(cfg.Catalog, logger)
			if err != nil {
				return fmt.Errorf("failed to open catalog session: %w", err)
			}
			defer client.Close(ctx)

			terms, classes, err := client.FetchGraph(ctx, cfg.Generate.Category)
			if err != nil {
				return fmt.Errorf("failed to read term graph: %w", err)
			}

			store, err := jsonschema.NewFileStore(cfg.Generate.Output, logger)
			if err != nil {
				return err
			}

			session := generator.NewSession(generator.Options{
				Store:  store,
				Types:  typeinfer.BuildCache(classes, logger),
				Prefix: cfg.Generate.Namespace,
				Truthy: cfg.Generate.MultivaluedMarkers,
				RunID:  runID,
				Logger: logger,
			})
			session.AddTerms(terms)

			// Phase ordering is strict: every non-association term compiles
			// before any association linking starts.
			if err := session.Compile(); err != nil {
				return err
			}
			if err := session.Link(); err != nil {
				return err
			}

			if collisions := session.Collisions(); len(collisions) > 0 {
				logger.Warn("Run finished with name collisions", zap.Int("count", len(collisions)))
				for _, c := range collisions {
					logger.Warn("Collision",
						zap.String("name", c.Name),
						zap.String("first_term", c.FirstID),
						zap.String("other_term", c.OtherID))
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d schema documents in %s\n",
				len(store.IDs()), cfg.Generate.Output)
			return nil
		},
	}

	addCatalogFlags(generateCmd)
	generateCmd.Flags().StringP("output", "o", ".", "Output directory for schema documents")
	generateCmd.Flags().StringP("namespace", "n", "https://localhost/jsonSchema", "Namespace prefix for document identifiers")
	generateCmd.Flags().String("category", "", "Scope the term search to one category subtree (catalog ID)")
	return generateCmd
}
