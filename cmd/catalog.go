package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and import assessment catalogs",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <scraped.json> <catalog.json>",
	Short: "Normalise a scraped catalog into the full record format",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		importCatalog(cmd, args[0], args[1])
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarise the catalog that would be served",
	Run: func(cmd *cobra.Command, _ []string) {
		showCatalog(cmd)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogShowCmd)

	catalogImportCmd.Flags().String("source-name", "", "prefix of generated descriptions (default catalog.source-name)")
	catalogShowCmd.Flags().Bool("dump", false, "dump all records to a temporary JSON file")
}

func importCatalog(cmd *cobra.Command, from, to string) {
	ctx := context.Background()
	logger, config := setup()

	sourceName, _ := cmd.Flags().GetString("source-name")
	if sourceName == "" && config.Catalog != nil {
		sourceName = config.Catalog.SourceName
	}

	src := &catalog.FileSource{Path: from, SourceName: sourceName}
	snap, err := src.Load(ctx)
	if err != nil {
		logger.Fatal("reading scraped catalog", zap.Error(err), zap.String("file", from))
	}

	if err := catalog.WriteFile(to, snap.Records()); err != nil {
		logger.Fatal("writing catalog", zap.Error(err), zap.String("file", to))
	}

	logger.Info("catalog imported",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("records", snap.Len()),
	)
}

func showCatalog(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	snap, err := loadCatalog(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}

	fmt.Printf("source: %s\nrecords: %d\n\n", snap.Source(), snap.Len())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEST TYPE\tCOUNT")
	for _, c := range snap.CountByTestType() {
		fmt.Fprintf(w, "%s\t%d\n", c.TestType, c.Count)
	}
	if err := w.Flush(); err != nil {
		logger.Fatal("printing", zap.Error(err))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := snap.DumpToTmpFile()
		if err != nil {
			logger.Fatal("dump catalog to file", zap.Error(err))
		}
		logger.Info("dumping catalog to file", zap.String("filename", filename))
	}
}
