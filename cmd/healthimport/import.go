package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/vitalvault/importer/pkg/common/config"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/importer"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/parser/fhir"
	"github.com/vitalvault/importer/pkg/parser/labdoc"
	"github.com/vitalvault/importer/pkg/parser/samsung"
	"github.com/vitalvault/importer/pkg/store"
	"github.com/vitalvault/importer/pkg/terminology"
)

type importOptions struct {
	dryRun  bool
	quiet   bool
	catalog string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "healthimport",
		Short:        "Import health data files into the canonical record store",
		SilenceUsage: true,
	}
	root.AddCommand(newImportCmd())
	root.AddCommand(newFormatsCmd())
	return root
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import one or more export files, bundles, or lab documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and normalize without writing to postgres")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "log errors only")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "path to a terminology catalog YAML (default: built-in)")
	return cmd
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported input formats",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "samsung-export          zip archive of vendor CSV files")
			fmt.Fprintln(cmd.OutOrStdout(), "clinical-bundle         FHIR-style JSON bundle")
			fmt.Fprintln(cmd.OutOrStdout(), "clinical-bundle-archive zip archive containing a bundle")
			fmt.Fprintln(cmd.OutOrStdout(), "generic-csv             standalone CSV (header-classified)")
			fmt.Fprintln(cmd.OutOrStdout(), "lab-document            PDF lab report")
		},
	}
}

func runImport(cmd *cobra.Command, args []string, opts importOptions) error {
	if opts.quiet {
		logger.InitQuiet()
	} else {
		logger.Init()
	}
	cfg := config.Load()

	catalogPath := opts.catalog
	if catalogPath == "" {
		catalogPath = cfg.CatalogPath
	}
	catalog, err := terminology.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("loading terminology catalog: %w", err)
	}

	var st store.RecordStore
	if opts.dryRun {
		st = store.NewMemoryStore()
	} else {
		pg, err := store.OpenPostgres(cfg)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		st = pg
	}

	registry := parser.NewRegistry()
	vendor := samsung.New()
	registry.Register(parser.FormatSamsungExport, vendor)
	registry.Register(parser.FormatGenericCSV, vendor)
	registry.Register(parser.FormatClinicalBundle, fhir.New(catalog))
	registry.Register(parser.FormatLabDocument, labdoc.New())

	orch := importer.New(importer.Options{
		Registry: registry,
		Store:    st,
		Archives: importer.ZipExtractor{MaxEntries: cfg.MaxArchiveEntries},
	})

	files := make([]importer.UploadedFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, importer.UploadedFile{
			Name: filepath.Base(path),
			Data: data,
		})
	}

	summary, err := orch.ProcessFiles(cmd.Context(), files)
	if err != nil {
		return err
	}
	printSummary(cmd, summary, opts.dryRun)

	if summary.FilesFailed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.FilesFailed, len(files))
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary *models.ImportSummary, dryRun bool) {
	out := cmd.OutOrStdout()

	for _, pf := range summary.Files {
		switch pf.Status {
		case models.StatusCompleted:
			fmt.Fprintf(out, "  %-40s %s (%d records)\n", pf.Name, pf.Status, pf.RecordCount)
		case models.StatusWarning:
			fmt.Fprintf(out, "  %-40s %s (no records found)\n", pf.Name, pf.Status)
		default:
			fmt.Fprintf(out, "  %-40s %s: %s\n", pf.Name, pf.Status, pf.Error)
		}
	}

	fmt.Fprintf(out, "\n%d records from %d files", summary.TotalRecords, summary.FilesImported)
	if dryRun {
		fmt.Fprint(out, " (dry run, nothing stored)")
	}
	fmt.Fprintln(out)

	if len(summary.RecordsByTarget) > 0 {
		categories := make([]string, 0, len(summary.RecordsByTarget))
		for category := range summary.RecordsByTarget {
			categories = append(categories, string(category))
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(out, "  %-20s %d\n", category, summary.RecordsByTarget[models.Category(category)])
		}
	}
}
