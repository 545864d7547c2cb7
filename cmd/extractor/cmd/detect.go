package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/parsers"
)

var detectCmd = &cobra.Command{
	Use:   "detect FILE|DIR...",
	Short: "Detect the issuing institution of statement PDFs",
	Long: `Detect extracts the raw content of each document and reports the
institution the registry recognizes, without parsing transactions. Documents
that match no institution are reported as GENERIC.

Examples:
  extractor detect resumen.pdf
  extractor detect statements/ --enable-ocr=false`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags,
	RunE:    runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	addExtractionFlags(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := collectInputs(args)
	if err != nil {
		return err
	}

	orchestrator, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	docs := make([]*extractor.DocumentContext, 0, len(paths))
	for _, path := range paths {
		docCtx, cancel := context.WithTimeout(ctx, cfg.Extractor.DocumentTimeout)
		docs = append(docs, orchestrator.Detect(docCtx, path, ""))
		cancel()
	}

	printDetections(cmd.OutOrStdout(), orchestrator.Registry(), docs)
	return nil
}

func printDetections(w io.Writer, registry *parsers.Registry, docs []*extractor.DocumentContext) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tINSTITUTION\tNAME\tMETHOD\tPAGES")
	for _, doc := range docs {
		name := "-"
		if d, ok := registry.Lookup(doc.Institution); ok {
			name = d.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", doc.Filename, doc.Institution, name, doc.Method, doc.Pages)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
	}
}
