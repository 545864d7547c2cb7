package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"golang-statement-extractor/internal/parsers"
	"golang-statement-extractor/pkg/errors"
)

var institutionsJSON bool

var institutionsCmd = &cobra.Command{
	Use:   "institutions [ID...]",
	Short: "List the supported institutions",
	Long: `Institutions lists the registry in detection order: the first institution
whose keywords appear in a document wins. Give identifiers to show only
those institutions.

Examples:
  extractor institutions
  extractor institutions GALICIA SANTANDER
  extractor institutions --json`,
	RunE: runInstitutions,
}

func init() {
	rootCmd.AddCommand(institutionsCmd)
	institutionsCmd.Flags().BoolVar(&institutionsJSON, "json", false, "print as JSON")
}

type institutionInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Currency     string   `json:"currency"`
	Input        string   `json:"input"`
	Keywords     []string `json:"keywords,omitempty"`
	CustomDetect bool     `json:"custom_detection,omitempty"`
}

func runInstitutions(cmd *cobra.Command, args []string) error {
	infos, err := selectInstitutions(parsers.DefaultRegistry(), args)
	if err != nil {
		return err
	}

	if institutionsJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}
	return printInstitutions(cmd.OutOrStdout(), infos)
}

// selectInstitutions returns the requested institutions, or all of them
// when ids is empty
func selectInstitutions(registry *parsers.Registry, ids []string) ([]institutionInfo, error) {
	var descriptors []parsers.Descriptor
	if len(ids) == 0 {
		descriptors = registry.Descriptors()
	} else {
		for _, id := range ids {
			d, ok := registry.Lookup(id)
			if !ok {
				return nil, errors.ConfigurationError(errors.CodeUnknownProvider, "institution", id, nil)
			}
			descriptors = append(descriptors, d)
		}
	}

	infos := make([]institutionInfo, 0, len(descriptors))
	for _, d := range descriptors {
		input := "lines"
		if d.PreferTables {
			input = "tables"
		}
		infos = append(infos, institutionInfo{
			ID:           d.ID,
			Name:         d.Name,
			Currency:     d.Currency,
			Input:        input,
			Keywords:     d.Keywords,
			CustomDetect: d.Match != nil,
		})
	}
	return infos, nil
}

func printInstitutions(w io.Writer, infos []institutionInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCURRENCY\tINPUT\tKEYWORDS")
	for _, info := range infos {
		keywords := strings.Join(info.Keywords, ", ")
		if info.CustomDetect {
			keywords = strings.TrimPrefix(keywords+", (custom)", ", ")
		}
		if keywords == "" {
			keywords = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Name, info.Currency, info.Input, keywords)
	}
	return tw.Flush()
}
