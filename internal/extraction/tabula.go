package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

const methodTables = "tables"

// TabulaExtractor runs a tabula-compatible CLI and decodes its JSON output
type TabulaExtractor struct {
	runner  CommandRunner
	command []string
	logger  logger.Logger
}

// NewTabulaExtractor creates a table extractor. command is the executable
// followed by any leading arguments.
func NewTabulaExtractor(runner CommandRunner, command []string) *TabulaExtractor {
	if len(command) == 0 {
		command = DefaultConfig().TableCommand
	}
	return &TabulaExtractor{
		runner:  runner,
		command: append([]string(nil), command...),
		logger:  logger.WithComponent("tabula"),
	}
}

// tabulaTable is one table of the JSON output format
type tabulaTable struct {
	Data [][]tabulaCell `json:"data"`
}

type tabulaCell struct {
	Text string `json:"text"`
}

// ExtractTables implements TableExtractor
func (t *TabulaExtractor) ExtractTables(ctx context.Context, path string, flavor Flavor) ([]models.Grid, error) {
	start := time.Now()

	args := make([]string, 0, len(t.command)+6)
	args = append(args, t.command[1:]...)
	args = append(args, "--format", "JSON", "--pages", "all", "--"+string(flavor), path)

	out, err := t.runner.Run(ctx, t.command[0], args...)
	if err != nil {
		return nil, toolError(methodTables, path, err)
	}

	grids, err := decodeTables(out)
	if err != nil {
		return nil, errors.ExtractionError(errors.CodeDecodeFailed, methodTables, path, err)
	}

	t.logger.WithFields(logger.Fields{
		"file":     path,
		"flavor":   flavor,
		"tables":   len(grids),
		"duration": since(start),
	}).Debug("Table extraction finished")
	return grids, nil
}

// decodeTables converts tabula JSON into grids, dropping tables whose cells
// are all blank
func decodeTables(data []byte) ([]models.Grid, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var tables []tabulaTable
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, err
	}

	grids := make([]models.Grid, 0, len(tables))
	for _, table := range tables {
		grid := make(models.Grid, 0, len(table.Data))
		blank := true
		for _, row := range table.Data {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.TrimSpace(c.Text)
				if cells[i] != "" {
					blank = false
				}
			}
			grid = append(grid, cells)
		}
		if blank {
			continue
		}
		grids = append(grids, grid)
	}
	return grids, nil
}
