// Package parsers turns heterogeneous import sources into row sets: a header
// of source columns plus one flat map of column -> raw value per row.
package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// Parser converts raw source bytes into a ParseResult.
type Parser interface {
	Parse(data []byte) (*domain.ParseResult, error)
}

// Factory selects a parser by file extension.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// GetParser returns the parser for filename, or an error for unsupported
// formats. sheetName is only meaningful for workbook formats.
func (f *Factory) GetParser(filename, sheetName string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return NewCSVParser(), nil
	case ".xlsx", ".xlsm":
		return NewXLSXParser(sheetName), nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filename)
	}
}
