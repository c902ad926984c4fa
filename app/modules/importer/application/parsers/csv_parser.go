package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// CSVParser parses comma-, tab-, or semicolon-separated roster files.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads delimiter-separated data into a row set. The first non-blank
// record is the header.
func (p *CSVParser) Parse(data []byte) (*domain.ParseResult, error) {
	cleaned, delimiter, err := preprocessCSVData(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.Comma = delimiter
	// Operator-authored sheets have ragged rows; length checks happen per
	// row against the header instead.
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV input is empty")
	}

	return rowsFromRecords(records)
}
