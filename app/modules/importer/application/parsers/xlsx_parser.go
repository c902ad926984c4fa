package parsers

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// XLSXParser parses Excel workbooks via excelize.
type XLSXParser struct {
	// SheetName selects the sheet to read. When empty and the workbook has
	// more than one sheet, Parse returns the candidate sheet list instead of
	// rows so the operator can choose.
	SheetName string
}

func NewXLSXParser(sheetName string) *XLSXParser {
	return &XLSXParser{SheetName: sheetName}
}

// Parse opens the workbook and reads the selected sheet into a row set.
func (p *XLSXParser) Parse(data []byte) (*domain.ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := p.SheetName
	if sheet == "" {
		if len(sheets) > 1 {
			return &domain.ParseResult{Sheets: sheets}, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unsupported sheet selection %q: %w", sheet, err)
	}

	var records [][]string
	for _, row := range rows {
		if isBlankRecord(row) {
			continue
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	return rowsFromRecords(records)
}
