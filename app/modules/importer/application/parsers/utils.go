package parsers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// preprocessCSVData cleans raw delimiter-separated data and auto-detects the
// delimiter. Returns the cleaned string and the delimiter rune.
func preprocessCSVData(data []byte) (string, rune, error) {
	if len(data) == 0 {
		return "", ',', fmt.Errorf("empty input")
	}

	// Strip UTF-8 BOM if present (0xEF, 0xBB, 0xBF)
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	cleaned := string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))

	// Count commas vs tabs vs semicolons in the first few lines.
	lines := strings.Split(cleaned, "\n")
	sample := lines
	if len(sample) > 5 {
		sample = sample[:5]
	}
	commas, tabs, semis := 0, 0, 0
	for _, line := range sample {
		commas += strings.Count(line, ",")
		tabs += strings.Count(line, "\t")
		semis += strings.Count(line, ";")
	}

	delimiter := ','
	if tabs > commas && tabs > semis {
		delimiter = '\t'
	} else if semis > commas && semis > tabs {
		delimiter = ';'
	}

	return cleaned, delimiter, nil
}

// rowsFromRecords converts raw records (header + data rows) into a
// ParseResult. Header cells are trimmed; blank header cells get positional
// names so no data column is silently lost. Rows with more cells than the
// header go to the error list; short rows are allowed (trailing columns
// empty).
func rowsFromRecords(records [][]string) (*domain.ParseResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no rows found in input")
	}

	header := make([]string, len(records[0]))
	for i, cell := range records[0] {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		header[i] = name
	}

	result := &domain.ParseResult{SourceColumns: header}

	rowID := 0
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		rowID++

		if len(record) > len(header) {
			result.Errors = append(result.Errors, domain.RowError{
				Row:     rowID,
				Message: fmt.Sprintf("row has %d cells but the header has %d columns", len(record), len(header)),
			})
			continue
		}

		data := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				data[col] = strings.TrimSpace(record[i])
			} else {
				data[col] = ""
			}
		}
		result.ValidRows = append(result.ValidRows, domain.ParsedRow{
			RowID:      rowID,
			SourceData: data,
		})
	}

	if len(result.ValidRows) == 0 && len(result.Errors) == 0 {
		return nil, fmt.Errorf("no data rows found in input")
	}

	result.Summary = fmt.Sprintf("%d rows, %d columns", len(result.ValidRows), len(header))
	return result, nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// NormalizeDate coerces an operator-authored date cell ("9/3/08",
// "Sept 3, 2008", "2008-09-03") into ISO form. Unparseable values pass
// through unchanged so the backend can reject them with row context.
func NormalizeDate(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return v
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}

	// Fall back to natural-language parsing for values like "Sept 3 2008".
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	if r, err := w.Parse(v, time.Now()); err == nil && r != nil {
		return r.Time.Format("2006-01-02")
	}

	return v
}
