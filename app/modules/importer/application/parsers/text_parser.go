package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// PasteParser handles text pasted straight from a spreadsheet or document.
// Tab-separated input (the spreadsheet clipboard format) is preferred; plain
// text falls back to delimiter sniffing and finally to runs of whitespace.
type PasteParser struct{}

func NewPasteParser() *PasteParser {
	return &PasteParser{}
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

func (p *PasteParser) Parse(data []byte) (*domain.ParseResult, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("pasted text is empty")
	}

	if strings.Contains(text, "\t") || strings.ContainsAny(text, ",;") {
		return NewCSVParser().Parse(data)
	}

	// Column-aligned plain text: split each line on runs of 2+ spaces.
	var records [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, multiSpace.Split(line, -1))
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("pasted text has no data rows")
	}

	return rowsFromRecords(records)
}
