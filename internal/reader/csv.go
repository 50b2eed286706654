package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"itvetl/internal/records"
)

const utf8BOM = "\ufeff"

// DecodeCSV reads a delimited file whose first row is the header. Short rows
// leave trailing fields unset; blank rows are skipped.
func DecodeCSV(r io.Reader, delimiter rune) ([]records.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv reader: header: %w", err)
	}
	header = stripHeaderBOM(header)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []records.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("csv reader: line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}
		rec := make(records.Record, len(header))
		for i, v := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			rec[header[i]] = v
		}
		out = append(out, rec)
	}
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
