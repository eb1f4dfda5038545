// Package report decodes raw Zoom export files into typed sections.
//
// A Zoom webinar report is a single CSV file containing several stacked
// sections (Topic, Host Details, Panelist Details, Attendee/Registrant
// Details), each with its own header and column count. This package handles
// the byte-level quirks of those files (UTF-8 BOM, stray invalid bytes,
// ragged rows) and splits them into labeled sections for the cleaning
// pipeline.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeRows parses a whole export file into raw rows. A leading UTF-8 BOM
// is stripped and invalid UTF-8 sequences are replaced so exports mangled by
// spreadsheet round-trips still parse. Rows keep whatever width the file
// gave them; section parsing coerces widths later.
//
// The file is processed as one in-memory batch. Zoom reports top out at a
// few thousand rows, so there is no streaming path.
func DecodeRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := strings.ToValidUTF8(string(data), "�")

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
}

// ReadRows decodes an export from a reader. See DecodeRows.
func ReadRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return DecodeRows(data)
}
