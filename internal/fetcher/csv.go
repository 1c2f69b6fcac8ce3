// Package fetcher downloads and parses parcel data from HTTP, FTP, ArcGIS,
// CSV, JSON, XLSX, and ZIP sources.
package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSVFrame reads an entire CSV document into a frame. The first row is
// the header. County open-data exports routinely have ragged rows, so short
// records are tolerated.
func ReadCSVFrame(r io.Reader, opts CSVOptions) (*table.Frame, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}
		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}
	if header == nil {
		return nil, eris.New("csv: empty document")
	}

	return table.FromRecords(header, rows)
}

// WriteCSV writes a frame as CSV, header first.
func WriteCSV(w io.Writer, f *table.Frame) error {
	header, rows := f.Records()
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "csv: flush")
}
