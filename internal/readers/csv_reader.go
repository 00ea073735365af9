package readers

import (
	"context"
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVReader reads delimiter-separated price lists. Supplier files are often
// exported from legacy tooling, so quoting is lax, row widths vary and the
// bytes may be Windows-1251 encoded.
type CSVReader struct {
	fileName string
	source   io.Reader
	opts     Options
}

// NewCSVReader creates a CSV reader over an open stream.
func NewCSVReader(fileName string, r io.Reader, opts Options) *CSVReader {
	if opts.CSVDelimiter == 0 {
		opts.CSVDelimiter = ';'
	}
	return &CSVReader{fileName: fileName, source: r, opts: opts}
}

// ReadRows parses every row of the file. A malformed file surfaces a
// ParseError; an empty file yields an empty slice.
func (r *CSVReader) ReadRows(ctx context.Context) ([]Row, error) {
	src := r.source
	if r.opts.Windows1251 {
		src = transform.NewReader(src, charmap.Windows1251.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = r.opts.CSVDelimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows []Row
	index := 0
	for {
		if index%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{File: r.fileName, Reason: "invalid CSV", Err: err}
		}
		index++
		rows = append(rows, Row{Index: index, Cells: record})
	}
	return rows, nil
}
