package readers

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads one sheet of an Excel workbook.
type XLSXReader struct {
	fileName string
	source   io.Reader
	opts     Options
}

// NewXLSXReader creates an Excel reader over an open stream.
func NewXLSXReader(fileName string, r io.Reader, opts Options) *XLSXReader {
	return &XLSXReader{fileName: fileName, source: r, opts: opts}
}

// ReadRows parses every row of the configured sheet (default: first sheet).
func (r *XLSXReader) ReadRows(ctx context.Context) ([]Row, error) {
	f, err := excelize.OpenReader(r.source)
	if err != nil {
		return nil, &ParseError{File: r.fileName, Reason: "invalid Excel file", Err: err}
	}
	defer f.Close()

	sheetName := r.opts.SheetName
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &ParseError{File: r.fileName, Reason: "workbook has no sheets"}
		}
		sheetName = sheets[0]
	}

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &ParseError{File: r.fileName, Reason: "failed to read sheet " + sheetName, Err: err}
	}

	rows := make([]Row, 0, len(raw))
	for i, cells := range raw {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows = append(rows, Row{Index: i + 1, Cells: cells})
	}
	return rows, nil
}
