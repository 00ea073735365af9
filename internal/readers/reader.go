package readers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pricelist-service/internal/models"
)

// Row is one raw spreadsheet row: its 1-based position in the source file
// plus the cell contents in column order.
type Row struct {
	Index int
	Cells []string
}

// ParseError describes a failure reading or parsing an input file. Readers
// return it instead of silently producing empty data.
type ParseError struct {
	File   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.File, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RowReader produces the raw rows of one input file.
type RowReader interface {
	ReadRows(ctx context.Context) ([]Row, error)
}

// Options configures how a file is parsed. The zero value means a
// semicolon-delimited UTF-8 CSV or the first sheet of a workbook.
type Options struct {
	CSVDelimiter rune   // default ';'
	Windows1251  bool   // decode CSV bytes from Windows-1251
	SheetName    string // xlsx only; default is the first sheet
}

// DetectFormat returns the import format for a file name by extension.
func DetectFormat(fileName string) (models.ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return models.ImportFormatCSV, nil
	case ".xlsx", ".xlsm":
		return models.ImportFormatXLSX, nil
	default:
		return "", &ParseError{File: fileName, Reason: "unsupported file format"}
	}
}

// New returns a reader for the file based on its extension.
func New(fileName string, r io.Reader, opts Options) (RowReader, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.ImportFormatCSV:
		return NewCSVReader(fileName, r, opts), nil
	default:
		return NewXLSXReader(fileName, r, opts), nil
	}
}
