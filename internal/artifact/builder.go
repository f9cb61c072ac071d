package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/teemow/queryexport/internal/database"
	"github.com/teemow/queryexport/internal/logging"
)

const (
	// SheetName is the name of the single worksheet in every artifact.
	SheetName = "Query Result"

	// TimestampLayout formats run timestamps in file names and reports.
	TimestampLayout = "20060102_150405"

	filePrefix = "rds_query_result_"
	fileExt    = ".xlsx"
)

var (
	// ErrEmptyResult is returned by Build when the result has no rows.
	ErrEmptyResult = errors.New("empty result set")

	// ErrCellTooLong is wrapped when a text value does not fit in one cell.
	ErrCellTooLong = fmt.Errorf("value exceeds the %d character cell limit", excelize.TotalCellChars)
)

// Artifact describes a spreadsheet file written for one export run.
type Artifact struct {
	Path      string
	Filename  string
	Timestamp string
	RowCount  int
}

// SerializationError reports a failure while writing the spreadsheet.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("write spreadsheet %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// FileName returns the artifact file name for ts.
func FileName(ts time.Time) string {
	return filePrefix + ts.Format(TimestampLayout) + fileExt
}

// Builder writes query results to .xlsx files.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder that logs through logger.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logging.WithService(logger, "artifact")}
}

// Build writes result into dir as a single-sheet workbook with a header row
// of column names followed by one row per result row, in order.
func (b *Builder) Build(result *database.Result, dir string, ts time.Time) (*Artifact, error) {
	if result.Empty() {
		return nil, ErrEmptyResult
	}

	name := FileName(ts)
	path := filepath.Join(dir, name)

	if err := writeWorkbook(result, path); err != nil {
		// Never leave a half-written file behind.
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.logger.Warn("removing partial spreadsheet", slog.String("path", path), logging.Err(rmErr))
		}
		return nil, &SerializationError{Path: path, Err: err}
	}

	b.logger.Info("spreadsheet written",
		slog.String("path", path),
		slog.Int("rows", result.RowCount()),
		slog.Int("columns", len(result.Columns)),
	)

	return &Artifact{
		Path:      path,
		Filename:  name,
		Timestamp: ts.Format(TimestampLayout),
		RowCount:  result.RowCount(),
	}, nil
}

func writeWorkbook(result *database.Result, path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range result.Rows {
		cells := make([]any, len(result.Columns))
		for j := range cells {
			if j < len(row) {
				cells[j] = CellValue(row[j])
			}
			// excelize truncates longer strings without an error.
			if text, ok := cells[j].(string); ok && len(text) > excelize.TotalCellChars {
				if n := utf8.RuneCountInString(text); n > excelize.TotalCellChars {
					return fmt.Errorf("row %d column %q: %w (%d characters)", i+1, result.Columns[j], ErrCellTooLong, n)
				}
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}

	return f.SaveAs(path)
}
