package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/awsl-project/ranstat/internal/domain"
)

// Format 源文件格式
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RecordFunc receives each data record with its 1-based source row number.
// Returning an error stops decoding.
type RecordFunc func(row int, rec domain.RawRecord) error

// SkipFunc receives data rows the decoder could not parse at all.
type SkipFunc func(row int, reason string)

type options struct {
	onSkip SkipFunc
}

// Option configures Decode.
type Option func(*options)

// WithSkipFunc reports unparseable data rows to fn instead of dropping them
// silently.
func WithSkipFunc(fn SkipFunc) Option {
	return func(o *options) { o.onSkip = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DetectFormat picks the format from the file extension, after compression
// suffixes have been removed. Unknown extensions are read as CSV.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Decode decompresses r according to name, detects its format and streams
// every data record to fn.
func Decode(ctx context.Context, name string, r io.Reader, feed domain.Feed, fn RecordFunc, opts ...Option) error {
	body, inner, err := Decompress(name, r)
	if err != nil {
		return err
	}
	defer body.Close()

	switch DetectFormat(inner) {
	case FormatXLSX:
		return DecodeXLSX(ctx, body, feed, fn)
	default:
		return DecodeCSV(ctx, body, feed, fn, opts...)
	}
}

// DecodeCSV streams a CSV export. Quotes are parsed leniently and rows may
// have varying field counts.
func DecodeCSV(ctx context.Context, r io.Reader, feed domain.Feed, fn RecordFunc, opts ...Option) error {
	o := buildOptions(opts)
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	m := newRowMapper(feed)
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if skipped := skipParseError(err, m.headerFound(), o.onSkip); skipped {
				continue
			}
			return fmt.Errorf("read csv: %w", err)
		}
		// 空行会被 csv.Reader 跳过，行号取源文件行号
		row, _ := cr.FieldPos(0)
		if err := emit(ctx, m, row, cells, fn); err != nil {
			return err
		}
	}
	return m.finish()
}

// DecodeXLSX streams the first sheet of a workbook. Raw cell values are used,
// so dates arrive as spreadsheet serials and numbers without display formatting.
func DecodeXLSX(ctx context.Context, r io.Reader, feed domain.Feed, fn RecordFunc) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.ErrEmptyInput
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	m := newRowMapper(feed)
	row := 0
	for rows.Next() {
		row++
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("read sheet row %d: %w", row, err)
		}
		if err := emit(ctx, m, row, cells, fn); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return m.finish()
}

// skipParseError reports a malformed data row after the header and tells the
// caller to carry on. Errors before the header, or that are not parse errors,
// stop decoding.
func skipParseError(err error, headerFound bool, onSkip SkipFunc) bool {
	var perr *csv.ParseError
	if !headerFound || !errors.As(err, &perr) {
		return false
	}
	if onSkip != nil {
		row := perr.StartLine
		if row == 0 {
			row = perr.Line
		}
		onSkip(row, fmt.Sprintf("malformed csv row: %v", perr.Err))
	}
	return true
}

func emit(ctx context.Context, m *rowMapper, row int, cells []string, fn RecordFunc) error {
	// 每 1024 行检查一次取消
	if row%1024 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	rec, err := m.next(cells)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	return fn(row, rec)
}
