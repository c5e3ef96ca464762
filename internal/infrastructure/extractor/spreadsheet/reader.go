// Package spreadsheet reads batch submissions from an xlsx workbook. The first
// row names the columns using the submission's JSON field names.
package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

type Reader struct {
	open  func() (*excelize.File, error)
	sheet string
}

// NewReader reads the workbook at path. An empty sheet selects the active sheet.
func NewReader(path, sheet string) *Reader {
	return &Reader{
		open:  func() (*excelize.File, error) { return excelize.OpenFile(path) },
		sheet: sheet,
	}
}

func NewStreamReader(src io.Reader, sheet string) *Reader {
	return &Reader{
		open:  func() (*excelize.File, error) { return excelize.OpenReader(src) },
		sheet: sheet,
	}
}

func (r *Reader) ReadSubmissions(ctx context.Context) ([]domain.SubmissionRow, error) {
	f, err := r.open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read sheet", err)
	}
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read sheet", fmt.Errorf("sheet %q is empty", sheet))
	}

	columns := headerColumns(rows[0])
	missing := domain.MissingFields(func(field string) bool {
		_, ok := columns[field]
		return ok
	})
	if len(missing) > 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read header",
			fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}

	out := make([]domain.SubmissionRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(cells) {
			continue
		}
		fields := make(map[string]string, len(columns))
		for name, idx := range columns {
			if idx < len(cells) {
				fields[name] = cells[idx]
			}
		}
		// spreadsheet row numbers, header included
		out = append(out, domain.SubmissionRow{
			Number: i + 2,
			Record: domain.SubmissionFromFields(fields),
		})
	}
	return out, nil
}

func headerColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := columns[name]; !dup {
			columns[name] = idx
		}
	}
	return columns
}

func blank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
