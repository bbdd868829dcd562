package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	reviewSheet = "review"
	errorsSheet = "errors"
)

// ExportReviewXLSX writes the run's review as a workbook: one row per entry
// with its recognised columns, classification and errors, plus an errors
// sheet when the run has top-level errors.
func ExportReviewXLSX(ctx context.Context, r *Run, w io.Writer) error {
	review := r.Review(ctx)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reviewSheet); err != nil {
		return fmt.Errorf("export review: %w", err)
	}

	cols := AttributeColumns()
	header := make([]interface{}, 0, len(cols)+3)
	header = append(header, "line")
	for _, c := range cols {
		header = append(header, c)
	}
	header = append(header, "validates_as", "errors")
	if err := setRow(f, reviewSheet, 1, header); err != nil {
		return err
	}

	for i, e := range r.Entries() {
		lr, ok := review[e.LineNumber]
		if !ok {
			continue
		}
		row := make([]interface{}, 0, len(header))
		row = append(row, e.LineNumber)
		for _, c := range cols {
			row = append(row, lr.Attributes[c])
		}
		row = append(row, lr.ValidatesAs, joinErrors(lr.Errors))
		if err := setRow(f, reviewSheet, i+2, row); err != nil {
			return err
		}
	}

	if errs := r.Errors(); len(errs) > 0 {
		if _, err := f.NewSheet(errorsSheet); err != nil {
			return fmt.Errorf("export review: %w", err)
		}
		for i, msg := range errs {
			if err := setRow(f, errorsSheet, i+1, []interface{}{msg}); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export review: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export review: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export review row %d: %w", row, err)
	}
	return nil
}

// joinErrors renders field errors as "field: message" in field order.
func joinErrors(errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + errs[f]
	}
	return strings.Join(parts, "; ")
}
