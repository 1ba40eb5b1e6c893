// Package export renders expenses as an XLSX workbook and stores it.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/gcsuploader"
	"github.com/zenspend/zenspend/internal/logger"
	"github.com/zenspend/zenspend/internal/storage"
)

const (
	expensesSheet = "Expenses"
	summarySheet  = "Summary"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var expenseHeaders = []string{"Date", "Category", "Amount", "Description", "Source", "Expense ID"}

// BuildWorkbook renders expenses and per-category totals as XLSX bytes.
func BuildWorkbook(expenses []*domain.Expense, totals []domain.CategoryTotal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// A new file starts with "Sheet1"; rename it rather than leave it empty.
	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return nil, fmt.Errorf("BuildWorkbook: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("BuildWorkbook: %w", err)
	}

	for i, h := range expenseHeaders {
		if err := setCell(f, expensesSheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	for i, e := range expenses {
		row := i + 2
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		values := []any{e.Date.String(), e.Category, e.Amount.InexactFloat64(), desc, string(e.Source), e.ID}
		for col, v := range values {
			if err := setCell(f, expensesSheet, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	for i, h := range []string{"Category", "Count", "Total"} {
		if err := setCell(f, summarySheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	for i, t := range totals {
		row := i + 2
		for col, v := range []any{t.Category, t.Count, t.Total.InexactFloat64()} {
			if err := setCell(f, summarySheet, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(expensesSheet, "A", "A", 12)
	_ = f.SetColWidth(expensesSheet, "B", "B", 16)
	_ = f.SetColWidth(expensesSheet, "C", "C", 12)
	_ = f.SetColWidth(expensesSheet, "D", "D", 48)
	_ = f.SetColWidth(expensesSheet, "F", "F", 38)
	_ = f.SetColWidth(summarySheet, "A", "A", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("BuildWorkbook: xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("BuildWorkbook: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("BuildWorkbook: %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// Result describes a finished export.
type Result struct {
	URI  string
	Rows int
}

// Exporter builds workbooks from a repository and uploads them.
type Exporter struct {
	repo   storage.ExpenseRepository
	store  gcsuploader.ObjectStore
	bucket string
	now    func() time.Time
}

// NewExporter returns an Exporter writing into bucket.
func NewExporter(repo storage.ExpenseRepository, store gcsuploader.ObjectStore, bucket string) *Exporter {
	return &Exporter{repo: repo, store: store, bucket: bucket, now: time.Now}
}

// Export writes every expense dated within [from, to] to a new object.
// Either bound may be nil.
func (x *Exporter) Export(ctx context.Context, from, to *civil.Date) (Result, error) {
	log := logger.FromContext(ctx)
	start := x.now()

	expenses, err := x.repo.ListExpenses(ctx, domain.ExpenseFilter{From: from, To: to})
	if err != nil {
		return Result{}, fmt.Errorf("Export: list expenses: %w", err)
	}
	totals, err := x.repo.CategoryTotals(ctx, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("Export: category totals: %w", err)
	}

	data, err := BuildWorkbook(expenses, totals)
	if err != nil {
		return Result{}, err
	}

	uri, err := x.store.Upload(ctx, x.bucket, ObjectName(from, to, start), xlsxContentType, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("Export: upload: %w", err)
	}

	log.Info().
		Str("uri", uri).
		Int("rows", len(expenses)).
		Dur("elapsed", x.now().Sub(start)).
		Msg("Expense export uploaded")
	return Result{URI: uri, Rows: len(expenses)}, nil
}

// ObjectName names an export object after its date range and creation time.
func ObjectName(from, to *civil.Date, at time.Time) string {
	lo, hi := "start", "today"
	if from != nil {
		lo = from.String()
	}
	if to != nil {
		hi = to.String()
	}
	return fmt.Sprintf("exports/expenses_%s_%s_%s.xlsx", lo, hi, at.UTC().Format("20060102T150405Z"))
}
