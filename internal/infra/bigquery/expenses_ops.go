package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/storage"
)

const (
	expensesTable = "expenses"

	expenseColumns = `
			expense_id,
			amount,
			category,
			expense_date,
			description,
			source,
			input,
			created_ts`
)

// Table identifies the dataset holding the expenses table.
type Table struct {
	ProjectID string
	DatasetID string
}

func (t Table) qualified() string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, expensesTable)
}

func (t Table) migrationsTable() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", t.ProjectID, t.DatasetID)
}

// InsertExpenseWithClient streams one expense into the expenses table.
func InsertExpenseWithClient(ctx context.Context, client *bigquery.Client, t Table, row *ExpenseRow) error {
	inserter := client.DatasetInProject(t.ProjectID, t.DatasetID).Table(expensesTable).Inserter()
	if err := inserter.Put(ctx, []*ExpenseRow{row}); err != nil {
		return fmt.Errorf("InsertExpense: inserting row: %w", err)
	}
	return nil
}

// GetExpenseWithClient loads a single expense by id.
func GetExpenseWithClient(ctx context.Context, client *bigquery.Client, t Table, id string) (*ExpenseRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE expense_id = @expense_id
		LIMIT 1
	`, expenseColumns, t.qualified()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetExpense: query read: %w", err)
	}

	var r ExpenseRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetExpense: iter next: %w", err)
	}
	return &r, nil
}

// ListExpensesWithClient returns expenses matching filter, newest first.
func ListExpensesWithClient(ctx context.Context, client *bigquery.Client, t Table, filter domain.ExpenseFilter) ([]*ExpenseRow, error) {
	where, params := whereClause(filter.From, filter.To, filter.Category)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT%s\n\t\tFROM %s%s\n\t\tORDER BY expense_date DESC, created_ts DESC, expense_id", expenseColumns, t.qualified(), where)
	if filter.Limit > 0 {
		fmt.Fprintf(&b, "\n\t\tLIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			// BigQuery requires LIMIT before OFFSET.
			b.WriteString("\n\t\tLIMIT 9223372036854775807")
		}
		fmt.Fprintf(&b, " OFFSET %d", filter.Offset)
	}

	q := client.Query(b.String())
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: query read: %w", err)
	}

	rows := []*ExpenseRow{}
	for {
		var r ExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// CategoryTotalsWithClient aggregates amounts per category in SQL.
func CategoryTotalsWithClient(ctx context.Context, client *bigquery.Client, t Table, from, to *civil.Date) ([]domain.CategoryTotal, error) {
	where, params := whereClause(from, to, "")
	q := client.Query(fmt.Sprintf(`
		SELECT
			category,
			SUM(amount) AS total,
			COUNT(*) AS expense_count
		FROM %s%s
		GROUP BY category
		ORDER BY category
	`, t.qualified(), where))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: query read: %w", err)
	}

	var totals []domain.CategoryTotal
	for {
		var r categoryTotalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CategoryTotals: iter next: %w", err)
		}
		total, err := ratToDecimal(r.Total)
		if err != nil {
			return nil, fmt.Errorf("CategoryTotals: amount: %w", err)
		}
		totals = append(totals, domain.CategoryTotal{Category: r.Category, Total: total, Count: int(r.Count)})
	}
	return totals, nil
}

func whereClause(from, to *civil.Date, category string) (string, []bigquery.QueryParameter) {
	var (
		conds  []string
		params []bigquery.QueryParameter
	)
	if from != nil {
		conds = append(conds, "expense_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: *from})
	}
	if to != nil {
		conds = append(conds, "expense_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: *to})
	}
	if category != "" {
		conds = append(conds, "category = @category")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: category})
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, "\n\t\t  AND "), params
}
