package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/config"
	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/expenses"
	"github.com/zenspend/zenspend/internal/export"
	"github.com/zenspend/zenspend/internal/logger"
)

const (
	AppName = "zenspend"
	AppDesc = "Record and inspect expenses from the command line"
)

var cli struct {
	config.Core      `embed:""`
	config.Notion    `embed:""`
	config.Export    `embed:""`
	config.Assistant `embed:""`

	Extract    ExtractCmd    `cmd:"" help:"Print the expense extracted from a message without storing it"`
	Chat       ChatCmd       `cmd:"" help:"Record an expense from a message"`
	Add        AddCmd        `cmd:"" help:"Record an expense from explicit fields"`
	List       ListCmd       `cmd:"" help:"List stored expenses"`
	Summary    SummaryCmd    `cmd:"" help:"Show totals per category"`
	Categories CategoriesCmd `cmd:"" help:"List the category vocabulary"`
	ExportCmd  ExportCmd     `cmd:"" name:"export" help:"Write an XLSX export to a file or the export bucket"`
	SyncNotion SyncNotionCmd `cmd:"" name:"sync-notion" help:"Push stored expenses to Notion"`
}

// runContext carries what every command needs.
type runContext struct {
	ctx context.Context
	log zerolog.Logger
	out io.Writer
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
		kong.UsageOnError(),
	)

	log, err := cli.Logger()
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	err = kctx.Run(&runContext{ctx: ctx, log: log, out: os.Stdout})
	kctx.FatalIfErrorf(err)
}

// openService builds the expense service over the configured storage. The
// returned func releases storage handles.
func openService(rc *runContext) (*expenses.Service, func(), error) {
	ex, err := cli.Extractor()
	if err != nil {
		return nil, nil, err
	}
	repo, err := cli.Open(rc.ctx, rc.log)
	if err != nil {
		return nil, nil, err
	}
	responder, err := cli.Responder(rc.ctx, rc.log)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	svc, err := expenses.NewService(expenses.Options{Extractor: ex, Repo: repo, Responder: responder})
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	return svc, func() { repo.Close() }, nil
}

// ExtractCmd previews extraction.
type ExtractCmd struct {
	Message []string `arg:"" help:"Expense message, e.g. 'I spent 500 on food yesterday'"`
}

func (c *ExtractCmd) Run(rc *runContext) error {
	ex, err := cli.Extractor()
	if err != nil {
		return err
	}
	draft, err := ex.Extract(strings.Join(c.Message, " "))
	if err != nil {
		return err
	}
	return writeJSON(rc.out, draft)
}

// ChatCmd records an expense from a message.
type ChatCmd struct {
	Message []string `arg:"" help:"Expense message"`
}

func (c *ChatCmd) Run(rc *runContext) error {
	svc, closeFn, err := openService(rc)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.RecordFromChat(rc.ctx, strings.Join(c.Message, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(rc.out, res.Reply)
	fmt.Fprintf(rc.out, "id: %s\n", res.Expense.ID)
	return nil
}

// AddCmd records an expense from explicit fields.
type AddCmd struct {
	Amount   string `required:"" help:"Positive amount, e.g. 250 or 99.50"`
	Category string `required:"" help:"Category name"`
	Date     string `help:"Date as YYYY-MM-DD (default today)"`
	Note     string `help:"Free text description"`
}

func (c *AddCmd) Run(rc *runContext) error {
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q", c.Amount)
	}
	date, err := parseDate("date", c.Date)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService(rc)
	if err != nil {
		return err
	}
	defer closeFn()

	in := expenses.ManualExpense{Amount: amount, Category: c.Category, Date: date}
	if c.Note != "" {
		in.Note = &c.Note
	}
	e, err := svc.AddExpense(rc.ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "Added %s %s on %s (id %s)\n", e.Amount.StringFixed(2), e.Category, e.Date, e.ID)
	return nil
}

// RangeFlags bound a command to a date range.
type RangeFlags struct {
	From string `help:"First date as YYYY-MM-DD"`
	To   string `help:"Last date as YYYY-MM-DD"`
}

func (r RangeFlags) parse() (from, to *civil.Date, err error) {
	if from, err = parseDate("from", r.From); err != nil {
		return nil, nil, err
	}
	if to, err = parseDate("to", r.To); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// ListCmd prints stored expenses.
type ListCmd struct {
	RangeFlags `embed:""`
	Category   string `help:"Only this category"`
	Limit      int    `help:"Maximum rows" default:"50"`
	JSON       bool   `name:"json" help:"Print JSON instead of a table"`
}

func (c *ListCmd) Run(rc *runContext) error {
	from, to, err := c.parse()
	if err != nil {
		return err
	}
	svc, closeFn, err := openService(rc)
	if err != nil {
		return err
	}
	defer closeFn()

	list, err := svc.ListExpenses(rc.ctx, domain.ExpenseFilter{From: from, To: to, Category: c.Category, Limit: c.Limit})
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(rc.out, list)
	}

	tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
	for _, e := range list {
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Category, e.Amount.StringFixed(2), desc, e.ID)
	}
	return tw.Flush()
}

// SummaryCmd prints totals per category.
type SummaryCmd struct {
	RangeFlags `embed:""`
}

func (c *SummaryCmd) Run(rc *runContext) error {
	from, to, err := c.parse()
	if err != nil {
		return err
	}
	svc, closeFn, err := openService(rc)
	if err != nil {
		return err
	}
	defer closeFn()

	totals, err := svc.Totals(rc.ctx, from, to)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(rc.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCOUNT\tTOTAL")
	grand := decimal.Zero
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Category, t.Count, t.Total.StringFixed(2))
		grand = grand.Add(t.Total)
	}
	fmt.Fprintf(tw, "ALL\t\t%s\n", grand.StringFixed(2))
	return tw.Flush()
}

// CategoriesCmd prints the vocabulary.
type CategoriesCmd struct{}

func (c *CategoriesCmd) Run(rc *runContext) error {
	ex, err := cli.Extractor()
	if err != nil {
		return err
	}
	for _, name := range ex.Categories() {
		fmt.Fprintln(rc.out, name)
	}
	return nil
}

// ExportCmd writes a workbook locally or uploads it.
type ExportCmd struct {
	RangeFlags `embed:""`
	Out        string `short:"o" help:"Write the workbook to this file instead of uploading it"`
}

func (c *ExportCmd) Run(rc *runContext) error {
	from, to, err := c.parse()
	if err != nil {
		return err
	}
	repo, err := cli.Open(rc.ctx, rc.log)
	if err != nil {
		return err
	}
	defer repo.Close()

	if c.Out != "" {
		list, err := repo.ListExpenses(rc.ctx, domain.ExpenseFilter{From: from, To: to})
		if err != nil {
			return err
		}
		totals, err := repo.CategoryTotals(rc.ctx, from, to)
		if err != nil {
			return err
		}
		data, err := export.BuildWorkbook(list, totals)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.Out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(rc.out, "Wrote %d expenses to %s\n", len(list), c.Out)
		return nil
	}

	exporter, closer, err := cli.Exporter(rc.ctx, repo)
	if err != nil {
		return err
	}
	defer closer.Close()
	if exporter == nil {
		return fmt.Errorf("no export bucket configured: set GCS_BUCKET or pass --out")
	}
	res, err := exporter.Export(rc.ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "Uploaded %d expenses to %s\n", res.Rows, res.URI)
	return nil
}

// SyncNotionCmd pushes a date range of expenses to Notion.
type SyncNotionCmd struct {
	RangeFlags `embed:""`
}

func (c *SyncNotionCmd) Run(rc *runContext) error {
	from, to, err := c.parse()
	if err != nil {
		return err
	}
	syncer, err := cli.Syncer()
	if err != nil {
		return err
	}
	if syncer == nil {
		return fmt.Errorf("no Notion token configured: set NOTION_TOKEN")
	}
	repo, err := cli.Open(rc.ctx, rc.log)
	if err != nil {
		return err
	}
	defer repo.Close()

	stats, err := syncer.SyncExpenses(rc.ctx, repo, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "Notion sync: %d created, %d updated, %d failed\n", stats.Created, stats.Updated, stats.Failed)
	return nil
}

func parseDate(flag, s string) (*civil.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DD", flag, s)
	}
	return &d, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
