package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/zenspend/zenspend/internal/domain"
)

// Property names of the expenses database.
const (
	PropName      = "Name"
	PropExpenseID = "Expense ID"
	PropAmount    = "Amount"
	PropCategory  = "Category"
	PropDate      = "Date"
	PropSource    = "Source"
)

// ExpenseToNotionProperties converts an expense into page properties. The
// page title is the description, or the category when there is none.
func ExpenseToNotionProperties(e *domain.Expense) notionapi.Properties {
	title := e.Category
	if e.Description != nil && *e.Description != "" {
		title = *e.Description
	}

	start := notionapi.Date(time.Date(e.Date.Year, e.Date.Month, e.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: []notionapi.RichText{textBlock(title)},
		},
		PropExpenseID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textBlock(e.ID)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: e.Amount.InexactFloat64(),
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: e.Category},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		},
	}
	if e.Source != "" {
		props[PropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(e.Source)},
		}
	}
	return props
}

func textBlock(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// extractExpenseID reads the Expense ID property of a page, or "".
func extractExpenseID(page notionapi.Page) string {
	prop, ok := page.Properties[PropExpenseID]
	if !ok {
		return ""
	}
	richText, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(richText.RichText) == 0 {
		return ""
	}
	return richText.RichText[0].PlainText
}
