package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/api/middleware"
	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/expenses"
	"github.com/zenspend/zenspend/internal/extractor"
	"github.com/zenspend/zenspend/internal/storage"
)

// ExpensesHandler handles expense and category endpoints.
type ExpensesHandler struct {
	svc    *expenses.Service
	schema *jsonschema.Schema
	log    zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(svc *expenses.Service, log zerolog.Logger) (*ExpensesHandler, error) {
	schema, err := compileSchema("add_expense.json", addExpenseSchema)
	if err != nil {
		return nil, fmt.Errorf("NewExpensesHandler: %w", err)
	}
	return &ExpensesHandler{svc: svc, schema: schema, log: log}, nil
}

// AddExpense handles POST /api/expenses
func (h *ExpensesHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.schema.Validate(body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, schemaMessage(err))
		return
	}

	in, err := manualExpenseFrom(body.(map[string]any))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.svc.AddExpense(r.Context(), in)
	if errors.Is(err, expenses.ErrInvalidExpense) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to add expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add expense")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toExpenseResponse(e))
}

// manualExpenseFrom converts a schema-valid body. The note field is kept
// as an alias of description.
func manualExpenseFrom(body map[string]any) (expenses.ManualExpense, error) {
	var in expenses.ManualExpense

	amount, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprint(body["amount"])))
	if err != nil {
		return in, fmt.Errorf("amount is not a number")
	}
	in.Amount = amount
	in.Category, _ = body["category"].(string)

	if s, ok := body["date"].(string); ok {
		d, err := civil.ParseDate(s)
		if err != nil || !d.IsValid() {
			return in, fmt.Errorf("date %q is not a calendar date", s)
		}
		in.Date = &d
	}

	for _, key := range []string{"description", "note"} {
		if s, ok := body[key].(string); ok {
			in.Note = &s
			break
		}
	}
	return in, nil
}

// ListExpenses handles GET /api/expenses
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := expenseFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.svc.ListExpenses(r.Context(), filter)
	if errors.Is(err, expenses.ErrInvalidRange) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"expenses": toExpenseResponses(list),
		"count":    len(list),
	})
}

func expenseFilter(r *http.Request) (domain.ExpenseFilter, error) {
	var (
		f   domain.ExpenseFilter
		err error
	)
	if f.From, err = dateParam(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = dateParam(r, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(r, "offset"); err != nil {
		return f, err
	}
	f.Category = r.URL.Query().Get("category")
	return f, nil
}

// GetExpense handles GET /api/expenses/{id}
func (h *ExpensesHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	e, err := h.svc.GetExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("expense_id", id).Msg("Failed to get expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get expense")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toExpenseResponse(e))
}

// Summary handles GET /api/summary
func (h *ExpensesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := h.svc.Totals(r.Context(), from, to)
	if errors.Is(err, expenses.ErrInvalidRange) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute totals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute totals")
		return
	}

	type total struct {
		Category string      `json:"category"`
		Total    json.Number `json:"total"`
		Count    int         `json:"count"`
	}
	out := make([]total, len(totals))
	grand := decimal.Zero
	for i, t := range totals {
		out[i] = total{Category: t.Category, Total: json.Number(t.Total.String()), Count: t.Count}
		grand = grand.Add(t.Total)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"totals": out,
		"total":  json.Number(grand.String()),
	})
}

// ListCategories handles GET /api/categories
func (h *ExpensesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.svc.Categories()
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// ChatHandler handles conversational expense entry.
type ChatHandler struct {
	svc *expenses.Service
	log zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *expenses.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.RecordFromChat(r.Context(), req.Message)
	if errors.Is(err, extractor.ErrExtractionFailed) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, extractor.ErrExtractionFailed.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to record chat expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record expense")
		return
	}

	resp := map[string]any{
		"response": res.Reply,
		"expense":  toExpenseResponse(res.Expense),
		"source":   res.Source,
	}
	if res.SyncJobID != "" {
		resp["sync_job_id"] = res.SyncJobID
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

// Extract handles POST /api/extract. Nothing is stored.
func (h *ChatHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.svc.Preview(req.Message)
	if err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, extractor.ErrExtractionFailed.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, draft)
}
