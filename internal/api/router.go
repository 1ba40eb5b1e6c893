// Package api exposes the expense service over HTTP.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/api/handlers"
	"github.com/zenspend/zenspend/internal/api/middleware"
	"github.com/zenspend/zenspend/internal/expenses"
)

// Options configures NewRouter.
type Options struct {
	// AllowedOrigins is passed to the CORS middleware. Empty allows any.
	AllowedOrigins []string
	// Extra, when non-nil, receives routes the API does not own (metrics,
	// landing page) before middleware is applied.
	Extra func(mux *http.ServeMux)
}

// NewRouter registers every API route on a new mux and wraps it in the
// standard middleware.
func NewRouter(svc *expenses.Service, log zerolog.Logger, opts Options) (http.Handler, error) {
	expensesHandler, err := handlers.NewExpensesHandler(svc, log)
	if err != nil {
		return nil, err
	}
	chatHandler := handlers.NewChatHandler(svc, log)
	jobsHandler := handlers.NewJobsHandler(svc, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", handlers.Welcome)

	// Chat endpoints
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)
	mux.HandleFunc("POST /api/extract", chatHandler.Extract)

	// Expenses endpoints
	mux.HandleFunc("POST /api/expenses", expensesHandler.AddExpense)
	mux.HandleFunc("GET /api/expenses", expensesHandler.ListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", expensesHandler.GetExpense)
	mux.HandleFunc("GET /api/summary", expensesHandler.Summary)
	mux.HandleFunc("GET /api/categories", expensesHandler.ListCategories)

	// Jobs endpoints
	mux.HandleFunc("POST /api/exports", jobsHandler.CreateExport)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	// Paths used by the original web client.
	mux.HandleFunc("POST /ask", chatHandler.Chat)
	mux.HandleFunc("POST /add-expense", expensesHandler.AddExpense)

	mux.HandleFunc("GET /health", handlers.Health)

	if opts.Extra != nil {
		opts.Extra(mux)
	}

	return middleware.Chain(mux, log, opts.AllowedOrigins), nil
}
