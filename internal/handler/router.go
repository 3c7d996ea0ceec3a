package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
)

// RouterConfig holds the router-level settings.
type RouterConfig struct {
	CORSOrigin     string
	RequestTimeout time.Duration
}

// NewRouter assembles the middleware chain and the /api/v1 routes.
func NewRouter(h *HTTPHandler, c *Contracts, cfg RouterConfig, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		get := []string{http.MethodGet}
		post := []string{http.MethodPost}

		api.Handle("/expenses", c.Wrap(Contract{Methods: []string{http.MethodGet, http.MethodPost}}, h.Expenses))
		api.Handle("/approvals/submit", c.Wrap(Contract{Methods: post}, h.SubmitReport))
		api.Handle("/approvals/step", c.Wrap(Contract{Methods: post}, h.StepReport))
		api.Handle("/approvals/history", c.Wrap(Contract{Methods: get}, h.ApprovalHistory))
		api.Handle("/analytics/summary", c.Wrap(Contract{Methods: get}, h.AnalyticsSummary))
		api.Handle("/payments/generate", c.Wrap(Contract{Methods: post}, h.GeneratePayments))
		api.Handle("/approval-rules", c.Wrap(Contract{Methods: []string{http.MethodGet, http.MethodPost}}, h.ApprovalRules))
		// Document parsing mutates nothing; the idempotency gate would only
		// force clients to invent keys for a read-like operation.
		noIdem := false
		api.Handle("/ocr", c.Wrap(Contract{Methods: post, RequireIdempotency: &noIdem}, h.ParseDocument))
	})

	// Catch-all: unknown endpoints still answer in the envelope.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		env, status := errorEnvelope(apperr.New(apperr.CodeNotFound, "Unknown endpoint"))
		writeEnvelope(w, status, env)
	})

	return r
}
