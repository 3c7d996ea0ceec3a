package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
)

// minIdempotencyKeyLen is the minimum accepted Idempotency-Key length after
// trimming.
const minIdempotencyKeyLen = 8

// cacheDirective is attached to every read-only response. Advisory only.
const cacheDirective = "private, max-age=30, stale-while-revalidate=60"

// HandlerFunc is a business handler: it returns the response data or an
// error; the contract wrapper owns all response shaping.
type HandlerFunc func(r *http.Request) (any, error)

// IdempotencyStore is the durable (route, key) → response cache consulted
// before and populated after every keyed mutation.
type IdempotencyStore interface {
	Get(ctx context.Context, route, key string) (status int, body []byte, found bool, err error)
	Save(ctx context.Context, route, key string, status int, body []byte) error
}

// Contract declares the request contract for one route.
type Contract struct {
	// Methods is the allow-set; anything else is rejected with 405.
	Methods []string
	// RequireIdempotency overrides the default (required for non-GET).
	RequireIdempotency *bool
	// Validate runs before the handler; failures map to client errors.
	Validate func(r *http.Request) error
}

// Contracts wraps workflow endpoints with the uniform request contract:
// method gating, idempotency-key enforcement with replay, optional
// validation, and the response envelope.
type Contracts struct {
	idem IdempotencyStore
	log  zerolog.Logger
}

// NewContracts creates a contract wrapper. idem may be nil, which disables
// replay but keeps the key-presence gate.
func NewContracts(idem IdempotencyStore, log zerolog.Logger) *Contracts {
	return &Contracts{idem: idem, log: log}
}

// Wrap applies the contract around h.
func (c *Contracts) Wrap(ct Contract, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !methodAllowed(ct.Methods, r.Method) {
			env, status := errorEnvelope(apperr.New(apperr.CodeMethodNotAllowed, "Method not allowed"))
			writeEnvelope(w, status, env)
			return
		}

		if r.Method == http.MethodGet {
			w.Header().Set("Cache-Control", cacheDirective)
		}

		wantIdem := r.Method != http.MethodGet
		if ct.RequireIdempotency != nil {
			wantIdem = *ct.RequireIdempotency
		}

		var route, key string
		if wantIdem {
			key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if len(key) < minIdempotencyKeyLen {
				env, status := errorEnvelope(apperr.New(apperr.CodeIdempotencyRequired,
					"Provide Idempotency-Key header (>=8 chars)."))
				writeEnvelope(w, status, env)
				return
			}

			route = r.Method + " " + r.URL.Path
			if c.idem != nil {
				status, body, found, err := c.idem.Get(r.Context(), route, key)
				if err != nil {
					// Replay is best-effort: a broken cache must not take
					// down mutations, so fall through and execute.
					c.log.Warn().Err(err).Str("route", route).Msg("idempotency lookup failed")
				} else if found {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotency-Replayed", "true")
					w.WriteHeader(status)
					w.Write(body)
					return
				}
			}
		}

		if ct.Validate != nil {
			if err := ct.Validate(r); err != nil {
				env, status := errorEnvelope(err)
				c.respond(w, r, route, key, env, status)
				return
			}
		}

		data, err := h(r)
		if err != nil {
			env, status := errorEnvelope(err)
			c.respond(w, r, route, key, env, status)
			return
		}
		env, status := successEnvelope(data)
		c.respond(w, r, route, key, env, status)
	}
}

// respond writes the envelope and, for keyed mutations, records the response
// for replay. Server errors are not recorded: a retry should re-execute.
func (c *Contracts) respond(w http.ResponseWriter, r *http.Request, route, key string, env *Envelope, status int) {
	body := writeEnvelope(w, status, env)

	if c.idem == nil || key == "" || status >= http.StatusInternalServerError {
		return
	}
	if err := c.idem.Save(r.Context(), route, key, status, body); err != nil {
		c.log.Warn().Err(err).Str("route", route).Msg("idempotency save failed")
	}
}

func methodAllowed(allowed []string, method string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}
