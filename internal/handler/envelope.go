package handler

import (
	"encoding/json"
	"net/http"

	"expense-reports-service/internal/apperr"
)

// Envelope is the uniform response wrapper: {ok:true, data, meta?} on
// success, {ok:false, error:{code, message}} on failure. Every response
// funnels through this type so the shape is structurally guaranteed.
type Envelope struct {
	OK    bool           `json:"ok"`
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable code and human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// successEnvelope wraps data for a 200 response.
func successEnvelope(data any) (*Envelope, int) {
	return &Envelope{OK: true, Data: data}, http.StatusOK
}

// errorEnvelope converts any error into an envelope plus its HTTP status.
// Unattached errors default to 400 BAD_REQUEST.
func errorEnvelope(err error) (*Envelope, int) {
	appErr := apperr.From(err)
	return &Envelope{
		OK:    false,
		Error: &ErrorBody{Code: appErr.Code, Message: appErr.Message},
	}, appErr.Status
}

// writeEnvelope serializes an envelope. Returns the bytes written so the
// contract wrapper can record them for idempotent replay.
func writeEnvelope(w http.ResponseWriter, status int, env *Envelope) []byte {
	body, err := json.Marshal(env)
	if err != nil {
		// Marshalling an envelope of JSON-safe types cannot fail in practice;
		// degrade to a fixed error body if it somehow does.
		body = []byte(`{"ok":false,"error":{"code":"INTERNAL","message":"failed to encode response"}}`)
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	return body
}
