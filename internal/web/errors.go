package web

// errors.go provides unified JSON error responses for the web layer.
//
// Server-side failures are logged with the request ID and mapped through
// core.MapError so clients get a stable code instead of driver text.
// Client mistakes (bad query parameters) echo the specific problem back.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/JonMunkholm/stopload/internal/logging"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// CodeBadRequest marks errors caused by the request itself.
const CodeBadRequest = "REQ001"

// respondError logs err and writes its mapped message with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Debug("request error", attrs...)
	}

	writeJSON(w, statusCode, ErrorResponse{
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
	})
}

// respondBadRequest writes a client error whose message is safe to echo.
func respondBadRequest(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	logging.FromContext(r.Context()).Debug("bad request",
		"path", r.URL.Path,
		"status", statusCode,
		"reason", message,
	)
	writeJSON(w, statusCode, ErrorResponse{Error: message, Code: CodeBadRequest})
}

// writeJSON encodes v as the response body.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
