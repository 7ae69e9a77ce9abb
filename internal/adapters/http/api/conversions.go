// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/convrelay/internal/adapters/upload"
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/resolve"
)

// TraceHeader carries the caller-assigned trace id into audit records.
const TraceHeader = "trace-id"

// ConversionsHandler handles conversion submissions.
type ConversionsHandler struct {
	deps Dependencies
}

// NewConversionsHandler creates a new conversions handler.
func NewConversionsHandler(deps Dependencies) *ConversionsHandler {
	return &ConversionsHandler{deps: deps}
}

// HandlePostConversion handles POST /conversions requests. The body is the
// raw event payload; resolution and delivery run synchronously, so the
// response reports the terminal outcome of this invocation.
func (h *ConversionsHandler) HandlePostConversion(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_conversion"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var event model.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = uuid.NewString()
	}

	if err := h.deps.Process(r.Context(), event, traceID); err != nil {
		switch {
		case errors.Is(err, resolve.ErrInvalidConfig), errors.Is(err, upload.ErrConfiguration):
			writeError(w, http.StatusUnprocessableEntity, "invalid_config", err)
		default:
			writeError(w, http.StatusBadGateway, "delivery_failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Status: "relayed", TraceID: traceID})
}
