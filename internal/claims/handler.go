package claims

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/pkg/handlers"
	"github.com/jmcalloway/claimward/pkg/pagination"
	"github.com/jmcalloway/claimward/pkg/routes"
)

// Handler provides HTTP endpoints for claim workflow operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// DispatchRequest carries the explicit dispatch parameters. Empty fields
// fall back to the configured channel and the derived idempotency key.
type DispatchRequest struct {
	Channel        string `json:"channel,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "claims"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for claim endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/claims",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "POST", Pattern: "/batch", Handler: h.SubmitBatch},
			{Method: "GET", Pattern: "/resumable", Handler: h.ListResumable},
			{Method: "GET", Pattern: "/{id}", Handler: h.Get},
			{Method: "GET", Pattern: "/{id}/history", Handler: h.History},
			{Method: "POST", Pattern: "/{id}/advance", Handler: h.Advance},
			{Method: "POST", Pattern: "/{id}/resume", Handler: h.Resume},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
			{Method: "POST", Pattern: "/{id}/dispatch", Handler: h.Dispatch},
		},
	}
}

// Submit creates a claim from a JSON submission and returns its initial state.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := h.sys.Submit(r.Context(), sub)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, state)
}

// SubmitBatch creates one claim per element of a JSON submission array.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var subs []Submission
	if err := json.NewDecoder(r.Body).Decode(&subs); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	states, err := h.sys.SubmitBatch(r.Context(), subs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, states)
}

// Get returns the latest checkpointed state for a claim UUID path parameter.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	state, err := h.sys.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// History returns the claim's full checkpoint log in sequence order.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	history, err := h.sys.History(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}

// Advance runs automatic stages until the next suspend or terminal stage.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	state, err := h.sys.Advance(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// Resume continues a suspended claim with a decoded DecisionCommand JSON body.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var cmd DecisionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := h.sys.Resume(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// Cancel rewinds a suspended claim to its pre-gate stage.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	state, err := h.sys.Cancel(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// Dispatch delivers the drafted response with a decoded DispatchRequest JSON body.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	record, err := h.sys.Dispatch(r.Context(), id, req.Channel, req.IdempotencyKey)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, record)
}

// ListResumable returns every claim whose latest checkpoint is non-terminal.
func (h *Handler) ListResumable(w http.ResponseWriter, r *http.Request) {
	ids, err := h.sys.ListResumable(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ids)
}
