package policies

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/pkg/handlers"
	"github.com/jmcalloway/claimward/pkg/pagination"
	"github.com/jmcalloway/claimward/pkg/routes"
)

// Handler provides HTTP endpoints for catalog and policy operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "policies"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for policy endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/policies",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/products", Handler: h.ListProducts},
			{Method: "GET", Pattern: "/products/{id}", Handler: h.FindProduct},
		},
	}
}

// List returns a paginated list of policies.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListPolicies(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single policy by its identifier path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	p, err := h.sys.FindPolicy(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// ListProducts returns a paginated list of catalog products with optional filters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListProducts(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// FindProduct returns a single catalog product by its UUID path parameter.
func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	p, err := h.sys.FindProduct(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}
