package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opticlinic/opticlinic/internal/platform/httpx"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Handler wires HTTP endpoints for stock and reorders.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountReorderRoutes registers the reorder endpoints under /api/products.
func (h *Handler) MountReorderRoutes(r chi.Router) {
	r.Get("/reorder", h.suggestions)
	r.Post("/reorder", h.reorder)
	r.Post("/bulk-reorder", h.bulkReorder)
}

// MountRoutes registers /api/inventory.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/adjust", h.adjust)
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.OptionalUUIDQuery(r, "store_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	items, err := h.service.Suggestions(r.Context(), storeID, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.service.Reorder(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) bulkReorder(w http.ResponseWriter, r *http.Request) {
	var req BulkReorderRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.service.BulkReorder(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.OptionalUUIDQuery(r, "store_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	items, err := h.service.ListStock(r.Context(), StockFilter{
		StoreID: storeID,
		LowOnly: q.Get("low") == "true",
		Page:    shared.PageFromQuery(q),
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	balance, err := h.service.Adjust(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}
