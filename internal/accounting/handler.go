package accounting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opticlinic/opticlinic/internal/platform/httpx"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Handler exposes ledger read endpoints and manual postings.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Get("/entries", h.listEntries)
	r.Post("/entries", h.post)
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/integrity", h.integrity)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	txID, err := httpx.OptionalUUIDQuery(r, "transaction_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	refID, err := httpx.OptionalUUIDQuery(r, "reference_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	entries, err := h.service.ListEntries(r.Context(), EntryFilter{
		TransactionID: txID,
		ReferenceID:   refID,
		AccountCode:   r.URL.Query().Get("account_code"),
		Limit:         page.Limit,
		Offset:        page.Offset,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req PostingRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	posting, err := h.service.Post(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, posting)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	imbalances, err := h.service.CheckIntegrity(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balanced":     len(imbalances) == 0,
		"unbalanced":   imbalances,
		"transactions": len(imbalances),
	})
}
