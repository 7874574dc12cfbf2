package payments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/opticlinic/opticlinic/internal/platform/httpx"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Handler serves the unified payment ledger.
type Handler struct {
	logger     *slog.Logger
	aggregator *Aggregator
	processor  *Processor
}

func NewHandler(logger *slog.Logger, aggregator *Aggregator, processor *Processor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, aggregator: aggregator, processor: processor}
}

// MountRoutes registers /api/payments.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export.xlsx", h.export)
	r.Post("/{id}/process", h.process)
}

func parseFilter(r *http.Request) (Filter, error) {
	storeID, err := httpx.OptionalUUIDQuery(r, "store_id")
	if err != nil {
		return Filter{}, err
	}
	q := r.URL.Query()
	filter := Filter{StoreID: storeID, Type: Type(q.Get("type")), Source: Source(q.Get("source"))}
	switch filter.Type {
	case "", TypeIncome, TypeExpenditure:
	default:
		return Filter{}, shared.Validationf("unknown type %q", filter.Type)
	}
	switch filter.Source {
	case "", SourceRegularInvoice, SourceMedicalInvoice, SourceQuickSale, SourceExpenditure:
	default:
		return Filter{}, shared.Validationf("unknown source %q", filter.Source)
	}
	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	records, err := h.aggregator.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	records, err := h.aggregator.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	lang := language.English
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		lang = tags[0]
	}
	data, err := WriteXLSX(records, lang)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="payments-`+time.Now().UTC().Format("20060102")+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := httpx.DecodeOptional(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.processor.Process(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	httpx.JSON(w, status, result)
}
