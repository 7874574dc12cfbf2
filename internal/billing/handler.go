package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opticlinic/opticlinic/internal/platform/httpx"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Handler serves invoices, medical invoices and expenditures.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountInvoiceRoutes registers /api/invoices.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Get("/", h.listInvoices)
	r.Post("/", h.createInvoice)
	r.Get("/{id}", h.showInvoice)
}

// MountMedicalRoutes registers /api/medical-invoices.
func (h *Handler) MountMedicalRoutes(r chi.Router) {
	r.Get("/", h.listMedical)
	r.Post("/", h.createMedical)
	r.Get("/{id}", h.showMedical)
}

// MountExpenditureRoutes registers /api/expenditures.
func (h *Handler) MountExpenditureRoutes(r chi.Router) {
	r.Get("/", h.listExpenditures)
	r.Post("/", h.createExpenditure)
}

func invoiceFilter(r *http.Request) (InvoiceFilter, error) {
	storeID, err := httpx.OptionalUUIDQuery(r, "store_id")
	if err != nil {
		return InvoiceFilter{}, err
	}
	q := r.URL.Query()
	filter := InvoiceFilter{StoreID: storeID, Status: InvoiceStatus(q.Get("status")), Page: shared.PageFromQuery(q)}
	if filter.Status != "" && !filter.Status.Valid() {
		return InvoiceFilter{}, ErrInvalidStatus
	}
	switch d := Direction(q.Get("direction")); d {
	case "", DirectionIncome, DirectionExpenditure:
		filter.Direction = d
	default:
		return InvoiceFilter{}, shared.Validationf("unknown direction %q", d)
	}
	return filter, nil
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := invoiceFilter(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	items, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) listMedical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MedicalInvoiceFilter{PaymentStatus: MedicalPaymentStatus(q.Get("payment_status")), Page: shared.PageFromQuery(q)}
	var err error
	if filter.StoreID, err = httpx.OptionalUUIDQuery(r, "store_id"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if filter.PatientID, err = httpx.OptionalUUIDQuery(r, "patient_id"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	items, err := h.service.ListMedicalInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createMedical(w http.ResponseWriter, r *http.Request) {
	var req MedicalInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	m, err := h.service.CreateMedicalInvoice(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) showMedical(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	m, err := h.service.GetMedicalInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) listExpenditures(w http.ResponseWriter, r *http.Request) {
	filter, err := invoiceFilter(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	items, err := h.service.ListExpenditures(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createExpenditure(w http.ResponseWriter, r *http.Request) {
	var req ExpenditureRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.RecordExpenditure(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
