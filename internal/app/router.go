package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opticlinic/opticlinic/internal/accounting"
	"github.com/opticlinic/opticlinic/internal/auth"
	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/clinic/appointments"
	"github.com/opticlinic/opticlinic/internal/clinic/patients"
	"github.com/opticlinic/opticlinic/internal/inventory"
	"github.com/opticlinic/opticlinic/internal/masterdata/customers"
	"github.com/opticlinic/opticlinic/internal/masterdata/products"
	"github.com/opticlinic/opticlinic/internal/masterdata/staff"
	"github.com/opticlinic/opticlinic/internal/masterdata/stores"
	"github.com/opticlinic/opticlinic/internal/observability"
	"github.com/opticlinic/opticlinic/internal/payments"
	"github.com/opticlinic/opticlinic/internal/sales"
	"github.com/opticlinic/opticlinic/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers leave their routes unmounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Tokens  *auth.TokenIssuer

	AuthHandler         *auth.Handler
	StoresHandler       *stores.Handler
	CustomersHandler    *customers.Handler
	PatientsHandler     *patients.Handler
	StaffHandler        *staff.Handler
	ProductsHandler     *products.Handler
	InventoryHandler    *inventory.Handler
	AppointmentsHandler *appointments.Handler
	BillingHandler      *billing.Handler
	SalesHandler        *sales.Handler
	PaymentsHandler     *payments.Handler
	AccountingHandler   *accounting.Handler
	JobHandler          *jobs.Handler
}

// HandlersFor builds the API handlers from wired services.
func HandlersFor(params RouterParams, svc *Services) RouterParams {
	logger := params.Logger
	params.Tokens = svc.Tokens
	params.AuthHandler = auth.NewHandler(logger, svc.Auth, svc.Tokens)
	params.StoresHandler = stores.NewHandler(logger, svc.Stores)
	params.CustomersHandler = customers.NewHandler(logger, svc.Customers)
	params.PatientsHandler = patients.NewHandler(logger, svc.Patients)
	params.StaffHandler = staff.NewHandler(logger, svc.Staff)
	params.ProductsHandler = products.NewHandler(logger, svc.Products)
	params.InventoryHandler = inventory.NewHandler(logger, svc.Inventory)
	params.AppointmentsHandler = appointments.NewHandler(logger, svc.Appointments)
	params.BillingHandler = billing.NewHandler(logger, svc.Billing)
	params.SalesHandler = sales.NewHandler(logger, svc.Sales)
	params.PaymentsHandler = payments.NewHandler(logger, svc.Aggregator, svc.Processor)
	params.AccountingHandler = accounting.NewHandler(logger, svc.Accounting)
	return params
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}

		api.Group(func(private chi.Router) {
			private.Use(auth.Authenticate(params.Tokens))

			mount(private, "/stores", params.StoresHandler)
			mount(private, "/customers", params.CustomersHandler)
			mount(private, "/patients", params.PatientsHandler)
			mount(private, "/staff", params.StaffHandler)
			mount(private, "/appointments", params.AppointmentsHandler)
			mount(private, "/inventory", params.InventoryHandler)
			mount(private, "/sales", params.SalesHandler)
			mount(private, "/payments", params.PaymentsHandler)

			if params.ProductsHandler != nil || params.InventoryHandler != nil {
				private.Route("/products", func(pr chi.Router) {
					// reorder routes first so /reorder never matches /{id}
					if params.InventoryHandler != nil {
						params.InventoryHandler.MountReorderRoutes(pr)
					}
					if params.ProductsHandler != nil {
						params.ProductsHandler.MountRoutes(pr)
					}
				})
			}

			if params.BillingHandler != nil {
				private.Route("/invoices", params.BillingHandler.MountInvoiceRoutes)
				private.Route("/medical-invoices", params.BillingHandler.MountMedicalRoutes)
				private.Route("/expenditures", params.BillingHandler.MountExpenditureRoutes)
			}

			private.Group(func(back chi.Router) {
				back.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleManager))
				mount(back, "/accounting", params.AccountingHandler)
				mount(back, "/jobs", params.JobHandler)
			})
		})
	})
	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

func mount[H routeMounter](r chi.Router, pattern string, h H) {
	var zero H
	if any(h) == any(zero) {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
