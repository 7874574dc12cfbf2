package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

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
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/sales"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Services holds every domain service built against one pool.
type Services struct {
	Tokens        *auth.TokenIssuer
	Auth          *auth.Service
	Accounting    *accounting.Service
	Billing       *billing.Service
	Stores        *stores.Service
	Customers     *customers.Service
	Staff         *staff.Service
	Products      *products.Service
	Patients      *patients.Service
	Appointments  *appointments.Service
	Inventory     *inventory.Service
	Sales         *sales.Service
	Aggregator    *payments.Aggregator
	Processor     *payments.Processor
	PaymentsCache *cache.Versioned
}

// NewServices wires repositories, services and the payments cache. A nil
// redis client disables caching.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	audit := shared.NewAuditLogger(pool)
	paymentsCache := cache.NewVersioned(redisClient, "payments", cfg.PaymentsCacheTTL)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	ledger := accounting.NewService(accounting.NewRepository(pool), audit)

	bill := billing.NewService(billing.NewRepository(pool), ledger, audit)
	bill.WithCache(paymentsCache)
	bill.WithDefaultTaxRate(cfg.DefaultTax())

	staffRepo := staff.NewRepository(pool)
	appts := appointments.NewService(
		appointments.NewRepository(pool),
		appointments.NewDoctorPolicy(cfg.DefaultDoctor(), staffRepo),
		audit,
	)

	saleSvc := sales.NewService(sales.NewRepository(pool), ledger, audit)
	saleSvc.WithCache(paymentsCache)
	saleSvc.WithDefaultTaxRate(cfg.DefaultTax())

	processor := payments.NewProcessor(bill, appts, db.NewTransactor(pool), cfg.AppointmentTax(), logger)
	processor.WithCache(paymentsCache)

	customerSvc := customers.NewService(customers.NewRepository(pool), audit)
	customerSvc.WithCache(paymentsCache)
	patientSvc := patients.NewService(patients.NewRepository(pool))
	patientSvc.WithCache(paymentsCache)
	if metrics != nil {
		processor.WithMetrics(metrics)
	}

	return &Services{
		Tokens:        tokens,
		Auth:          auth.NewService(auth.NewRepository(pool), tokens),
		Accounting:    ledger,
		Billing:       bill,
		Stores:        stores.NewService(stores.NewRepository(pool)),
		Customers:     customerSvc,
		Staff:         staff.NewService(staffRepo),
		Products:      products.NewService(products.NewRepository(pool), audit),
		Patients:      patientSvc,
		Appointments:  appts,
		Inventory:     inventory.NewService(inventory.NewRepository(pool), bill, audit),
		Sales:         saleSvc,
		Aggregator:    payments.NewAggregator(payments.NewRepository(pool), paymentsCache),
		Processor:     processor,
		PaymentsCache: paymentsCache,
	}
}
