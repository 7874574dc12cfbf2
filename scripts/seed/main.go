package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/app"
	"github.com/opticlinic/opticlinic/internal/auth"
	"github.com/opticlinic/opticlinic/internal/inventory"
	"github.com/opticlinic/opticlinic/internal/masterdata/products"
	"github.com/opticlinic/opticlinic/internal/masterdata/staff"
	"github.com/opticlinic/opticlinic/internal/masterdata/stores"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Seeds a demo store with staff, a small catalogue and opening stock.
func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	svc := app.NewServices(cfg, pool, nil, nil, logger)
	if err := seed(ctx, svc, logger); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete")
}

func seed(ctx context.Context, svc *app.Services, logger *slog.Logger) error {
	if _, err := svc.Auth.CreateUser(ctx, auth.NewUserInput{
		Email:    "admin@opticlinic.local",
		FullName: "Clinic Admin",
		Role:     auth.RoleAdmin,
		Password: "admin12345",
	}); err != nil && !errors.Is(err, shared.ErrConflict) {
		return fmt.Errorf("admin user: %w", err)
	}

	store, err := svc.Stores.Create(ctx, stores.StoreRequest{Name: "Main Street Optical", Phone: "555-0100"})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	storeID := store.ID

	for _, req := range []staff.StaffRequest{
		{StaffCode: "DR-001", FirstName: "Maya", LastName: "Chen", Role: staff.RoleOptometrist, StoreID: &storeID},
		{StaffCode: "OP-001", FirstName: "Luis", LastName: "Ortega", Role: staff.RoleOptician, StoreID: &storeID},
	} {
		if _, err := svc.Staff.Create(ctx, req); err != nil && !errors.Is(err, shared.ErrConflict) {
			return fmt.Errorf("staff %s: %w", req.StaffCode, err)
		}
	}

	catalogue := []struct {
		req   products.ProductRequest
		stock int
	}{
		{products.ProductRequest{SKU: "FR-ACE-01", Name: "Acetate frame", Category: "frames", Price: decimal.NewFromInt(120), CostPrice: decimal.NewFromInt(45), SupplierName: "Luxottica", ReorderLevel: 5}, 12},
		{products.ProductRequest{SKU: "LN-SV-156", Name: "Single vision lens 1.56", Category: "lenses", Price: decimal.NewFromInt(60), CostPrice: decimal.NewFromInt(18), SupplierName: "Essilor", ReorderLevel: 20}, 8},
		{products.ProductRequest{SKU: "CL-DAILY-30", Name: "Daily contacts 30pk", Category: "contacts", Price: decimal.RequireFromString("34.50"), CostPrice: decimal.NewFromInt(15), SupplierName: "Acuvue", ReorderLevel: 10}, 40},
	}
	for _, item := range catalogue {
		p, err := svc.Products.Create(ctx, item.req)
		if err != nil {
			if errors.Is(err, shared.ErrConflict) {
				logger.Info("product exists", slog.String("sku", item.req.SKU))
				continue
			}
			return fmt.Errorf("product %s: %w", item.req.SKU, err)
		}
		if _, err := svc.Inventory.Adjust(ctx, inventory.AdjustRequest{
			StoreID:   storeID,
			ProductID: p.ID,
			Delta:     item.stock,
			Reason:    "opening stock",
		}); err != nil {
			return fmt.Errorf("stock %s: %w", item.req.SKU, err)
		}
	}
	return nil
}
