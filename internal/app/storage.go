package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/seed"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
)

// storage is the set of repositories the services run on.
type storage struct {
	customers customer.Repository
	ledger    payment.Ledger
	records   payment.Records
	orders    order.Repository
	keys      auth.Repository
	// pinger is nil for in-memory storage.
	pinger health.Pinger
	close  func()
}

func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, def seed.Defaults) (*storage, error) {
	if cfg.DatabaseURL == "" {
		return openMemory(ctx, lg, cfg, def)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Using PostgreSQL storage")

	st := postgres.NewStore(pool)
	return &storage{
		customers: st.Customers,
		ledger:    st.Ledger,
		records:   st.Ledger,
		orders:    st.Orders,
		keys:      st.APIKeys,
		pinger:    pool,
		close:     pool.Close,
	}, nil
}

func openMemory(ctx context.Context, lg *zap.Logger, cfg *Config, def seed.Defaults) (*storage, error) {
	st := memory.New()
	if cfg.SeedDemo {
		accounts, err := seed.Parse(db.Accounts)
		if err != nil {
			return nil, errors.Wrap(err, "parse demo accounts")
		}
		if err := seed.Apply(ctx, st, accounts, []byte(cfg.APIKeyPepper), def); err != nil {
			return nil, errors.Wrap(err, "seed demo accounts")
		}
		lg.Info("Seeded demo accounts",
			zap.Int("customers", len(accounts.Customers)),
			zap.Int("staff", len(accounts.Staff)),
		)
	}
	lg.Warn("Using in-memory storage, data is lost on restart")

	return &storage{
		customers: st,
		ledger:    st,
		records:   st,
		orders:    st.Orders(),
		keys:      st,
		close:     func() {},
	}, nil
}

func loadCatalog(cfg CatalogConfig) (*catalog.Catalog, error) {
	switch {
	case cfg.Vegetables == "" && cfg.Boxes == "":
		return catalog.Load(db.Vegetables, db.Boxes)
	case cfg.Vegetables == "" || cfg.Boxes == "":
		return nil, errors.New("catalog needs both vegetable and box files")
	default:
		return catalog.LoadFiles(cfg.Vegetables, cfg.Boxes)
	}
}
