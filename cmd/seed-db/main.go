// Command seed-db loads customer accounts and API keys into PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/seed"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		accountsFile  string
		apiKeyPepper  string
		corporateRate string
		maxOwing      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&accountsFile, "accounts-file", "", "accounts JSON file; empty uses the embedded demo accounts")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.StringVar(&corporateRate, "corporate-rate", "0.10", "discount for corporate customers without their own rate")
	flag.StringVar(&maxOwing, "max-owing", "-100.00", "credit limit for customers without their own")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STOREFRONT_API_KEY_PEPPER")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		if apiKeyPepper == "" {
			return errors.New("API key pepper is required: set --api-key-pepper or STOREFRONT_API_KEY_PEPPER")
		}
		def, err := defaults(corporateRate, maxOwing)
		if err != nil {
			return err
		}
		if err := run(ctx, lg, databaseURL, accountsFile, []byte(apiKeyPepper), def); err != nil {
			return errors.Wrap(err, "seed")
		}
		lg.Info("Seed completed")
		return nil
	})
}

func defaults(corporateRate, maxOwing string) (seed.Defaults, error) {
	rate, err := decimal.NewFromString(corporateRate)
	if err != nil {
		return seed.Defaults{}, errors.Wrap(err, "corporate rate")
	}
	limit, err := decimal.NewFromString(maxOwing)
	if err != nil {
		return seed.Defaults{}, errors.Wrap(err, "max owing")
	}
	return seed.Defaults{CorporateRate: rate, MaxOwing: limit}, nil
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, accountsFile string, pepper []byte, def seed.Defaults) error {
	data := db.Accounts
	if accountsFile != "" {
		lg.Info("Reading accounts file", zap.String("path", accountsFile))
		b, err := os.ReadFile(accountsFile)
		if err != nil {
			return errors.Wrap(err, "read accounts file")
		}
		data = b
	}
	accounts, err := seed.Parse(data)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seed.Apply(ctx, postgres.NewStore(pool), accounts, pepper, def); err != nil {
		return err
	}
	lg.Info("Seeded accounts",
		zap.Int("customers", len(accounts.Customers)),
		zap.Int("staff", len(accounts.Staff)),
	)
	return nil
}
