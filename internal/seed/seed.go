// Package seed loads demo accounts into storage.
package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/customer"
)

// Customer is a seeded customer account with its API key.
type Customer struct {
	ID           string           `json:"id"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Username     string           `json:"username"`
	Address      string           `json:"address"`
	DistanceKM   *int             `json:"distance_km"`
	Kind         customer.Kind    `json:"kind"`
	DiscountRate *decimal.Decimal `json:"discount_rate"`
	Balance      decimal.Decimal  `json:"balance"`
	MaxOwing     *decimal.Decimal `json:"max_owing"`
	APIKey       string           `json:"api_key"`
}

// Staff is a seeded staff member.
type Staff struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// Accounts is the seed file layout.
type Accounts struct {
	Customers []Customer `json:"customers"`
	Staff     []Staff    `json:"staff"`
}

// Defaults fill in values a seed customer leaves out.
type Defaults struct {
	// CorporateRate applies to corporate customers without a discount rate.
	CorporateRate decimal.Decimal
	// MaxOwing applies to customers without a credit limit.
	MaxOwing decimal.Decimal
}

// Target receives seeded records.
type Target interface {
	UpsertCustomer(ctx context.Context, c customer.Customer) error
	UpsertAPIKey(ctx context.Context, k auth.APIKey) error
}

// Parse decodes a seed file.
func Parse(data []byte) (*Accounts, error) {
	var a Accounts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "parse accounts")
	}
	for _, c := range a.Customers {
		if c.ID == "" || c.Username == "" {
			return nil, errors.Errorf("customer %q: id and username are required", c.ID)
		}
		if c.Kind != customer.KindPrivate && c.Kind != customer.KindCorporate {
			return nil, errors.Errorf("customer %q: unknown kind %q", c.ID, c.Kind)
		}
	}
	return &a, nil
}

// Domain converts the seed entry into a domain customer.
func (c Customer) Domain(def Defaults) customer.Customer {
	out := customer.Customer{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Address:   c.Address,
		Kind:      c.Kind,
		Balance:   c.Balance,
		MaxOwing:  def.MaxOwing,
	}
	if c.DistanceKM != nil {
		out.DistanceKM = *c.DistanceKM
	} else {
		out.DistanceKM = customer.DistanceFromAddress(c.Address)
	}
	if c.MaxOwing != nil {
		out.MaxOwing = *c.MaxOwing
	}
	if c.Kind == customer.KindCorporate {
		out.DiscountRate = def.CorporateRate
		if c.DiscountRate != nil {
			out.DiscountRate = *c.DiscountRate
		}
	}
	return out
}

// Apply writes every account and API key to target concurrently.
func Apply(ctx context.Context, target Target, a *Accounts, pepper []byte, def Defaults) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, c := range a.Customers {
		g.Go(func() error {
			if err := target.UpsertCustomer(ctx, c.Domain(def)); err != nil {
				return errors.Wrapf(err, "customer %s", c.ID)
			}
			if c.APIKey == "" {
				return nil
			}
			return target.UpsertAPIKey(ctx, auth.APIKey{
				ID:        "key-" + c.ID,
				KeyHash:   auth.HashKey(pepper, c.APIKey),
				Name:      fmt.Sprintf("%s %s", c.FirstName, c.LastName),
				Role:      auth.RoleCustomer,
				SubjectID: c.ID,
			})
		})
	}
	for _, s := range a.Staff {
		g.Go(func() error {
			if s.APIKey == "" {
				return nil
			}
			return target.UpsertAPIKey(ctx, auth.APIKey{
				ID:        "key-" + s.ID,
				KeyHash:   auth.HashKey(pepper, s.APIKey),
				Name:      s.Name,
				Role:      auth.RoleStaff,
				SubjectID: s.ID,
			})
		})
	}
	return g.Wait()
}
