// Package catalog holds the canonical, immutable set of purchasable plans.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planpay/internal/domain"
)

var ErrEmpty = errors.New("catalog: no plans")

// Catalog is safe for concurrent use; it is never mutated after New.
type Catalog struct {
	plans []domain.Plan
	byID  map[string]int
}

func Default() []domain.Plan {
	return []domain.Plan{
		{ID: "plan_basic", Name: "Basic", Price: 999, Features: []string{"Up to 5 Projects", "Community Support", "10GB Storage"}},
		{ID: "plan_pro", Name: "Pro", Price: 2499, Features: []string{"Unlimited Projects", "Premium Support", "100GB Storage", "Custom Domains"}},
	}
}

func New(plans []domain.Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{
		plans: make([]domain.Plan, 0, len(plans)),
		byID:  make(map[string]int, len(plans)),
	}
	for _, p := range plans {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("catalog: plan %q has empty id", p.Name)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog: plan %s has non-positive price %d", p.ID, p.Price)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate plan id %s", p.ID)
		}
		c.byID[p.ID] = len(c.plans)
		c.plans = append(c.plans, p.Clone())
	}
	return c, nil
}

func MustDefault() *Catalog {
	c, err := New(Default())
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the plans in catalog order.
func (c *Catalog) All() []domain.Plan {
	out := make([]domain.Plan, len(c.plans))
	for i, p := range c.plans {
		out[i] = p.Clone()
	}
	return out
}

func (c *Catalog) Lookup(id string) (domain.Plan, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Plan{}, false
	}
	return c.plans[i].Clone(), true
}

func (c *Catalog) PriceOf(id string) (int64, bool) {
	i, ok := c.byID[id]
	if !ok {
		return 0, false
	}
	return c.plans[i].Price, true
}

// Contains reports whether some plan costs exactly price major units.
func (c *Catalog) Contains(price int64) bool {
	for _, p := range c.plans {
		if p.Price == price {
			return true
		}
	}
	return false
}

// Store is a persistent plan source.
type Store interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	UpsertPlans(ctx context.Context, plans []domain.Plan) error
}

// Load builds the catalog from store, seeding it with defaults when empty.
func Load(ctx context.Context, store Store, defaults []domain.Plan) (*Catalog, error) {
	plans, err := store.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list plans: %w", err)
	}
	if len(plans) == 0 {
		if err := store.UpsertPlans(ctx, defaults); err != nil {
			return nil, fmt.Errorf("catalog: seed plans: %w", err)
		}
		plans = defaults
	}
	return New(plans)
}
