package repo

import (
	"context"
	"sync"

	"planpay/internal/domain"
)

type MemoryPlanRepo struct {
	mu    sync.RWMutex
	order []string
	m     map[string]domain.Plan
}

func NewMemoryPlanRepo() *MemoryPlanRepo {
	return &MemoryPlanRepo{m: make(map[string]domain.Plan)}
}

func (r *MemoryPlanRepo) UpsertPlans(_ context.Context, plans []domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range plans {
		if _, ok := r.m[p.ID]; !ok {
			r.order = append(r.order, p.ID)
		}
		r.m[p.ID] = p.Clone()
	}
	return nil
}

func (r *MemoryPlanRepo) ListPlans(_ context.Context) ([]domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Plan, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.m[id].Clone())
	}
	return out, nil
}
