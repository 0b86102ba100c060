package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/repository"
	"chantierpro-billing/internal/infra/metrics"
	red "chantierpro-billing/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches the (small, rarely changing) plan catalog in
// redis. Subscription state is deliberately never cached.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient) repository.PlanRepository {
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	key := fmt.Sprintf("plan:%s", id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) FindByPriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	key := fmt.Sprintf("plan:price:%s", priceID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByPriceID(ctx, priceID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) List(ctx context.Context) ([]*model.Plan, error) {
	const key = "plans:all"
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("plan_list", "hit")
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	bytes, _ := json.Marshal(plans)
	_ = d.cache.Set(ctx, key, bytes, d.ttl)
	return plans, nil
}

// Writes invalidate both the per-plan entries and the full catalog.
func (d *planRepoCacheDecorator) Save(ctx context.Context, p *model.Plan) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", p.ID), "plans:all")
	if p.PriceMonthlyID != "" {
		_ = d.cache.Del(ctx, fmt.Sprintf("plan:price:%s", p.PriceMonthlyID))
	}
	if p.PriceYearlyID != "" {
		_ = d.cache.Del(ctx, fmt.Sprintf("plan:price:%s", p.PriceYearlyID))
	}
	return d.inner.Save(ctx, p)
}
