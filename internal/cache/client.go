package cache

import (
	"context"
	"net/url"

	"meal-planner/internal/meal"
	"meal-planner/internal/mealsapi"

	"go.uber.org/zap"
)

// MealsCollection is the collection every meal read is cached under.
const MealsCollection = "meals"

// CachedClient wraps a mealsapi.Client with the query cache. Meal reads are
// cached; any successful meal mutation invalidates them. Random menus, weekly
// plans and shopping lists always go to the backend.
type CachedClient struct {
	next   mealsapi.Client
	cache  *Cache
	logger *zap.Logger
}

var _ mealsapi.Client = (*CachedClient)(nil)

// NewCachedClient creates a CachedClient in front of next.
func NewCachedClient(next mealsapi.Client, c *Cache, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{next: next, cache: c, logger: logger.Named("cache")}
}

// ListMeals serves the listing from cache when fresh.
func (c *CachedClient) ListMeals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error) {
	key := NewKey(MealsCollection, "list", filter.Values())
	v, err := c.cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		c.logger.Debug("cache miss", zap.Stringer("key", key))
		return c.next.ListMeals(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	cached := v.([]meal.Meal)
	meals := make([]meal.Meal, len(cached))
	for i, m := range cached {
		meals[i] = m.Clone()
	}
	return meals, nil
}

// GetMeal serves a single meal from cache when fresh.
func (c *CachedClient) GetMeal(ctx context.Context, id meal.ID) (*meal.Meal, error) {
	if id == "" {
		return nil, mealsapi.ErrMissingID
	}
	key := NewKey(MealsCollection, "get", url.Values{"id": {string(id)}})
	v, err := c.cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		c.logger.Debug("cache miss", zap.Stringer("key", key))
		return c.next.GetMeal(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	m := v.(*meal.Meal).Clone()
	return &m, nil
}

// CreateMeal creates the meal and invalidates cached meal reads.
func (c *CachedClient) CreateMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error) {
	created, err := c.next.CreateMeal(ctx, m)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(MealsCollection)
	return created, nil
}

// UpdateMeal updates the meal and invalidates cached meal reads.
func (c *CachedClient) UpdateMeal(ctx context.Context, id meal.ID, m meal.Meal) (*meal.Meal, error) {
	updated, err := c.next.UpdateMeal(ctx, id, m)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(MealsCollection)
	return updated, nil
}

// DeleteMeal deletes the meal and invalidates cached meal reads.
func (c *CachedClient) DeleteMeal(ctx context.Context, id meal.ID) error {
	if err := c.next.DeleteMeal(ctx, id); err != nil {
		return err
	}
	c.cache.Invalidate(MealsCollection)
	return nil
}

// RandomMenu is never cached.
func (c *CachedClient) RandomMenu(ctx context.Context) (*meal.Menu, error) {
	return c.next.RandomMenu(ctx)
}

// WeeklyPlan is never cached.
func (c *CachedClient) WeeklyPlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error) {
	return c.next.WeeklyPlan(ctx, filter)
}

// ShoppingList is never cached.
func (c *CachedClient) ShoppingList(ctx context.Context, ids []meal.ID) ([]mealsapi.ShoppingItem, error) {
	return c.next.ShoppingList(ctx, ids)
}
