package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"meal-planner/internal/meal"
	"meal-planner/internal/mealsapi"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptySelection is returned when a list is requested for no meals.
var ErrEmptySelection = errors.New("select at least one meal to build a shopping list")

// maxConcurrentFetches bounds the individual lookups for meals missing from the listing.
const maxConcurrentFetches = 4

// MealSource is the part of the meals backend the builder needs.
type MealSource interface {
	ListMeals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error)
	GetMeal(ctx context.Context, id meal.ID) (*meal.Meal, error)
	ShoppingList(ctx context.Context, ids []meal.ID) ([]mealsapi.ShoppingItem, error)
}

// Builder turns a selection of meal ids into a ShoppingList.
type Builder struct {
	source MealSource
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder reading meals from source.
func NewBuilder(source MealSource, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{source: source, logger: logger.Named("shopping"), now: time.Now}
}

// Build aggregates the ingredients of the selected meals locally. Duplicate
// ids count once. Meals absent from the listing are fetched one by one.
func (b *Builder) Build(ctx context.Context, ids []meal.ID) (*ShoppingList, error) {
	selection := dedupe(ids)
	if len(selection) == 0 {
		return nil, ErrEmptySelection
	}

	meals, err := b.resolve(ctx, selection)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(meals))
	for _, m := range meals {
		texts = append(texts, m.Ingredients)
	}
	items := Aggregate(texts)

	b.logger.Debug("built shopping list", zap.Int("meals", len(selection)), zap.Int("items", len(items)))
	return b.newList(selection, items), nil
}

// BuildRemote asks the backend to aggregate the selection.
func (b *Builder) BuildRemote(ctx context.Context, ids []meal.ID) (*ShoppingList, error) {
	selection := dedupe(ids)
	if len(selection) == 0 {
		return nil, ErrEmptySelection
	}

	remote, err := b.source.ShoppingList(ctx, selection)
	if err != nil {
		return nil, err
	}

	items := make([]Entry, 0, len(remote))
	for _, item := range remote {
		items = append(items, Entry{Ingredient: item.Ingredient, Count: item.RoundedCount()})
	}
	return b.newList(selection, items), nil
}

func (b *Builder) newList(ids []meal.ID, items []Entry) *ShoppingList {
	return &ShoppingList{
		ID:        uuid.NewString(),
		MealIDs:   ids,
		Items:     items,
		CreatedAt: b.now().UTC(),
	}
}

// resolve returns the selected meals in selection order.
func (b *Builder) resolve(ctx context.Context, ids []meal.ID) ([]meal.Meal, error) {
	all, err := b.source.ListMeals(ctx, meal.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	byID := make(map[meal.ID]meal.Meal, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	var missing []meal.ID
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		b.logger.Debug("fetching meals missing from listing", zap.Int("count", len(missing)))

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentFetches)
		for _, id := range missing {
			g.Go(func() error {
				m, err := b.source.GetMeal(gctx, id)
				if err != nil {
					return fmt.Errorf("failed to get meal %s: %w", id, err)
				}
				mu.Lock()
				byID[id] = *m
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	meals := make([]meal.Meal, 0, len(ids))
	for _, id := range ids {
		meals = append(meals, byID[id])
	}
	return meals, nil
}

// dedupe drops blank and repeated ids, keeping first occurrence order.
func dedupe(ids []meal.ID) []meal.ID {
	seen := make(map[meal.ID]bool, len(ids))
	out := make([]meal.ID, 0, len(ids))
	for _, id := range ids {
		id = meal.ID(strings.TrimSpace(string(id)))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
