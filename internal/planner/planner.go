package planner

import (
	"context"
	"fmt"

	"meal-planner/internal/meal"

	"go.uber.org/zap"
)

// MenuSource is the part of the meals backend that produces menus.
type MenuSource interface {
	RandomMenu(ctx context.Context) (*meal.Menu, error)
	WeeklyPlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error)
}

// PlanStore keeps the last generated weekly plan.
type PlanStore interface {
	WeeklyPlan() meal.WeeklyPlan
	SaveWeeklyPlan(plan meal.WeeklyPlan) error
	ClearWeeklyPlan() error
}

// Planner handles the generation of meal plans.
type Planner struct {
	source MenuSource
	store  PlanStore
	logger *zap.Logger
}

// NewPlanner creates a new Planner instance.
func NewPlanner(source MenuSource, store PlanStore, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{source: source, store: store, logger: logger.Named("planner")}
}

// Generate asks the backend for a weekly plan and keeps it as the current one.
func (p *Planner) Generate(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error) {
	plan, err := p.source.WeeklyPlan(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveWeeklyPlan(plan); err != nil {
		return nil, fmt.Errorf("failed to save weekly plan: %w", err)
	}

	p.logger.Info("weekly plan generated",
		zap.String("diet_type", filter.DietType),
		zap.Int("max_calories", filter.MaxCalories),
		zap.Int("days", len(plan)),
	)
	return plan, nil
}

// Current returns the last generated plan. ok is false when there is none.
func (p *Planner) Current() (plan meal.WeeklyPlan, ok bool) {
	plan = p.store.WeeklyPlan()
	return plan, plan != nil
}

// Clear forgets the current plan.
func (p *Planner) Clear() error {
	if err := p.store.ClearWeeklyPlan(); err != nil {
		return fmt.Errorf("failed to clear weekly plan: %w", err)
	}
	return nil
}

// Random returns a random daily menu. It is never stored.
func (p *Planner) Random(ctx context.Context) (*meal.Menu, error) {
	return p.source.RandomMenu(ctx)
}
