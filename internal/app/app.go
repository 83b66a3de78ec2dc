package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/meal"
	"meal-planner/internal/mealsapi"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/shopping"
	"meal-planner/internal/storage"

	"go.uber.org/zap"
)

// ErrNoPlan is returned when an operation needs a weekly plan and none was generated.
var ErrNoPlan = errors.New("no weekly plan yet")

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*mealsapi.Session, error)
	Register(ctx context.Context, email, password string) (*mealsapi.Session, error)
	SetToken(token string)
}

// App holds the application's dependencies. Every use-case ends in a result
// or an error that Describe can turn into one sentence for the user.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	client       mealsapi.Client
	auth         Authenticator
	store        *storage.StateStore
	shoppingRepo *shopping.Repository
	selections   *shopping.SelectionRepository
	metricsStore *metrics.Store

	mealPlanner   *planner.Planner
	listBuilder   *shopping.Builder
	recipeClipper *clipper.Clipper

	started time.Time
	closers []func() error
}

// NewApp creates and initializes a new App instance. shoppingRepo and
// metricsStore may be nil, in which case history and usage are unavailable.
func NewApp(
	cfg *config.Config,
	client mealsapi.Client,
	auth Authenticator,
	store *storage.StateStore,
	shoppingRepo *shopping.Repository,
	selections *shopping.SelectionRepository,
	metricsStore *metrics.Store,
	logger *zap.Logger,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:           cfg,
		logger:        logger,
		client:        client,
		auth:          auth,
		store:         store,
		shoppingRepo:  shoppingRepo,
		selections:    selections,
		metricsStore:  metricsStore,
		mealPlanner:   planner.NewPlanner(client, store, logger),
		listBuilder:   shopping.NewBuilder(client, logger),
		recipeClipper: clipper.NewClipper(client, logger),
		started:       time.Now(),
	}
}

// Close releases the resources New opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Meals lists the meals matching filter.
func (a *App) Meals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error) {
	return a.client.ListMeals(ctx, filter)
}

// Meal fetches one meal.
func (a *App) Meal(ctx context.Context, id meal.ID) (*meal.Meal, error) {
	return a.client.GetMeal(ctx, id)
}

// AddMeal validates and creates a meal.
func (a *App) AddMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error) {
	m = meal.Normalize(m)
	if err := meal.Validate(m); err != nil {
		return nil, err
	}
	created, err := a.client.CreateMeal(ctx, m)
	if err != nil {
		return nil, err
	}
	a.logger.Info("meal created", zap.Stringer("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// EditMeal validates and replaces the meal stored under id.
func (a *App) EditMeal(ctx context.Context, id meal.ID, m meal.Meal) (*meal.Meal, error) {
	if id == "" {
		return nil, mealsapi.ErrMissingID
	}
	m = meal.Normalize(m)
	if err := meal.Validate(m); err != nil {
		return nil, err
	}
	updated, err := a.client.UpdateMeal(ctx, id, m)
	if err != nil {
		return nil, err
	}
	a.logger.Info("meal updated", zap.Stringer("id", id))
	return updated, nil
}

// DeleteMeal deletes a meal and drops it from the favorites.
func (a *App) DeleteMeal(ctx context.Context, id meal.ID) error {
	if err := a.client.DeleteMeal(ctx, id); err != nil {
		return err
	}
	if err := a.store.RemoveFavorite(id); err != nil {
		a.logger.Warn("failed to drop deleted meal from favorites", zap.Stringer("id", id), zap.Error(err))
	}
	a.logger.Info("meal deleted", zap.Stringer("id", id))
	return nil
}

// ToggleFavorite flips the favorite mark of a meal and reports the new state.
func (a *App) ToggleFavorite(id meal.ID) (bool, error) {
	if id == "" {
		return false, mealsapi.ErrMissingID
	}
	on, err := a.store.ToggleFavorite(id)
	if err != nil {
		return false, fmt.Errorf("failed to save favorites: %w", err)
	}
	return on, nil
}

// Favorites returns the favorite meals in the order they were marked.
// Favorites that no longer exist on the backend are skipped.
func (a *App) Favorites(ctx context.Context) ([]meal.Meal, error) {
	ids := a.store.Favorites()
	if len(ids) == 0 {
		return []meal.Meal{}, nil
	}

	all, err := a.client.ListMeals(ctx, meal.Filter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[meal.ID]meal.Meal, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	favorites := make([]meal.Meal, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			a.logger.Debug("favorite meal no longer listed", zap.Stringer("id", id))
			continue
		}
		favorites = append(favorites, m)
	}
	return favorites, nil
}

// RandomMenu returns a random daily menu.
func (a *App) RandomMenu(ctx context.Context) (*meal.Menu, error) {
	return a.mealPlanner.Random(ctx)
}

// GeneratePlan fetches a new weekly plan and makes it current.
func (a *App) GeneratePlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error) {
	return a.mealPlanner.Generate(ctx, filter)
}

// CurrentPlan returns the last generated weekly plan.
func (a *App) CurrentPlan() (meal.WeeklyPlan, error) {
	plan, ok := a.mealPlanner.Current()
	if !ok {
		return nil, ErrNoPlan
	}
	return plan, nil
}

// ClearPlan forgets the current weekly plan.
func (a *App) ClearPlan() error {
	return a.mealPlanner.Clear()
}

// ShoppingList builds a shopping list for the selected meals and keeps it in
// the history. With remote set, the backend aggregates instead.
func (a *App) ShoppingList(ctx context.Context, ids []meal.ID, remote bool) (*shopping.ShoppingList, error) {
	build := a.listBuilder.Build
	if remote {
		build = a.listBuilder.BuildRemote
	}
	list, err := build(ctx, ids)
	if err != nil {
		return nil, err
	}

	if a.shoppingRepo != nil {
		if err := a.shoppingRepo.Save(ctx, list); err != nil {
			a.logger.Warn("failed to save shopping list", zap.String("id", list.ID), zap.Error(err))
		}
	}
	return list, nil
}

// PlanShoppingList builds a shopping list for every meal of the current plan.
func (a *App) PlanShoppingList(ctx context.Context, remote bool) (*shopping.ShoppingList, error) {
	plan, err := a.CurrentPlan()
	if err != nil {
		return nil, err
	}
	return a.ShoppingList(ctx, planner.Meals(plan), remote)
}

// Select adds meals to the chat's selection and returns the whole selection.
func (a *App) Select(ctx context.Context, chatID int64, ids ...meal.ID) ([]meal.ID, error) {
	if err := a.selections.Add(ctx, chatID, ids...); err != nil {
		return nil, err
	}
	return a.selections.List(ctx, chatID)
}

// Unselect drops a meal from the chat's selection and returns what is left.
func (a *App) Unselect(ctx context.Context, chatID int64, id meal.ID) ([]meal.ID, error) {
	if err := a.selections.Remove(ctx, chatID, id); err != nil {
		return nil, err
	}
	return a.selections.List(ctx, chatID)
}

// Selection returns the chat's selected meal ids.
func (a *App) Selection(ctx context.Context, chatID int64) ([]meal.ID, error) {
	return a.selections.List(ctx, chatID)
}

// ClearSelection empties the chat's selection.
func (a *App) ClearSelection(ctx context.Context, chatID int64) error {
	return a.selections.Clear(ctx, chatID)
}

// SelectionShoppingList builds a shopping list from the chat's selection.
func (a *App) SelectionShoppingList(ctx context.Context, chatID int64, remote bool) (*shopping.ShoppingList, error) {
	ids, err := a.selections.List(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return a.ShoppingList(ctx, ids, remote)
}

// ShoppingHistory returns the most recent shopping lists.
func (a *App) ShoppingHistory(ctx context.Context, limit int) ([]shopping.Summary, error) {
	if a.shoppingRepo == nil {
		return []shopping.Summary{}, nil
	}
	return a.shoppingRepo.ListRecent(ctx, limit)
}

// SavedShoppingList returns a stored shopping list, or nil when it does not exist.
func (a *App) SavedShoppingList(ctx context.Context, id string) (*shopping.ShoppingList, error) {
	if a.shoppingRepo == nil {
		return nil, nil
	}
	return a.shoppingRepo.Get(ctx, id)
}

// Clip imports the recipe at url as a new meal.
func (a *App) Clip(ctx context.Context, url string) (*meal.Meal, error) {
	return a.recipeClipper.ClipURL(ctx, url)
}

// Login signs in and remembers the access token.
func (a *App) Login(ctx context.Context, email, password string) (*mealsapi.Session, error) {
	return a.startSession(a.auth.Login(ctx, email, password))
}

// Register creates an account, signs in and remembers the access token.
func (a *App) Register(ctx context.Context, email, password string) (*mealsapi.Session, error) {
	return a.startSession(a.auth.Register(ctx, email, password))
}

func (a *App) startSession(session *mealsapi.Session, err error) (*mealsapi.Session, error) {
	if err != nil {
		return nil, err
	}
	if err := a.store.SetToken(session.Token); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	a.logger.Info("signed in", zap.String("subject", session.Subject))
	return session, nil
}

// Logout forgets the access token.
func (a *App) Logout() error {
	a.auth.SetToken("")
	return a.store.SetToken("")
}

// Usage summarizes backend calls over the last days and the process health.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, metrics.SysHealth, error) {
	health := metrics.GetSysHealth(a.cfg.DataDir, a.started)
	if a.metricsStore == nil {
		return []metrics.DailyUsage{}, health, nil
	}
	usage, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return nil, health, err
	}
	return usage, health, nil
}

// CleanupMetrics removes call metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if a.metricsStore == nil {
		return 0, nil
	}
	return a.metricsStore.Cleanup(ctx, days)
}

// Describe turns any error returned by App into one sentence for the user.
func Describe(err error) string {
	var validation *meal.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		msg := "Please fix the meal form:"
		for _, p := range validation.Problems {
			msg += " " + p.Error() + "."
		}
		return msg
	case errors.Is(err, shopping.ErrEmptySelection):
		return "Select at least one meal to build a shopping list."
	case errors.Is(err, ErrNoPlan):
		return "There is no weekly plan yet. Generate one first."
	case errors.Is(err, mealsapi.ErrCredentialsRequired):
		return "Email and password are required."
	case errors.Is(err, clipper.ErrNoRecipe):
		return "No recipe was found on that page."
	}
	return mealsapi.UserMessage(err)
}
