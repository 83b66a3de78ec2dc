package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/meal"
	"meal-planner/internal/mealsapi"
	"meal-planner/internal/shopping"
	"meal-planner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	meals   map[meal.ID]meal.Meal
	order   []meal.ID
	plan    meal.WeeklyPlan
	calls   int
	deleted []meal.ID
}

func newFakeBackend(meals ...meal.Meal) *fakeBackend {
	b := &fakeBackend{meals: map[meal.ID]meal.Meal{}}
	for _, m := range meals {
		b.meals[m.ID] = m
		b.order = append(b.order, m.ID)
	}
	return b
}

func (b *fakeBackend) ListMeals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error) {
	b.calls++
	out := []meal.Meal{}
	for _, id := range b.order {
		if m, ok := b.meals[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetMeal(ctx context.Context, id meal.ID) (*meal.Meal, error) {
	b.calls++
	m, ok := b.meals[id]
	if !ok {
		return nil, &mealsapi.Error{Op: "get meal", Kind: mealsapi.KindServer, StatusCode: 404, Detail: "Meal not found"}
	}
	return &m, nil
}

func (b *fakeBackend) CreateMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error) {
	b.calls++
	m.ID = "100"
	b.meals[m.ID] = m
	b.order = append(b.order, m.ID)
	return &m, nil
}

func (b *fakeBackend) UpdateMeal(ctx context.Context, id meal.ID, m meal.Meal) (*meal.Meal, error) {
	b.calls++
	m.ID = id
	b.meals[id] = m
	return &m, nil
}

func (b *fakeBackend) DeleteMeal(ctx context.Context, id meal.ID) error {
	b.calls++
	delete(b.meals, id)
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *fakeBackend) RandomMenu(ctx context.Context) (*meal.Menu, error) {
	b.calls++
	m := b.meals["1"]
	return &meal.Menu{Breakfast: &m}, nil
}

func (b *fakeBackend) WeeklyPlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error) {
	b.calls++
	return b.plan, nil
}

func (b *fakeBackend) ShoppingList(ctx context.Context, ids []meal.ID) ([]mealsapi.ShoppingItem, error) {
	b.calls++
	return []mealsapi.ShoppingItem{{Ingredient: "eggs", Count: float64(len(ids))}}, nil
}

type fakeAuth struct {
	token string
	err   error
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*mealsapi.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.token = "tok-" + email
	return &mealsapi.Session{Token: f.token, Subject: email}, nil
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) (*mealsapi.Session, error) {
	return f.Login(ctx, email, password)
}

func (f *fakeAuth) SetToken(token string) { f.token = token }

func newTestApp(t *testing.T, backend *fakeBackend) (*App, *storage.StateStore, *fakeAuth) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(dir, nil)
	require.NoError(t, err)
	db, err := database.NewDB(filepath.Join(dir, "app.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auth := &fakeAuth{}
	cfg := &config.Config{DataDir: dir}
	return NewApp(cfg, backend, auth, store, shopping.NewRepository(db.SQL), shopping.NewSelectionRepository(db.SQL), nil, nil), store, auth
}

func sampleMeals() []meal.Meal {
	return []meal.Meal{
		{ID: "1", Name: "Omelette", Category: meal.Breakfast, Ingredients: "Eggs, milk"},
		{ID: "2", Name: "Pancakes", Category: meal.Breakfast, Ingredients: "eggs; flour"},
		{ID: "3", Name: "Salad", Category: meal.Lunch, Ingredients: "lettuce"},
	}
}

func TestAddMealValidation(t *testing.T) {
	backend := newFakeBackend()
	a, _, _ := newTestApp(t, backend)

	_, err := a.AddMeal(context.Background(), meal.Meal{Name: " ", Category: "brunch"})
	require.Error(t, err)
	assert.ErrorIs(t, err, meal.ErrNameRequired)
	assert.ErrorIs(t, err, meal.ErrIngredientsRequired)
	assert.Zero(t, backend.calls, "invalid meals never reach the backend")
	assert.True(t, strings.HasPrefix(Describe(err), "Please fix the meal form:"))

	created, err := a.AddMeal(context.Background(), meal.Meal{Name: " Soup ", Category: "Dinner", Ingredients: "water"})
	require.NoError(t, err)
	assert.Equal(t, meal.ID("100"), created.ID)
	assert.Equal(t, "Soup", created.Name)
	assert.Equal(t, meal.Dinner, created.Category)

	_, err = a.EditMeal(context.Background(), "", meal.Meal{})
	assert.ErrorIs(t, err, mealsapi.ErrMissingID)
}

func TestFavorites(t *testing.T) {
	backend := newFakeBackend(sampleMeals()...)
	a, store, _ := newTestApp(t, backend)
	ctx := context.Background()

	for _, id := range []meal.ID{"3", "1", "42"} {
		on, err := a.ToggleFavorite(id)
		require.NoError(t, err)
		assert.True(t, on)
	}

	favs, err := a.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 2, "favorites missing from the backend are skipped")
	assert.Equal(t, "Salad", favs[0].Name)
	assert.Equal(t, "Omelette", favs[1].Name)

	require.NoError(t, a.DeleteMeal(ctx, "3"))
	assert.False(t, store.IsFavorite("3"))
	assert.Equal(t, []meal.ID{"1", "42"}, store.Favorites())
}

func TestShoppingList(t *testing.T) {
	backend := newFakeBackend(sampleMeals()...)
	a, _, _ := newTestApp(t, backend)
	ctx := context.Background()

	t.Run("EmptySelection", func(t *testing.T) {
		_, err := a.ShoppingList(ctx, nil, false)
		assert.ErrorIs(t, err, shopping.ErrEmptySelection)
		assert.Equal(t, "Select at least one meal to build a shopping list.", Describe(err))
	})

	t.Run("Local", func(t *testing.T) {
		list, err := a.ShoppingList(ctx, []meal.ID{"1", "2"}, false)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Entry{
			{Ingredient: "eggs", Count: 2},
			{Ingredient: "flour", Count: 1},
			{Ingredient: "milk", Count: 1},
		}, list.Items)

		saved, err := a.SavedShoppingList(ctx, list.ID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, list.Items, saved.Items)
	})

	t.Run("Remote", func(t *testing.T) {
		list, err := a.ShoppingList(ctx, []meal.ID{"1", "2", "3"}, true)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Entry{{Ingredient: "eggs", Count: 3}}, list.Items)
	})

	t.Run("History", func(t *testing.T) {
		history, err := a.ShoppingHistory(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func TestSelectionShoppingList(t *testing.T) {
	backend := newFakeBackend(sampleMeals()...)
	a, _, _ := newTestApp(t, backend)
	ctx := context.Background()

	_, err := a.SelectionShoppingList(ctx, 7, false)
	assert.ErrorIs(t, err, shopping.ErrEmptySelection)

	ids, err := a.Select(ctx, 7, "2", "3", "2")
	require.NoError(t, err)
	assert.Equal(t, []meal.ID{"2", "3"}, ids)

	ids, err = a.Unselect(ctx, 7, "3")
	require.NoError(t, err)
	assert.Equal(t, []meal.ID{"2"}, ids)

	list, err := a.SelectionShoppingList(ctx, 7, false)
	require.NoError(t, err)
	assert.Equal(t, []shopping.Entry{{Ingredient: "eggs", Count: 1}, {Ingredient: "flour", Count: 1}}, list.Items)

	require.NoError(t, a.ClearSelection(ctx, 7))
	ids, err = a.Selection(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPlanShoppingList(t *testing.T) {
	backend := newFakeBackend(sampleMeals()...)
	a, _, _ := newTestApp(t, backend)
	ctx := context.Background()

	_, err := a.PlanShoppingList(ctx, false)
	assert.ErrorIs(t, err, ErrNoPlan)

	omelette, salad := backend.meals["1"], backend.meals["3"]
	backend.plan = meal.WeeklyPlan{
		"monday":  {Breakfast: &omelette, Lunch: &salad},
		"tuesday": {Breakfast: &omelette},
	}
	_, err = a.GeneratePlan(ctx, meal.PlanFilter{DietType: meal.AllDiets})
	require.NoError(t, err)

	list, err := a.PlanShoppingList(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []meal.ID{"1", "3"}, list.MealIDs)
	assert.Equal(t, []shopping.Entry{
		{Ingredient: "eggs", Count: 1},
		{Ingredient: "lettuce", Count: 1},
		{Ingredient: "milk", Count: 1},
	}, list.Items)

	require.NoError(t, a.ClearPlan())
	_, err = a.CurrentPlan()
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestSession(t *testing.T) {
	backend := newFakeBackend()
	a, store, auth := newTestApp(t, backend)
	ctx := context.Background()

	session, err := a.Login(ctx, "cook@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "cook@example.com", session.Subject)
	assert.Equal(t, "tok-cook@example.com", store.Token())

	require.NoError(t, a.Logout())
	assert.Empty(t, store.Token())
	assert.Empty(t, auth.token)

	auth.err = mealsapi.ErrCredentialsRequired
	_, err = a.Register(ctx, "", "")
	assert.Equal(t, "Email and password are required.", Describe(err))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Nil", nil, ""},
		{"Timeout", &mealsapi.Error{Op: "list meals", Kind: mealsapi.KindTimeout}, "Request timeout. The server is taking too long to respond."},
		{"ServerDetail", &mealsapi.Error{Op: "get meal", Kind: mealsapi.KindServer, StatusCode: 404, Detail: "Meal not found"}, "Meal not found"},
		{"Wrapped", errors.Join(errors.New("context"), ErrNoPlan), "There is no weekly plan yet. Generate one first."},
		{"Cancelled", context.Canceled, "The request was cancelled."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestPrintShoppingList(t *testing.T) {
	var buf bytes.Buffer
	PrintShoppingList(&buf, &shopping.ShoppingList{
		ID:      "abc",
		MealIDs: []meal.ID{"1", "2"},
		Items:   []shopping.Entry{{Ingredient: "eggs", Count: 2}},
	})

	out := buf.String()
	assert.Contains(t, out, "=== SHOPPING LIST (2 meals) ===")
	assert.Contains(t, out, "- eggs (x2)")
	assert.Contains(t, out, "List id: abc")
}

func TestPrintPlan(t *testing.T) {
	var buf bytes.Buffer
	PrintPlan(&buf, meal.WeeklyPlan{
		"wednesday": {Dinner: &meal.Meal{ID: "3", Name: "Curry"}},
		"monday":    {},
	})

	out := buf.String()
	assert.Less(t, strings.Index(out, "Monday"), strings.Index(out, "Wednesday"))
	assert.Contains(t, out, "Dinner:    Curry (#3)")
	assert.Contains(t, out, "Breakfast: -")
}
