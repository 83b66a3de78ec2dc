package shopping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"meal-planner/internal/database"
	"meal-planner/internal/meal"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "shopping.db"), nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func TestRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	older := &ShoppingList{
		ID:        "older",
		MealIDs:   []meal.ID{"1"},
		Items:     []Entry{{Ingredient: "eggs", Count: 1}},
		CreatedAt: base,
	}
	newer := &ShoppingList{
		ID:        "newer",
		MealIDs:   []meal.ID{"1", "abc"},
		Items:     []Entry{{Ingredient: "eggs", Count: 2}, {Ingredient: "milk", Count: 1}},
		CreatedAt: base.Add(time.Hour),
	}

	t.Run("Save", func(t *testing.T) {
		for _, l := range []*ShoppingList{older, newer} {
			if err := repo.Save(ctx, l); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, "newer")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected a shopping list, got nil")
		}
		if len(got.MealIDs) != 2 || got.MealIDs[1] != "abc" {
			t.Errorf("unexpected meal ids: %v", got.MealIDs)
		}
		if len(got.Items) != 2 || got.Items[0].Count != 2 {
			t.Errorf("unexpected items: %v", got.Items)
		}
		if !got.CreatedAt.Equal(newer.CreatedAt) {
			t.Errorf("expected created at %v, got %v", newer.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("Get-NotFound", func(t *testing.T) {
		got, err := repo.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("Latest", func(t *testing.T) {
		got, err := repo.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if got == nil || got.ID != "newer" {
			t.Errorf("expected newest list, got %+v", got)
		}
	})

	t.Run("ListRecent", func(t *testing.T) {
		summaries, err := repo.ListRecent(ctx, 5)
		if err != nil {
			t.Fatalf("ListRecent failed: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(summaries))
		}
		if summaries[0].ID != "newer" || summaries[0].MealCount != 2 || summaries[0].ItemCount != 2 {
			t.Errorf("unexpected first summary: %+v", summaries[0])
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "older"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := repo.Get(ctx, "older")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Error("expected list to be deleted")
		}
	})
}
