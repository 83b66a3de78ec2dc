package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"meal-planner/internal/database"
	"meal-planner/internal/meal"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save stores a shopping list, replacing any list with the same id.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) error {
	mealIDs, err := json.Marshal(list.MealIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list meal ids: %w", err)
	}
	items, err := json.Marshal(list.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO shopping_lists (id, meal_ids, items, created_at) VALUES (?, ?, ?, ?)`,
		list.ID, string(mealIDs), string(items), database.FormatTime(list.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return nil
}

// Get retrieves a shopping list by id. It returns nil when there is none.
func (r *Repository) Get(ctx context.Context, id string) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, meal_ids, items, created_at FROM shopping_lists WHERE id = ?`, id)

	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}
	return list, nil
}

// Latest returns the most recently created list, or nil when none is stored.
func (r *Repository) Latest(ctx context.Context) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, meal_ids, items, created_at FROM shopping_lists ORDER BY created_at DESC LIMIT 1`)

	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest shopping list: %w", err)
	}
	return list, nil
}

// ListRecent returns summaries of the newest lists, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, meal_ids, items, created_at FROM shopping_lists ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read shopping list: %w", err)
		}
		summaries = append(summaries, Summary{
			ID:        list.ID,
			MealCount: len(list.MealIDs),
			ItemCount: len(list.Items),
			CreatedAt: list.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shopping lists: %w", err)
	}
	return summaries, nil
}

// Delete removes a shopping list by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanList(s scanner) (*ShoppingList, error) {
	var (
		list           ShoppingList
		mealIDs, items string
		createdAt      string
	)
	if err := s.Scan(&list.ID, &mealIDs, &items, &createdAt); err != nil {
		return nil, err
	}

	list.MealIDs = []meal.ID{}
	if err := json.Unmarshal([]byte(mealIDs), &list.MealIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list meal ids: %w", err)
	}
	list.Items = []Entry{}
	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	ts, err := database.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shopping list timestamp: %w", err)
	}
	list.CreatedAt = ts
	return &list, nil
}
