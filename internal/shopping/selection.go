package shopping

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-planner/internal/database"
	"meal-planner/internal/meal"
)

// SelectionRepository keeps the meals a user picked for the next shopping
// list, one selection per chat. The CLI uses chat 0.
type SelectionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSelectionRepository creates a new SelectionRepository instance.
func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db, now: time.Now}
}

// Add puts ids into the chat's selection. Ids already selected are ignored.
func (r *SelectionRepository) Add(ctx context.Context, chatID int64, ids ...meal.ID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := database.FormatTime(r.now())
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO selections (chat_id, meal_id, created_at) VALUES (?, ?, ?)`,
			chatID, string(id), ts,
		); err != nil {
			return fmt.Errorf("failed to add meal %s to selection: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit selection: %w", err)
	}
	return nil
}

// Remove drops id from the chat's selection.
func (r *SelectionRepository) Remove(ctx context.Context, chatID int64, id meal.ID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM selections WHERE chat_id = ? AND meal_id = ?`, chatID, string(id)); err != nil {
		return fmt.Errorf("failed to remove meal from selection: %w", err)
	}
	return nil
}

// List returns the chat's selection in the order meals were added.
func (r *SelectionRepository) List(ctx context.Context, chatID int64) ([]meal.ID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT meal_id FROM selections WHERE chat_id = ? ORDER BY rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list selection: %w", err)
	}
	defer rows.Close()

	ids := []meal.ID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		ids = append(ids, meal.ID(id))
	}
	return ids, rows.Err()
}

// Clear empties the chat's selection.
func (r *SelectionRepository) Clear(ctx context.Context, chatID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM selections WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}
