package shopping

import (
	"time"

	"meal-planner/internal/meal"
)

// ShoppingList is an aggregated list built from a selection of meals.
type ShoppingList struct {
	ID        string    `json:"id"`
	MealIDs   []meal.ID `json:"meal_ids"`
	Items     []Entry   `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is a short form of a stored list, used for history views.
type Summary struct {
	ID        string
	MealCount int
	ItemCount int
	CreatedAt time.Time
}
