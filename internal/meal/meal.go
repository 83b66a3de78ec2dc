package meal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the server-assigned identifier of a meal. The backend may emit it as
// a JSON number or a JSON string; the text is kept verbatim either way.
type ID string

// UnmarshalJSON accepts both number and string identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("meal id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits identifiers in canonical integer form as numbers and
// everything else, "007" or "+5" included, as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Category is the meal slot a recipe belongs to.
type Category string

const (
	Breakfast Category = "breakfast"
	Lunch     Category = "lunch"
	Dinner    Category = "dinner"
	Snack     Category = "snack"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{Breakfast, Lunch, Dinner, Snack}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Meal is a single recipe record owned by the remote service.
type Meal struct {
	ID          ID       `json:"id,omitempty"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Ingredients string   `json:"ingredients"`
	DietType    string   `json:"diet_type,omitempty"`
	PrepTime    *int     `json:"prep_time,omitempty"`
	Calories    *int     `json:"calories,omitempty"`
	Servings    *int     `json:"servings,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Clone returns a copy of m that shares no memory with it.
func (m Meal) Clone() Meal {
	m.PrepTime = cloneInt(m.PrepTime)
	m.Calories = cloneInt(m.Calories)
	m.Servings = cloneInt(m.Servings)
	return m
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	return Int(*p)
}

// Menu is a random daily selection. Any slot may be empty when the backend
// has no meal for that category.
type Menu struct {
	Breakfast *Meal `json:"breakfast,omitempty"`
	Lunch     *Meal `json:"lunch,omitempty"`
	Dinner    *Meal `json:"dinner,omitempty"`
}

// Meals returns the non-empty slots in breakfast, lunch, dinner order.
func (m Menu) Meals() []Meal {
	var out []Meal
	for _, slot := range []*Meal{m.Breakfast, m.Lunch, m.Dinner} {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}

// Days are the weekly plan keys in calendar order.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeeklyPlan maps a lowercase day name to that day's menu.
type WeeklyPlan map[string]Menu

// Int is a helper for the optional numeric fields.
func Int(v int) *int { return &v }
