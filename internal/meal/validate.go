package meal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNameRequired        = errors.New("meal name is required")
	ErrIngredientsRequired = errors.New("meal ingredients are required")
	ErrInvalidCategory     = errors.New("meal category must be breakfast, lunch, dinner or snack")
	ErrInvalidNumber       = errors.New("meal numbers must not be negative")
)

// ValidationError collects every problem found in a meal form.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid meal: " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match the individual problems.
func (e *ValidationError) Unwrap() []error { return e.Problems }

// Validate checks a meal before it is sent to the backend. It never touches
// the network.
func Validate(m Meal) error {
	var problems []error
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, ErrNameRequired)
	}
	if strings.TrimSpace(m.Ingredients) == "" {
		problems = append(problems, ErrIngredientsRequired)
	}
	if !m.Category.Valid() {
		problems = append(problems, fmt.Errorf("%w (got %q)", ErrInvalidCategory, m.Category))
	}
	for _, n := range []*int{m.PrepTime, m.Calories, m.Servings} {
		if n != nil && *n < 0 {
			problems = append(problems, ErrInvalidNumber)
			break
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Normalize trims the text fields and lowercases the category, the way the
// forms submit them.
func Normalize(m Meal) Meal {
	m.Name = strings.TrimSpace(m.Name)
	m.Ingredients = strings.TrimSpace(m.Ingredients)
	m.Category = Category(strings.ToLower(strings.TrimSpace(string(m.Category))))
	m.DietType = strings.TrimSpace(m.DietType)
	m.ImageURL = strings.TrimSpace(m.ImageURL)
	return m
}
