package planner

import (
	"slices"
	"sort"

	"meal-planner/internal/meal"
)

// DayPlan is one day of a weekly plan.
type DayPlan struct {
	Day  string    `json:"day"`
	Menu meal.Menu `json:"menu"`
}

// Ordered returns the plan's days in calendar order. Keys that are not day
// names follow in alphabetical order.
func Ordered(plan meal.WeeklyPlan) []DayPlan {
	days := make([]DayPlan, 0, len(plan))
	for _, day := range meal.Days {
		if menu, ok := plan[day]; ok {
			days = append(days, DayPlan{Day: day, Menu: menu})
		}
	}

	var extra []string
	for day := range plan {
		if !slices.Contains(meal.Days, day) {
			extra = append(extra, day)
		}
	}
	sort.Strings(extra)
	for _, day := range extra {
		days = append(days, DayPlan{Day: day, Menu: plan[day]})
	}
	return days
}

// Meals returns the distinct ids of every meal in the plan, in plan order.
// The result is a ready selection for a shopping list.
func Meals(plan meal.WeeklyPlan) []meal.ID {
	seen := make(map[meal.ID]bool)
	ids := []meal.ID{}
	for _, day := range Ordered(plan) {
		for _, m := range day.Menu.Meals() {
			if m.ID == "" || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	return ids
}
