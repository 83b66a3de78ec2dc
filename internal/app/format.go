package app

import (
	"fmt"
	"io"
	"strings"

	"meal-planner/internal/meal"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/shopping"
)

// PrintMeals writes one line per meal.
func PrintMeals(w io.Writer, meals []meal.Meal, favorites []meal.ID) {
	if len(meals) == 0 {
		fmt.Fprintln(w, "No meals found.")
		return
	}
	fav := make(map[meal.ID]bool, len(favorites))
	for _, id := range favorites {
		fav[id] = true
	}
	for _, m := range meals {
		star := " "
		if fav[m.ID] {
			star = "*"
		}
		fmt.Fprintf(w, "%s %-6s %-30s %-9s %s\n", star, m.ID, m.Name, m.Category, details(m))
	}
}

// PrintMeal writes every field of a meal.
func PrintMeal(w io.Writer, m meal.Meal) {
	fmt.Fprintf(w, "%s (#%s)\n", m.Name, m.ID)
	fmt.Fprintf(w, "Category: %s\n", m.Category)
	if d := details(m); d != "" {
		fmt.Fprintf(w, "Details:  %s\n", d)
	}
	if m.ImageURL != "" {
		fmt.Fprintf(w, "Image:    %s\n", m.ImageURL)
	}
	fmt.Fprintln(w, "Ingredients:")
	for _, ing := range shopping.SplitIngredients(m.Ingredients) {
		fmt.Fprintf(w, "- %s\n", ing)
	}
}

// PrintMenu writes a daily menu, one slot per line.
func PrintMenu(w io.Writer, menu meal.Menu) {
	slots := []struct {
		label string
		m     *meal.Meal
	}{
		{"Breakfast", menu.Breakfast},
		{"Lunch", menu.Lunch},
		{"Dinner", menu.Dinner},
	}
	for _, s := range slots {
		fmt.Fprintf(w, "%-10s: %s\n", s.label, mealName(s.m))
	}
}

// PrintPlan writes a weekly plan in calendar order.
func PrintPlan(w io.Writer, plan meal.WeeklyPlan) {
	fmt.Fprintln(w, "=== WEEKLY MEAL PLAN ===")
	for _, day := range planner.Ordered(plan) {
		fmt.Fprintf(w, "%s\n", titleCase(day.Day))
		fmt.Fprintf(w, "  Breakfast: %s\n", mealName(day.Menu.Breakfast))
		fmt.Fprintf(w, "  Lunch:     %s\n", mealName(day.Menu.Lunch))
		fmt.Fprintf(w, "  Dinner:    %s\n", mealName(day.Menu.Dinner))
	}
}

// PrintShoppingList writes the aggregated ingredients with their meal counts.
func PrintShoppingList(w io.Writer, list *shopping.ShoppingList) {
	fmt.Fprintf(w, "=== SHOPPING LIST (%d meals) ===\n", len(list.MealIDs))
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No ingredients.")
		return
	}
	for _, item := range list.Items {
		fmt.Fprintf(w, "- %s (x%d)\n", item.Ingredient, item.Count)
	}
	fmt.Fprintf(w, "List id: %s\n", list.ID)
}

// PrintHistory writes shopping list summaries.
func PrintHistory(w io.Writer, summaries []shopping.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No shopping lists yet.")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %s  %d meals, %d items\n",
			s.CreatedAt.Local().Format("2006-01-02 15:04"), s.ID, s.MealCount, s.ItemCount)
	}
}

// PrintUsage writes daily call totals followed by process health.
func PrintUsage(w io.Writer, usage []metrics.DailyUsage, health metrics.SysHealth) {
	fmt.Fprintln(w, "=== API USAGE ===")
	if len(usage) == 0 {
		fmt.Fprintln(w, "No calls recorded.")
	}
	for _, u := range usage {
		fmt.Fprintf(w, "%s  %4d calls  %3d failed  avg %dms\n", u.Date, u.Calls, u.Failures, u.AvgLatencyMS)
	}
	fmt.Fprintln(w, "=== SYSTEM ===")
	fmt.Fprintf(w, "Uptime: %s  Memory: %d MB (sys %d MB)  GC: %d  Goroutines: %d  Data: %s\n",
		health.Uptime, health.AllocMB, health.SysMB, health.NumGC, health.Goroutines, health.DataDiskSize)
}

func details(m meal.Meal) string {
	var parts []string
	if m.DietType != "" {
		parts = append(parts, m.DietType)
	}
	if m.Calories != nil {
		parts = append(parts, fmt.Sprintf("%d kcal", *m.Calories))
	}
	if m.PrepTime != nil {
		parts = append(parts, fmt.Sprintf("%d min", *m.PrepTime))
	}
	if m.Servings != nil {
		parts = append(parts, fmt.Sprintf("serves %d", *m.Servings))
	}
	return strings.Join(parts, ", ")
}

func mealName(m *meal.Meal) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%s (#%s)", m.Name, m.ID)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
