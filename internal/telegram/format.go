package telegram

import (
	"fmt"
	"strings"

	"meal-planner/internal/meal"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxListedMeals keeps listings under Telegram's message size limit.
const maxListedMeals = 30

const helpText = `🍽 *Meal Planner*

/meals [search] - list meals
/meal <id> - show a meal
/random - random menu for today
/week [diet] [max kcal] - generate a weekly plan
/plan - show the current plan
/select <id>... - add meals to your shopping selection
/unselect <id> - remove a meal from the selection
/clear - clear the selection
/shop [week] [remote] - build a shopping list
/fav <id> - toggle a favorite
/favorites - list favorites

Send a recipe link to import it.`

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatMealLines(meals []meal.Meal) string {
	var sb strings.Builder
	for i, m := range meals {
		if i == maxListedMeals {
			fmt.Fprintf(&sb, "_...and %d more. Narrow your search._\n", len(meals)-maxListedMeals)
			break
		}
		fmt.Fprintf(&sb, "• `%s` %s (%s)\n", m.ID, escape(m.Name), m.Category)
	}
	return sb.String()
}

func formatMeals(meals []meal.Meal) string {
	if len(meals) == 0 {
		return "No meals found."
	}
	return fmt.Sprintf("📖 *Meals* (%d)\n\n%s", len(meals), formatMealLines(meals))
}

func formatMeal(m meal.Meal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s* `#%s`\n", escape(m.Name), m.ID)
	fmt.Fprintf(&sb, "_%s_", m.Category)
	if m.DietType != "" {
		fmt.Fprintf(&sb, " · %s", escape(m.DietType))
	}
	sb.WriteString("\n")
	if m.Calories != nil {
		fmt.Fprintf(&sb, "🔥 %d kcal  ", *m.Calories)
	}
	if m.PrepTime != nil {
		fmt.Fprintf(&sb, "⏱ %d min  ", *m.PrepTime)
	}
	if m.Servings != nil {
		fmt.Fprintf(&sb, "🍽 serves %d", *m.Servings)
	}
	sb.WriteString("\n\n*Ingredients*\n")
	for _, ing := range shopping.SplitIngredients(m.Ingredients) {
		fmt.Fprintf(&sb, "• %s\n", escape(ing))
	}
	return sb.String()
}

func formatSlot(label string, m *meal.Meal) string {
	if m == nil {
		return fmt.Sprintf("*%s*: -\n", label)
	}
	return fmt.Sprintf("*%s*: %s `#%s`\n", label, escape(m.Name), m.ID)
}

func formatMenu(menu meal.Menu) string {
	return "🎲 *Today's Menu*\n\n" +
		formatSlot("Breakfast", menu.Breakfast) +
		formatSlot("Lunch", menu.Lunch) +
		formatSlot("Dinner", menu.Dinner)
}

func formatPlan(plan meal.WeeklyPlan) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n")
	for _, day := range planner.Ordered(plan) {
		fmt.Fprintf(&sb, "\n*%s*\n", escape(title(day.Day)))
		for _, slot := range []struct {
			label string
			m     *meal.Meal
		}{{"🌅", day.Menu.Breakfast}, {"☀️", day.Menu.Lunch}, {"🌙", day.Menu.Dinner}} {
			if slot.m != nil {
				fmt.Fprintf(&sb, "%s %s `#%s`\n", slot.label, escape(slot.m.Name), slot.m.ID)
			}
		}
	}
	sb.WriteString("\n_Send /shop week for the shopping list._")
	return sb.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatSelection(ids []meal.ID) string {
	if len(ids) == 0 {
		return "Your selection is empty."
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "`" + string(id) + "`"
	}
	return fmt.Sprintf("🧺 *Selection* (%d): %s\nSend /shop to build the list.", len(ids), strings.Join(parts, ", "))
}

func formatShoppingList(list *shopping.ShoppingList) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 *Shopping List* (%d meals)\n\n", len(list.MealIDs))
	if len(list.Items) == 0 {
		sb.WriteString("_No ingredients._\n")
	}
	for _, item := range list.Items {
		fmt.Fprintf(&sb, "• %s", escape(item.Ingredient))
		if item.Count > 1 {
			fmt.Fprintf(&sb, " ×%d", item.Count)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent API Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d calls, %d failed, avg %dms\n", d.Date, d.Calls, d.Failures, d.AvgLatencyMS)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
