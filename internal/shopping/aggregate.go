package shopping

import (
	"sort"
	"strings"
)

// Entry is one line of an aggregated shopping list. Count is the number of
// distinct meals that need the ingredient.
type Entry struct {
	Ingredient string `json:"ingredient"`
	Count      int    `json:"count"`
}

// SplitIngredients breaks a free-text ingredient field on commas, semicolons
// and line breaks. Pieces are trimmed and empty pieces dropped.
func SplitIngredients(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// normalize is the comparison and display form of an ingredient.
func normalize(ingredient string) string {
	return strings.ToLower(strings.Join(strings.Fields(ingredient), " "))
}

// Aggregate merges the ingredient texts of several meals, one text per meal.
// Ingredients are compared case-insensitively and each meal counts at most
// once per ingredient. The result is sorted by ingredient and never nil.
func Aggregate(texts []string) []Entry {
	counts := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, piece := range SplitIngredients(text) {
			key := normalize(piece)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
		}
	}

	entries := make([]Entry, 0, len(counts))
	for ingredient, count := range counts {
		entries = append(entries, Entry{Ingredient: ingredient, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ingredient < entries[j].Ingredient
	})
	return entries
}
