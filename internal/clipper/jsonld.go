package clipper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"meal-planner/internal/meal"

	"github.com/PuerkitoBio/goquery"
)

// recipeLD is the subset of a schema.org Recipe the clipper understands.
// Fields that sites emit in several shapes are kept raw.
type recipeLD struct {
	Type             json.RawMessage   `json:"@type"`
	Graph            []json.RawMessage `json:"@graph"`
	Name             string            `json:"name"`
	RecipeIngredient []string          `json:"recipeIngredient"`
	RecipeCategory   json.RawMessage   `json:"recipeCategory"`
	SuitableForDiet  json.RawMessage   `json:"suitableForDiet"`
	PrepTime         string            `json:"prepTime"`
	TotalTime        string            `json:"totalTime"`
	RecipeYield      json.RawMessage   `json:"recipeYield"`
	Image            json.RawMessage   `json:"image"`
	Nutrition        struct {
		Calories string `json:"calories"`
	} `json:"nutrition"`
}

// findJSONLDRecipe returns the first Recipe object in the page's JSON-LD
// blocks, looking inside arrays and @graph containers.
func findJSONLDRecipe(doc *goquery.Document) (recipeLD, bool) {
	var (
		found recipeLD
		ok    bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found, ok = searchRecipe(json.RawMessage(s.Text()))
		return !ok
	})
	return found, ok
}

func searchRecipe(raw json.RawMessage) (recipeLD, bool) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if r, ok := searchRecipe(item); ok {
				return r, true
			}
		}
		return recipeLD{}, false
	}

	var r recipeLD
	if err := json.Unmarshal(raw, &r); err != nil {
		return recipeLD{}, false
	}
	if containsFold(stringList(r.Type), "Recipe") {
		return r, true
	}
	for _, item := range r.Graph {
		if found, ok := searchRecipe(item); ok {
			return found, true
		}
	}
	return recipeLD{}, false
}

func (r recipeLD) toMeal() meal.Meal {
	ingredients := make([]string, 0, len(r.RecipeIngredient))
	for _, ing := range r.RecipeIngredient {
		if ing = cleanText(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}

	m := meal.Meal{
		Name:        cleanText(r.Name),
		Category:    categoryFrom(stringList(r.RecipeCategory)),
		Ingredients: strings.Join(ingredients, "\n"),
		DietType:    dietFrom(stringList(r.SuitableForDiet)),
		ImageURL:    imageFrom(r.Image),
	}

	prep := r.PrepTime
	if prep == "" {
		prep = r.TotalTime
	}
	if minutes, ok := isoMinutes(prep); ok {
		m.PrepTime = meal.Int(minutes)
	}
	if kcal, ok := leadingInt(r.Nutrition.Calories); ok {
		m.Calories = meal.Int(kcal)
	}
	for _, y := range stringList(r.RecipeYield) {
		if servings, ok := leadingInt(y); ok {
			m.Servings = meal.Int(servings)
			break
		}
	}
	return m
}

// stringList reads a JSON string, number or array of those.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return []string{n.String()}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		out = append(out, stringList(item)...)
	}
	return out
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func categoryFrom(values []string) meal.Category {
	for _, v := range values {
		lower := strings.ToLower(v)
		// "brunch" contains "lunch".
		if strings.Contains(lower, "brunch") {
			return meal.Breakfast
		}
		for _, c := range meal.Categories {
			if strings.Contains(lower, string(c)) {
				return c
			}
		}
		switch {
		case strings.Contains(lower, "main"), strings.Contains(lower, "supper"):
			return meal.Dinner
		case strings.Contains(lower, "appetizer"), strings.Contains(lower, "dessert"):
			return meal.Snack
		}
	}
	return DefaultCategory
}

// dietFrom maps schema.org RestrictedDiet values onto the backend's diet types.
func dietFrom(values []string) string {
	for _, v := range values {
		name := v[strings.LastIndex(v, "/")+1:]
		switch strings.ToLower(name) {
		case "vegandiet":
			return "vegan"
		case "vegetariandiet":
			return "veg"
		case "lowcarbdiet":
			return "keto"
		}
	}
	return ""
}

func imageFrom(raw json.RawMessage) string {
	if urls := stringList(raw); len(urls) > 0 {
		return urls[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return obj.URL
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		for _, o := range objs {
			if o.URL != "" {
				return o.URL
			}
		}
	}
	return ""
}

var (
	isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:\d+(?:\.\d+)?S)?)?$`)
	firstNumber = regexp.MustCompile(`\d+`)
)

// isoMinutes converts an ISO 8601 duration such as PT1H30M to minutes.
func isoMinutes(s string) (int, bool) {
	match := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if match == nil || s == "" {
		return 0, false
	}
	days, _ := strconv.Atoi(match[1])
	hours, _ := strconv.Atoi(match[2])
	minutes, _ := strconv.Atoi(match[3])
	total := days*24*60 + hours*60 + minutes
	return total, total > 0
}

func leadingInt(s string) (int, bool) {
	n, err := strconv.Atoi(firstNumber.FindString(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
