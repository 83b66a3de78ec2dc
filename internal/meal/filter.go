package meal

import (
	"net/url"
	"strconv"
	"strings"
)

// AllDiets is the "no preference" diet value used by the front-ends. It is
// treated the same as an empty diet type.
const AllDiets = "all"

// Filter narrows a meal listing. Zero values are unset.
type Filter struct {
	Search             string
	MinCalories        int
	MaxCalories        int
	DietType           string
	IncludeIngredients string
}

// Values encodes the set fields as query parameters. Unset fields are left
// out entirely rather than sent as empty strings.
func (f Filter) Values() url.Values {
	v := url.Values{}
	setString(v, "search", f.Search)
	setInt(v, "min_calories", f.MinCalories)
	setInt(v, "max_calories", f.MaxCalories)
	setDiet(v, f.DietType)
	setString(v, "include_ingredients", f.IncludeIngredients)
	return v
}

// PlanFilter narrows weekly plan generation.
type PlanFilter struct {
	DietType    string
	MaxCalories int
}

// Values encodes the set fields as query parameters.
func (f PlanFilter) Values() url.Values {
	v := url.Values{}
	setDiet(v, f.DietType)
	setInt(v, "max_calories", f.MaxCalories)
	return v
}

func setString(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

func setDiet(v url.Values, diet string) {
	diet = strings.TrimSpace(diet)
	if diet == "" || strings.EqualFold(diet, AllDiets) {
		return
	}
	v.Set("diet_type", diet)
}
