package main

import (
	"fmt"

	"meal-planner/internal/app"
	"meal-planner/internal/meal"

	"github.com/spf13/cobra"
)

var (
	listFilter meal.Filter

	formName        string
	formCategory    string
	formIngredients string
	formDiet        string
	formImage       string
	formPrepTime    int
	formCalories    int
	formServings    int
)

var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "List, show and edit meals",
}

var mealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meals matching the filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		meals, err := application.Meals(cmd.Context(), listFilter)
		if err != nil {
			return err
		}
		favorites, err := application.Favorites(cmd.Context())
		if err != nil {
			return err
		}
		ids := make([]meal.ID, len(favorites))
		for i, f := range favorites {
			ids[i] = f.ID
		}
		app.PrintMeals(cmd.OutOrStdout(), meals, ids)
		return nil
	},
}

var mealsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := application.Meal(cmd.Context(), meal.ID(args[0]))
		if err != nil {
			return err
		}
		app.PrintMeal(cmd.OutOrStdout(), *m)
		return nil
	},
}

var mealsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a meal",
	Long: `Creates a meal from the form flags.

Example:
  meal-planner meals add --name "Pancakes" --category breakfast \
    --ingredients "flour, milk, eggs" --calories 450`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := application.AddMeal(cmd.Context(), mealFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created meal #%s.\n", created.ID)
		return nil
	},
}

var mealsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Replace a meal with the form flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := meal.ID(args[0])
		current, err := application.Meal(cmd.Context(), id)
		if err != nil {
			return err
		}
		updated, err := application.EditMeal(cmd.Context(), id, mergeFlags(cmd, *current))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated meal #%s.\n", updated.ID)
		return nil
	},
}

var mealsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.DeleteMeal(cmd.Context(), meal.ID(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted meal #%s.\n", args[0])
		return nil
	},
}

var favCmd = &cobra.Command{
	Use:   "fav [id]",
	Short: "Toggle a meal's favorite mark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := application.ToggleFavorite(meal.ID(args[0]))
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintf(cmd.OutOrStdout(), "Meal #%s added to favorites.\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Meal #%s removed from favorites.\n", args[0])
		}
		return nil
	},
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite meals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		favs, err := application.Favorites(cmd.Context())
		if err != nil {
			return err
		}
		app.PrintMeals(cmd.OutOrStdout(), favs, nil)
		return nil
	},
}

var clipCmd = &cobra.Command{
	Use:   "clip [url]",
	Short: "Import a recipe page as a new meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := application.Clip(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Recipe saved.")
		app.PrintMeal(cmd.OutOrStdout(), *created)
		return nil
	},
}

func init() {
	f := mealsListCmd.Flags()
	f.StringVarP(&listFilter.Search, "search", "s", "", "Match names containing this text")
	f.IntVar(&listFilter.MinCalories, "min-calories", 0, "Minimum calories")
	f.IntVar(&listFilter.MaxCalories, "max-calories", 0, "Maximum calories")
	f.StringVar(&listFilter.DietType, "diet", "", "Diet type (vegan, veg, keto, ...)")
	f.StringVar(&listFilter.IncludeIngredients, "ingredients", "", "Comma-separated ingredients the meal must contain")

	for _, c := range []*cobra.Command{mealsAddCmd, mealsEditCmd} {
		f := c.Flags()
		f.StringVar(&formName, "name", "", "Meal name")
		f.StringVar(&formCategory, "category", "", "breakfast, lunch, dinner or snack")
		f.StringVar(&formIngredients, "ingredients", "", "Comma-separated ingredients")
		f.StringVar(&formDiet, "diet", "", "Diet type")
		f.StringVar(&formImage, "image", "", "Image URL")
		f.IntVar(&formPrepTime, "prep-time", 0, "Preparation time in minutes")
		f.IntVar(&formCalories, "calories", 0, "Calories per serving")
		f.IntVar(&formServings, "servings", 0, "Number of servings")
	}

	mealsCmd.AddCommand(mealsListCmd, mealsShowCmd, mealsAddCmd, mealsEditCmd, mealsDeleteCmd)
}

func mealFromFlags(cmd *cobra.Command) meal.Meal {
	return mergeFlags(cmd, meal.Meal{})
}

// mergeFlags overwrites the fields of m whose flags were set.
func mergeFlags(cmd *cobra.Command, m meal.Meal) meal.Meal {
	f := cmd.Flags()
	if f.Changed("name") {
		m.Name = formName
	}
	if f.Changed("category") {
		m.Category = meal.Category(formCategory)
	}
	if f.Changed("ingredients") {
		m.Ingredients = formIngredients
	}
	if f.Changed("diet") {
		m.DietType = formDiet
	}
	if f.Changed("image") {
		m.ImageURL = formImage
	}
	if f.Changed("prep-time") {
		m.PrepTime = meal.Int(formPrepTime)
	}
	if f.Changed("calories") {
		m.Calories = meal.Int(formCalories)
	}
	if f.Changed("servings") {
		m.Servings = meal.Int(formServings)
	}
	return m
}
