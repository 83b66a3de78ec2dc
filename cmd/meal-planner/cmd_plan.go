package main

import (
	"fmt"
	"strings"

	"meal-planner/internal/app"
	"meal-planner/internal/meal"
	"meal-planner/internal/shopping"

	"github.com/spf13/cobra"
)

var (
	planFilter meal.PlanFilter
	clearPlan  bool

	shopRemote bool
	shopWeek   bool

	historyLimit int
	historyShow  string
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Pick a random menu for today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		menu, err := application.RandomMenu(cmd.Context())
		if err != nil {
			return err
		}
		app.PrintMenu(cmd.OutOrStdout(), *menu)
		return nil
	},
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Generate a weekly plan and make it current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := application.GeneratePlan(cmd.Context(), planFilter)
		if err != nil {
			return err
		}
		app.PrintPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the current weekly plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if clearPlan {
			if err := application.ClearPlan(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Weekly plan cleared.")
			return nil
		}
		plan, err := application.CurrentPlan()
		if err != nil {
			return err
		}
		app.PrintPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [id...]",
	Short: "Add meals to the shopping selection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selection, err := application.Select(cmd.Context(), cliChat, toIDs(args)...)
		if err != nil {
			return err
		}
		printSelection(cmd, selection)
		return nil
	},
}

var unselectCmd = &cobra.Command{
	Use:   "unselect [id]",
	Short: "Remove a meal from the shopping selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selection, err := application.Unselect(cmd.Context(), cliChat, meal.ID(args[0]))
		if err != nil {
			return err
		}
		printSelection(cmd, selection)
		return nil
	},
}

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show the shopping selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selection, err := application.Selection(cmd.Context(), cliChat)
		if err != nil {
			return err
		}
		printSelection(cmd, selection)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the shopping selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.ClearSelection(cmd.Context(), cliChat); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared.")
		return nil
	},
}

var shopCmd = &cobra.Command{
	Use:   "shop [id...]",
	Short: "Build a shopping list",
	Long: `Aggregates the ingredients of the given meals into a shopping list.

Without ids the current selection is used, and with --week every meal of
the current weekly plan. --remote lets the API aggregate instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			list *shopping.ShoppingList
			err  error
		)
		switch {
		case shopWeek:
			list, err = application.PlanShoppingList(cmd.Context(), shopRemote)
		case len(args) > 0:
			list, err = application.ShoppingList(cmd.Context(), toIDs(args), shopRemote)
		default:
			list, err = application.SelectionShoppingList(cmd.Context(), cliChat, shopRemote)
		}
		if err != nil {
			return err
		}
		app.PrintShoppingList(cmd.OutOrStdout(), list)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent shopping lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyShow != "" {
			list, err := application.SavedShoppingList(cmd.Context(), historyShow)
			if err != nil {
				return err
			}
			if list == nil {
				return fmt.Errorf("shopping list %s not found", historyShow)
			}
			app.PrintShoppingList(cmd.OutOrStdout(), list)
			return nil
		}
		summaries, err := application.ShoppingHistory(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		app.PrintHistory(cmd.OutOrStdout(), summaries)
		return nil
	},
}

func init() {
	weekCmd.Flags().StringVar(&planFilter.DietType, "diet", "", "Diet type (vegan, veg, keto, ...)")
	weekCmd.Flags().IntVar(&planFilter.MaxCalories, "max-calories", 0, "Maximum calories per meal")

	planCmd.Flags().BoolVar(&clearPlan, "clear", false, "Forget the current plan")

	shopCmd.Flags().BoolVar(&shopRemote, "remote", false, "Let the API aggregate the ingredients")
	shopCmd.Flags().BoolVar(&shopWeek, "week", false, "Use every meal of the current weekly plan")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of lists to show")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Print the stored list with this id")
}

func toIDs(args []string) []meal.ID {
	ids := make([]meal.ID, len(args))
	for i, a := range args {
		ids[i] = meal.ID(a)
	}
	return ids
}

func printSelection(cmd *cobra.Command, ids []meal.ID) {
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Selection is empty.")
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + string(id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Selected (%d): %s\n", len(ids), strings.Join(parts, ", "))
}
