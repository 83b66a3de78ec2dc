package main

import (
	"fmt"
	"os"

	"meal-planner/internal/app"
	"meal-planner/internal/mealsapi"

	"github.com/spf13/cobra"
)

var (
	email    string
	password string

	usageDays   int
	cleanupDays int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Long: `Signs in with email and password.

The password may also come from MEAL_PLANNER_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := application.Login(cmd.Context(), email, credentialsPassword())
		if err != nil {
			return err
		}
		printSession(cmd, "Signed in", session)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := application.Register(cmd.Context(), email, credentialsPassword())
		if err != nil {
			return err
		}
		printSession(cmd, "Account created", session)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage and process health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		usage, health, err := application.Usage(cmd.Context(), usageDays)
		if err != nil {
			return err
		}
		app.PrintUsage(cmd.OutOrStdout(), usage, health)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old call metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		affected, err := application.CleanupMetrics(cmd.Context(), cleanupDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&email, "email", "", "Account email")
		c.Flags().StringVar(&password, "password", "", "Account password")
	}
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "Number of days to summarize")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")
}

func credentialsPassword() string {
	if password != "" {
		return password
	}
	return os.Getenv("MEAL_PLANNER_PASSWORD")
}

func printSession(cmd *cobra.Command, what string, s *mealsapi.Session) {
	if s.Subject != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s as %s.\n", what, s.Subject)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s.\n", what)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s.\n", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
}
