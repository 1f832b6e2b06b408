package main

import (
	"github.com/spf13/cobra"
)

func personasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "Re-cluster every eligible user into personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			assignments, err := a.Service.AssignPersonas(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, assignments)
		},
	}
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the balance of one account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			accountID, _ := cmd.Flags().GetInt64("account")
			horizon, _ := cmd.Flags().GetInt("horizon")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Service.ForecastBalance(cmd.Context(), userID, accountID, horizon)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	accountFlags(cmd)
	cmd.Flags().Int("horizon", 0, "days to forecast (0 uses FORECAST_HORIZON_DAYS)")
	return cmd
}

func nudgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nudges",
		Short: "Evaluate nudge rules for one account, or every account with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			userID, _ := cmd.Flags().GetInt64("user")
			accountID, _ := cmd.Flags().GetInt64("account")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				return a.Service.RefreshAccounts(cmd.Context())
			}
			nudges, err := a.Service.GenerateNudges(cmd.Context(), userID, accountID)
			if err != nil {
				return err
			}
			return printJSON(cmd, nudges)
		},
	}
	cmd.Flags().Int64("user", 0, "account owner")
	cmd.Flags().Int64("account", 0, "account id")
	cmd.Flags().Bool("all", false, "forecast and nudge every account")
	cmd.MarkFlagsOneRequired("all", "account")
	cmd.MarkFlagsRequiredTogether("user", "account")
	return cmd
}

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Detect recurring spending patterns for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			patterns, err := a.Service.DetectPatterns(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd, patterns)
		},
	}
	cmd.Flags().Int64("user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func accountFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("user", 0, "account owner")
	cmd.Flags().Int64("account", 0, "account id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("account")
}
