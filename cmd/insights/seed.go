package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with synthetic users and transaction histories",
		Long: `Create users with one account each and a generated transaction history.

Each user follows a spending archetype (frugal, balanced, impulsive, weekend,
big_spender), drawn at random unless --archetype is given.

Examples:
  insights seed --users 50
  insights seed --users 5 --archetype weekend --seed 7`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}
	cmd.Flags().Int("users", 50, "number of users to create")
	cmd.Flags().Int("days", 180, "days of history per account")
	cmd.Flags().Int64("seed", 42, "random seed")
	cmd.Flags().String("archetype", "", "force a single archetype")
	cmd.Flags().Float64("opening-balance", 1000, "opening balance of each account")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	users, _ := cmd.Flags().GetInt("users")
	days, _ := cmd.Flags().GetInt("days")
	seedValue, _ := cmd.Flags().GetInt64("seed")
	archetypeName, _ := cmd.Flags().GetString("archetype")
	opening, _ := cmd.Flags().GetFloat64("opening-balance")

	if users < 1 {
		return fmt.Errorf("--users must be positive")
	}
	var forced seed.Archetype
	if archetypeName != "" {
		a, err := seed.ParseArchetype(archetypeName)
		if err != nil {
			return err
		}
		forced = a
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	start := time.Now().UTC().AddDate(0, 0, -days)
	gen := seed.NewGenerator(seedValue, start, days)
	counts := make(map[seed.Archetype]int)

	for i := 0; i < users; i++ {
		archetype := forced
		if archetype == "" {
			archetype = gen.Pick()
		}

		user := &models.User{
			Email:    fmt.Sprintf("seed-%d-%03d@example.com", seedValue, i),
			Username: fmt.Sprintf("%s_%03d", archetype, i),
		}
		if err := a.Repo.CreateUser(ctx, user); err != nil {
			return err
		}
		account := &models.Account{UserID: user.ID, OpeningBalance: opening, Currency: "RUB"}
		if err := a.Repo.CreateAccount(ctx, account); err != nil {
			return err
		}
		if err := a.Service.ImportTransactions(ctx, gen.Transactions(archetype, user.ID, account.ID)); err != nil {
			return err
		}
		counts[archetype]++
	}

	a.Log.WithField("archetypes", counts).Infof("Seeded %d users", users)
	return nil
}
