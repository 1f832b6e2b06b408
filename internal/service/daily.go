package service

import (
	"context"
	"errors"

	"github.com/Dan9191/bank-insights/internal/models"
)

// RefreshAccounts forecasts every account and then evaluates its nudges.
// Accounts without enough history or with a degenerate series are skipped;
// the first storage error aborts the sweep.
func (s *Service) RefreshAccounts(ctx context.Context) error {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return err
	}

	var forecasted, nudged int
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := s.ForecastBalance(ctx, a.UserID, a.ID, s.config.ForecastHorizonDays)
		switch {
		case err == nil:
			forecasted++
		case skippable(err):
			// stale points are superseded on the next successful run
		default:
			return err
		}

		created, err := s.GenerateNudges(ctx, a.UserID, a.ID)
		if err != nil && !skippable(err) {
			return err
		}
		nudged += len(created)
	}

	s.log.Infof("Refreshed %d accounts: %d forecasts, %d nudges", len(accounts), forecasted, nudged)
	return nil
}

func skippable(err error) bool {
	return errors.Is(err, models.ErrInsufficientData) ||
		errors.Is(err, models.ErrModelFit) ||
		errors.Is(err, models.ErrRunInProgress)
}
