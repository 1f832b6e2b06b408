package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
)

const opForecast = "forecast"

// ForecastBalance fits the account history and supersedes every stored
// point from today onwards. Nothing is written when the fit fails.
func (s *Service) ForecastBalance(ctx context.Context, userID, accountID int64, horizonDays int) (result *models.BalanceForecast, err error) {
	start := time.Now()
	defer func() { s.observe(opForecast, start, err) }()

	if horizonDays < 0 {
		return nil, &models.ValidationError{Field: "horizon", Reason: "must not be negative"}
	}

	release, err := s.lockAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactions(ctx, models.TransactionQuery{UserID: userID, AccountID: accountID})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result, err = s.forecaster.Forecast(txns, account.OpeningBalance, horizonDays, now)
	if err != nil {
		s.log.Warnf("Forecast for user %d account %d failed: %v", userID, accountID, err)
		return nil, err
	}

	from := utils.DayStart(now)
	if err := s.repo.ReplaceForecast(ctx, userID, accountID, from, result.Points); err != nil {
		s.log.Errorf("Failed to store forecast for user %d account %d: %v", userID, accountID, err)
		return nil, err
	}

	s.log.Infof("Forecast for user %d account %d: %d days, %.2f -> %.2f (%s)",
		userID, accountID, result.Summary.HorizonDays, result.Summary.CurrentBalance,
		result.Summary.FinalPredicted, result.Summary.Trend)
	return result, nil
}

// lockAccount keeps forecast and nudge runs for one account from overlapping
func (s *Service) lockAccount(ctx context.Context, userID, accountID int64) (func(), error) {
	release, ok, err := s.locker.Acquire(ctx, fmt.Sprintf("account:%d:%d", userID, accountID), accountLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrRunInProgress
	}
	return release, nil
}
