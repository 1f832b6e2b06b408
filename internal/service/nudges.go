package service

import (
	"context"
	"time"

	"github.com/Dan9191/bank-insights/internal/analytics/nudge"
	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
)

const opNudges = "nudges"

// GenerateNudges evaluates the nudge rules for one account against its
// stored forecast and transaction windows, appends whatever fired and hands
// the new nudges to the notifiers. Delivery failures are logged and counted
// but never undo the stored nudges.
func (s *Service) GenerateNudges(ctx context.Context, userID, accountID int64) (created []models.Nudge, err error) {
	start := time.Now()
	defer func() { s.observe(opNudges, start, err) }()

	release, err := s.lockAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	in, err := s.nudgeInput(ctx, userID, accountID, now)
	if err != nil {
		return nil, err
	}

	created = s.nudges.Generate(in)
	if len(created) == 0 {
		s.log.Infof("No nudges for user %d account %d", userID, accountID)
		return nil, nil
	}
	if err := s.repo.InsertNudges(ctx, created); err != nil {
		s.log.Errorf("Failed to store nudges for user %d: %v", userID, err)
		return nil, err
	}
	for _, n := range created {
		s.metrics.NudgeCreated(string(n.Kind))
	}

	for _, f := range s.deliverer.Deliver(ctx, *user, created) {
		s.metrics.DeliveryFailed(f.Notifier)
		s.log.Errorf("Failed to deliver %d nudges for user %d via %s: %v", len(created), userID, f.Notifier, f.Err)
	}

	s.log.Infof("Created %d nudges for user %d account %d", len(created), userID, accountID)
	return created, nil
}

func (s *Service) nudgeInput(ctx context.Context, userID, accountID int64, now time.Time) (nudge.Input, error) {
	days := func(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

	points, err := s.repo.ListForecast(ctx, userID, accountID, utils.DayStart(now))
	if err != nil {
		return nudge.Input{}, err
	}
	recent, err := s.repo.ListTransactions(ctx, models.TransactionQuery{
		UserID: userID, AccountID: accountID,
		From: now.Add(-days(s.config.RecentWindowDays)), To: now,
	})
	if err != nil {
		return nudge.Input{}, err
	}
	historical, err := s.repo.ListTransactions(ctx, models.TransactionQuery{
		UserID: userID, AccountID: accountID,
		From: now.Add(-days(s.config.HistoryStartDays)), To: now.Add(-days(s.config.HistoryEndDays)),
	})
	if err != nil {
		return nudge.Input{}, err
	}
	recurring, err := s.repo.ListTransactions(ctx, models.TransactionQuery{
		UserID: userID, AccountID: accountID,
		From: now.Add(-days(30)), To: now,
		OutflowOnly: true, RecurringOnly: true,
	})
	if err != nil {
		return nudge.Input{}, err
	}

	var rate float64
	if s.rates != nil {
		if rate, err = s.rates.KeyRate(ctx); err != nil {
			s.log.Warnf("Key rate unavailable, savings nudge will omit interest: %v", err)
			rate = 0
		}
	}

	return nudge.Input{
		UserID:     userID,
		Forecast:   points,
		Recent:     recent,
		Historical: historical,
		Recurring:  recurring,
		KeyRate:    rate,
		Now:        now,
	}, nil
}

// ListNudges returns a user's nudges, newest first
func (s *Service) ListNudges(ctx context.Context, userID int64, unreadOnly bool) ([]models.Nudge, error) {
	return s.repo.ListNudges(ctx, userID, unreadOnly)
}

// DismissNudge marks a nudge as read
func (s *Service) DismissNudge(ctx context.Context, userID, nudgeID int64) error {
	if err := s.repo.MarkNudgeRead(ctx, userID, nudgeID); err != nil {
		return err
	}
	s.log.Infof("Nudge %d dismissed by user %d", nudgeID, userID)
	return nil
}

// KeyRate returns the current key rate; ErrNotFound when no provider is configured
func (s *Service) KeyRate(ctx context.Context) (float64, error) {
	if s.rates == nil {
		return 0, models.NewNotFoundError("key rate provider", nil)
	}
	return s.rates.KeyRate(ctx)
}
