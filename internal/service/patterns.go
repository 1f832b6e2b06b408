package service

import (
	"context"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
)

const opPatterns = "patterns"

// DetectPatterns re-detects a user's spending patterns and makes them the
// complete active set
func (s *Service) DetectPatterns(ctx context.Context, userID int64) (patterns []models.SpendingPattern, err error) {
	start := time.Now()
	defer func() { s.observe(opPatterns, start, err) }()

	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactions(ctx, models.TransactionQuery{UserID: userID, OutflowOnly: true})
	if err != nil {
		return nil, err
	}

	patterns = s.patterns.Detect(txns, s.now())
	if err := s.repo.ReplacePatterns(ctx, userID, patterns); err != nil {
		s.log.Errorf("Failed to store patterns for user %d: %v", userID, err)
		return nil, err
	}
	s.log.Infof("Detected %d patterns for user %d", len(patterns), userID)
	return patterns, nil
}

// ListPatterns returns the patterns stored by the last detection run
func (s *Service) ListPatterns(ctx context.Context, userID int64) ([]models.SpendingPattern, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListPatterns(ctx, userID)
}

// ImportTransactions stores externally sourced transactions
func (s *Service) ImportTransactions(ctx context.Context, txns []models.Transaction) error {
	for i, t := range txns {
		if t.UserID == 0 || t.AccountID == 0 {
			return &models.ValidationError{Field: "transactions", Reason: "user and account are required"}
		}
		if t.OccurredAt.IsZero() {
			return &models.ValidationError{Field: "occurred_at", Reason: "missing timestamp"}
		}
		if t.Direction == "" {
			txns[i].Direction = models.DirectionCredit
			if t.Amount < 0 {
				txns[i].Direction = models.DirectionDebit
			}
		}
	}
	if err := s.repo.InsertTransactions(ctx, txns); err != nil {
		return err
	}
	s.log.Infof("Imported %d transactions", len(txns))
	return nil
}
