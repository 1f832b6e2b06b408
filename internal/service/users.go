package service

import (
	"context"
	"strings"

	"github.com/Dan9191/bank-insights/internal/models"
)

const defaultCurrency = "RUB"

// CreateUser registers a user; the email must be unique
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if user.Username == "" {
		return &models.ValidationError{Field: "username", Reason: "required"}
	}
	if !strings.Contains(user.Email, "@") {
		return &models.ValidationError{Field: "email", Reason: "must be an email address"}
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}
	s.log.Infof("Created user %d", user.ID)
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateAccount opens an account for an existing user
func (s *Service) CreateAccount(ctx context.Context, userID int64, opening float64, currency string) (*models.Account, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return nil, &models.ValidationError{Field: "currency", Reason: "must be a three letter code"}
	}
	account := &models.Account{UserID: userID, OpeningBalance: opening, Currency: currency}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.log.Infof("Created account %d for user %d", account.ID, userID)
	return account, nil
}

func (s *Service) ListUserAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListUserAccounts(ctx, userID)
}

// AddTransactions records transactions for a user. Every referenced account
// must belong to the user and unknown categories become "other".
func (s *Service) AddTransactions(ctx context.Context, userID int64, txns []models.Transaction) error {
	if len(txns) == 0 {
		return &models.ValidationError{Field: "transactions", Reason: "at least one is required"}
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	checked := make(map[int64]bool)
	for i := range txns {
		t := &txns[i]
		if t.AccountID <= 0 {
			return &models.ValidationError{Field: "account_id", Reason: "required"}
		}
		if !checked[t.AccountID] {
			if _, err := s.repo.GetAccount(ctx, userID, t.AccountID); err != nil {
				return err
			}
			checked[t.AccountID] = true
		}
		if t.Amount == 0 {
			return &models.ValidationError{Field: "amount", Reason: "must be non-zero"}
		}
		switch t.Direction {
		case "", models.DirectionDebit, models.DirectionCredit:
		default:
			return &models.ValidationError{Field: "direction", Reason: "must be debit or credit"}
		}
		t.UserID = userID
		t.Category = models.ParseCategory(string(t.Category))
	}
	return s.ImportTransactions(ctx, txns)
}

// ListUserTransactions returns a user's transactions within the query bounds
func (s *Service) ListUserTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	if _, err := s.repo.GetUser(ctx, q.UserID); err != nil {
		return nil, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, &models.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return s.repo.ListTransactions(ctx, q)
}
