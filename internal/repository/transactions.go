package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-insights/internal/models"
)

// InsertTransactions stores a batch of transactions atomically and fills in
// their ids
func (r *Repository) InsertTransactions(ctx context.Context, txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	query := `
		INSERT INTO insights.transactions
			(user_id, account_id, amount, direction, category, merchant, recurring, description, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txns {
			t := &txns[i]
			err := tx.QueryRowContext(ctx, query,
				t.UserID, t.AccountID, t.Amount, string(t.Direction), string(t.Category),
				t.Merchant, t.Recurring, t.Description, t.OccurredAt,
			).Scan(&t.ID, &t.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
		}
		return nil
	})
}

// ListTransactions returns transactions matching q ordered by time
func (r *Repository) ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.UserID != 0 {
		add("user_id = $%d", q.UserID)
	}
	if q.AccountID != 0 {
		add("account_id = $%d", q.AccountID)
	}
	if !q.From.IsZero() {
		add("occurred_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("occurred_at < $%d", q.To)
	}
	if q.OutflowOnly {
		add("direction = $%d", string(models.DirectionDebit))
	}
	if q.RecurringOnly {
		conds = append(conds, "recurring")
	}

	query := `
		SELECT id, user_id, account_id, amount, direction, category, merchant, recurring, description, occurred_at, created_at
		FROM insights.transactions`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY occurred_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var (
			t         models.Transaction
			direction string
			category  string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Amount, &direction, &category,
			&t.Merchant, &t.Recurring, &t.Description, &t.OccurredAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Direction = models.Direction(direction)
		t.Category = models.ParseCategory(category)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
