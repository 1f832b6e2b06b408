package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestReplaceForecastCommits(t *testing.T) {
	repo, mock := newMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []models.ForecastPoint{
		{RunID: "run-1", Date: from, Predicted: 100, Lower: 80, Upper: 120},
		{RunID: "run-1", Date: from.AddDate(0, 0, 1), Predicted: 110, Lower: 85, Upper: 135},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM insights.forecast_points WHERE user_id = $1 AND account_id = $2 AND day >= $3")).
		WithArgs(int64(1), int64(2), from).
		WillReturnResult(sqlmock.NewResult(0, 30))
	for _, p := range points {
		mock.ExpectExec(q("INSERT INTO insights.forecast_points")).
			WithArgs(int64(1), int64(2), p.RunID, p.Date, p.Predicted, p.Lower, p.Upper).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForecast(context.Background(), 1, 2, from, points))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForecastRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []models.ForecastPoint{
		{RunID: "run-2", Date: from, Predicted: 100},
		{RunID: "run-2", Date: from.AddDate(0, 0, 1), Predicted: 90},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM insights.forecast_points")).WillReturnResult(sqlmock.NewResult(0, 30))
	mock.ExpectExec(q("INSERT INTO insights.forecast_points")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO insights.forecast_points")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplaceForecast(context.Background(), 1, 2, from, points)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert forecast point")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePersonaAssignments(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	assignments := []models.PersonaAssignment{
		{UserID: 1, Persona: models.PersonaFrugalSaver, ClusterID: 0, AvgMagnitude: 20, Frequency: 3, TopCategory: models.CategoryGroceries, Confidence: 0.85, RunID: "r", AssignedAt: at},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM insights.persona_assignments")).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(q("INSERT INTO insights.persona_assignments")).
		WithArgs(int64(1), "Frugal Saver", 0, 20.0, 3.0, "groceries", 0.85, "r", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplacePersonaAssignments(context.Background(), assignments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePersonaAssignmentsRollsBackOnDeleteFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM insights.persona_assignments")).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.ReplacePersonaAssignments(context.Background(), []models.PersonaAssignment{{UserID: 1}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePatternsStoresNullSlots(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day, hour := 5, 20
	patterns := []models.SpendingPattern{
		{Name: "weekday_hour_spike", DayOfWeek: &day, HourOfDay: &hour, AvgMagnitude: 90, Occurrences: 3, DetectedAt: at},
		{Name: "weekend_splurge", AvgMagnitude: 50, Occurrences: 8, DetectedAt: at},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM insights.spending_patterns WHERE user_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO insights.spending_patterns")).
		WithArgs(int64(3), "weekday_hour_spike", int64(5), int64(20), 90.0, 3, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO insights.spending_patterns")).
		WithArgs(int64(3), "weekend_splurge", nil, nil, 50.0, 8, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplacePatterns(context.Background(), 3, patterns))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNudgesFillsIDs(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	nudges := []models.Nudge{
		{UserID: 1, Kind: models.NudgeCriticalBalance, Message: "m1", Trigger: "t1", CreatedAt: at},
		{UserID: 1, Kind: models.NudgeSubscriptionReview, Message: "m2", Trigger: "t2", CreatedAt: at},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO insights.nudges")).
		WithArgs(int64(1), "critical_balance", "m1", "t1", false, at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(q("INSERT INTO insights.nudges")).
		WithArgs(int64(1), "subscription_review", "m2", "t2", false, at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	require.NoError(t, repo.InsertNudges(context.Background(), nudges))
	assert.Equal(t, int64(10), nudges[0].ID)
	assert.Equal(t, int64(11), nudges[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNudgeRead(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(q("UPDATE insights.nudges SET is_read = TRUE")).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkNudgeRead(context.Background(), 1, 10))

	mock.ExpectExec(q("UPDATE insights.nudges SET is_read = TRUE")).
		WithArgs(int64(99), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkNudgeRead(context.Background(), 1, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(q("FROM insights.accounts")).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "opening_balance", "currency", "created_at", "updated_at"}))

	_, err := repo.GetAccount(context.Background(), 1, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactionsBuildsFilters(t *testing.T) {
	repo, mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	occurred := from.Add(10 * time.Hour)

	cols := []string{"id", "user_id", "account_id", "amount", "direction", "category", "merchant", "recurring", "description", "occurred_at", "created_at"}
	mock.ExpectQuery(q("WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3 AND direction = $4 AND recurring")).
		WithArgs(int64(1), from, to, "debit").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(5), int64(1), int64(2), -15.0, "debit", "subscriptions", "Streamly", true, "", occurred, occurred).
			AddRow(int64(6), int64(1), int64(2), -9.0, "debit", "unknown-cat", "Gym", true, "", occurred, occurred))

	txns, err := repo.ListTransactions(context.Background(), models.TransactionQuery{
		UserID: 1, From: from, To: to, OutflowOnly: true, RecurringOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, models.CategorySubscriptions, txns[0].Category)
	assert.Equal(t, models.CategoryOther, txns[1].Category)
	assert.True(t, txns[0].IsOutflow())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(q("INSERT INTO insights.users")).
		WithArgs("ann", "ann@example.com").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.CreateUser(context.Background(), &models.User{Username: "ann", Email: "ann@example.com"})
	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "email", vErr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserAccountsFiltersByOwner(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM insights.accounts WHERE user_id = $1 ORDER BY id")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "opening_balance", "currency", "created_at", "updated_at"}).
			AddRow(int64(7), int64(3), 1000.0, "RUB", created, created).
			AddRow(int64(9), int64(3), 0.0, "USD", created, created))

	accounts, err := repo.ListUserAccounts(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(7), accounts[0].ID)
	assert.Equal(t, "USD", accounts[1].Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPatternsReadsNullSlots(t *testing.T) {
	repo, mock := newMock(t)
	detected := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM insights.spending_patterns")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "day_of_week", "hour_of_day", "avg_magnitude", "occurrences", "detected_at"}).
			AddRow(int64(4), "weekday_hour_spike", int64(5), int64(20), 80.0, 4, detected).
			AddRow(int64(4), "weekend_splurge", nil, nil, 50.0, 8, detected))

	patterns, err := repo.ListPatterns(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	require.NotNil(t, patterns[0].DayOfWeek)
	assert.Equal(t, 5, *patterns[0].DayOfWeek)
	assert.Equal(t, 20, *patterns[0].HourOfDay)
	assert.Nil(t, patterns[1].DayOfWeek)
	assert.Nil(t, patterns[1].HourOfDay)
	assert.Equal(t, 8, patterns[1].Occurrences)
	assert.NoError(t, mock.ExpectationsWereMet())
}
