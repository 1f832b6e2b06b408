package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
)

// ReplacePersonaAssignments supersedes every stored assignment with the
// result of one clustering run
func (r *Repository) ReplacePersonaAssignments(ctx context.Context, assignments []models.PersonaAssignment) error {
	insert := `
		INSERT INTO insights.persona_assignments
			(user_id, persona, cluster_id, avg_magnitude, frequency, top_category, confidence, run_id, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM insights.persona_assignments`); err != nil {
			return fmt.Errorf("failed to clear persona assignments: %w", err)
		}
		for _, a := range assignments {
			if _, err := tx.ExecContext(ctx, insert,
				a.UserID, string(a.Persona), a.ClusterID, a.AvgMagnitude, a.Frequency,
				string(a.TopCategory), a.Confidence, a.RunID, a.AssignedAt,
			); err != nil {
				return fmt.Errorf("failed to insert persona assignment: %w", err)
			}
		}
		return nil
	})
}

// GetPersonaAssignment returns the active persona of a user
func (r *Repository) GetPersonaAssignment(ctx context.Context, userID int64) (*models.PersonaAssignment, error) {
	var (
		a        models.PersonaAssignment
		persona  string
		category string
	)
	query := `
		SELECT user_id, persona, cluster_id, avg_magnitude, frequency, top_category, confidence, run_id, assigned_at
		FROM insights.persona_assignments
		WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&a.UserID, &persona, &a.ClusterID, &a.AvgMagnitude, &a.Frequency, &category, &a.Confidence, &a.RunID, &a.AssignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("persona", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find persona: %w", err)
	}
	a.Persona = models.Persona(persona)
	a.TopCategory = models.ParseCategory(category)
	return &a, nil
}

// ReplaceForecast drops every stored point for the account dated on or after
// from and stores points in their place
func (r *Repository) ReplaceForecast(ctx context.Context, userID, accountID int64, from time.Time, points []models.ForecastPoint) error {
	insert := `
		INSERT INTO insights.forecast_points (user_id, account_id, run_id, day, predicted, lower, upper)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM insights.forecast_points WHERE user_id = $1 AND account_id = $2 AND day >= $3`,
			userID, accountID, from,
		); err != nil {
			return fmt.Errorf("failed to clear forecast: %w", err)
		}
		for _, p := range points {
			if _, err := tx.ExecContext(ctx, insert,
				userID, accountID, p.RunID, p.Date, p.Predicted, p.Lower, p.Upper,
			); err != nil {
				return fmt.Errorf("failed to insert forecast point: %w", err)
			}
		}
		return nil
	})
}

// ListForecast returns the stored points for the account dated on or after from
func (r *Repository) ListForecast(ctx context.Context, userID, accountID int64, from time.Time) ([]models.ForecastPoint, error) {
	query := `
		SELECT user_id, account_id, run_id, day, predicted, lower, upper
		FROM insights.forecast_points
		WHERE user_id = $1 AND account_id = $2 AND day >= $3
		ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, userID, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast: %w", err)
	}
	defer rows.Close()

	var points []models.ForecastPoint
	for rows.Next() {
		var p models.ForecastPoint
		if err := rows.Scan(&p.UserID, &p.AccountID, &p.RunID, &p.Date, &p.Predicted, &p.Lower, &p.Upper); err != nil {
			return nil, fmt.Errorf("failed to scan forecast point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list forecast: %w", err)
	}
	return points, nil
}

// ReplacePatterns makes patterns the complete set of active patterns of a user
func (r *Repository) ReplacePatterns(ctx context.Context, userID int64, patterns []models.SpendingPattern) error {
	insert := `
		INSERT INTO insights.spending_patterns
			(user_id, name, day_of_week, hour_of_day, avg_magnitude, occurrences, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM insights.spending_patterns WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear patterns: %w", err)
		}
		for _, p := range patterns {
			if _, err := tx.ExecContext(ctx, insert,
				userID, p.Name, nullInt(p.DayOfWeek), nullInt(p.HourOfDay), p.AvgMagnitude, p.Occurrences, p.DetectedAt,
			); err != nil {
				return fmt.Errorf("failed to insert pattern: %w", err)
			}
		}
		return nil
	})
}

// ListPatterns returns the active patterns of a user
func (r *Repository) ListPatterns(ctx context.Context, userID int64) ([]models.SpendingPattern, error) {
	query := `
		SELECT user_id, name, day_of_week, hour_of_day, avg_magnitude, occurrences, detected_at
		FROM insights.spending_patterns
		WHERE user_id = $1
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []models.SpendingPattern
	for rows.Next() {
		var (
			p         models.SpendingPattern
			day, hour sql.NullInt64
		)
		if err := rows.Scan(&p.UserID, &p.Name, &day, &hour, &p.AvgMagnitude, &p.Occurrences, &p.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.DayOfWeek = intPtr(day)
		p.HourOfDay = intPtr(hour)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	return patterns, nil
}

// InsertNudges appends nudges and fills in their ids
func (r *Repository) InsertNudges(ctx context.Context, nudges []models.Nudge) error {
	if len(nudges) == 0 {
		return nil
	}
	query := `
		INSERT INTO insights.nudges (user_id, kind, message, trigger_desc, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range nudges {
			n := &nudges[i]
			if err := tx.QueryRowContext(ctx, query,
				n.UserID, string(n.Kind), n.Message, n.Trigger, n.Read, n.CreatedAt,
			).Scan(&n.ID); err != nil {
				return fmt.Errorf("failed to insert nudge: %w", err)
			}
		}
		return nil
	})
}

// ListNudges returns a user's nudges, newest first
func (r *Repository) ListNudges(ctx context.Context, userID int64, unreadOnly bool) ([]models.Nudge, error) {
	query := `
		SELECT id, user_id, kind, message, trigger_desc, is_read, created_at
		FROM insights.nudges
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list nudges: %w", err)
	}
	defer rows.Close()

	var nudges []models.Nudge
	for rows.Next() {
		var (
			n    models.Nudge
			kind string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Message, &n.Trigger, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan nudge: %w", err)
		}
		n.Kind = models.NudgeKind(kind)
		nudges = append(nudges, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list nudges: %w", err)
	}
	return nudges, nil
}

// MarkNudgeRead flips a nudge of userID to read. Marking an already read
// nudge again is a no-op.
func (r *Repository) MarkNudgeRead(ctx context.Context, userID, nudgeID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE insights.nudges SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		nudgeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark nudge read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark nudge read: %w", err)
	}
	if n == 0 {
		return models.NewNotFoundError("nudge", nudgeID)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
