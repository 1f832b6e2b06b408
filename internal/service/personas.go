package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-insights/internal/metrics"
	"github.com/Dan9191/bank-insights/internal/models"
)

const opPersonas = "personas"

// AssignPersonas re-clusters the whole eligible population and supersedes
// every stored assignment. Users below the feature minimum are skipped. Only
// one run may be active at a time; a concurrent call gets ErrRunInProgress.
func (s *Service) AssignPersonas(ctx context.Context) (assignments []models.PersonaAssignment, err error) {
	start := time.Now()
	defer func() { s.observe(opPersonas, start, err) }()

	release, ok, err := s.locker.Acquire(ctx, "clustering", clusteringLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrRunInProgress
	}
	defer release()

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	vectors := make([]models.FeatureVector, 0, len(users))
	for _, u := range users {
		txns, err := s.repo.ListTransactions(ctx, models.TransactionQuery{UserID: u.ID, OutflowOnly: true})
		if err != nil {
			return nil, err
		}
		v, err := s.extractor.Extract(txns)
		if errors.Is(err, models.ErrInsufficientData) {
			s.log.Warnf("Skipping user %d for clustering: %v", u.ID, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to extract features for user %d: %w", u.ID, err)
		}
		vectors = append(vectors, *v)
	}

	assignments, err = s.classifier.Assign(vectors)
	if err != nil {
		s.log.Warnf("Clustering run produced no assignments: %v", err)
		return nil, err
	}
	if err := s.repo.ReplacePersonaAssignments(ctx, assignments); err != nil {
		s.log.Errorf("Failed to store persona assignments: %v", err)
		return nil, err
	}

	for _, a := range assignments {
		s.metrics.PersonaAssigned(string(a.Persona))
	}
	s.log.Infof("Assigned personas to %d of %d users", len(assignments), len(users))
	return assignments, nil
}

// GetPersona returns the active persona of a user
func (s *Service) GetPersona(ctx context.Context, userID int64) (*models.PersonaAssignment, error) {
	return s.repo.GetPersonaAssignment(ctx, userID)
}

// observe records the outcome of a run; data-quality failures count as skipped
func (s *Service) observe(op string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrNoEligibleUsers), errors.Is(err, models.ErrRunInProgress):
		outcome = metrics.OutcomeSkipped
	default:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveRun(op, outcome, start)
}
