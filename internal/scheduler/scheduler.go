// Package scheduler runs the daily clustering and account refresh jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-insights/internal/models"
)

// Runner is the part of the service the jobs drive
type Runner interface {
	AssignPersonas(ctx context.Context) ([]models.PersonaAssignment, error)
	RefreshAccounts(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *logrus.Logger
	timeout time.Duration
}

// New registers both jobs. Overlapping runs of the same job are skipped.
func New(runner Runner, log *logrus.Logger, clusteringSpec, nudgesSpec string) (*Scheduler, error) {
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		log:     log,
		timeout: time.Hour,
	}

	if _, err := s.cron.AddFunc(clusteringSpec, func() { s.RunClustering(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule clustering %q: %w", clusteringSpec, err)
	}
	if _, err := s.cron.AddFunc(nudgesSpec, func() { s.RunRefresh(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule nudges %q: %w", nudgesSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out with jobs still running")
	}
}

// RunClustering re-assigns personas. An empty population or a concurrent run
// is a warning, not a failure.
func (s *Scheduler) RunClustering(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	assignments, err := s.runner.AssignPersonas(ctx)
	switch {
	case err == nil:
		s.log.Infof("Scheduled clustering assigned %d personas", len(assignments))
	case errors.Is(err, models.ErrNoEligibleUsers), errors.Is(err, models.ErrRunInProgress):
		s.log.Warnf("Scheduled clustering skipped: %v", err)
	default:
		s.log.Errorf("Scheduled clustering failed: %v", err)
	}
}

// RunRefresh forecasts every account and evaluates its nudges
func (s *Scheduler) RunRefresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.runner.RefreshAccounts(ctx); err != nil {
		s.log.Errorf("Scheduled account refresh failed: %v", err)
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
