// Package notify delivers newly created nudges to users and downstream systems.
package notify

import (
	"context"

	"github.com/Dan9191/bank-insights/internal/models"
)

// Notifier delivers nudges for one user
type Notifier interface {
	Name() string
	Notify(ctx context.Context, user models.User, nudges []models.Nudge) error
}

// Failure reports one notifier that could not deliver
type Failure struct {
	Notifier string
	Err      error
}

// Multi fans nudges out to every notifier, continuing past failures
type Multi struct {
	notifiers []Notifier
}

// NewMulti combines notifiers; nil entries are skipped
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Deliver calls every notifier and returns the ones that failed
func (m *Multi) Deliver(ctx context.Context, user models.User, nudges []models.Nudge) []Failure {
	var failures []Failure
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, user, nudges); err != nil {
			failures = append(failures, Failure{Notifier: n.Name(), Err: err})
		}
	}
	return failures
}

// Len is the number of configured notifiers
func (m *Multi) Len() int { return len(m.notifiers) }
