package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means a component received fewer samples than it needs
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNoEligibleUsers means a clustering run found nobody with enough data
	ErrNoEligibleUsers = errors.New("no eligible users")
	// ErrModelFit means the forecast model could not be fitted to the series
	ErrModelFit = errors.New("model fit failed")
	// ErrNotFound means a referenced user, account or record is absent
	ErrNotFound = errors.New("not found")
	// ErrRunInProgress means another clustering run holds the lock
	ErrRunInProgress = errors.New("run already in progress")
)

// InsufficientDataError carries the sample size that was rejected
type InsufficientDataError struct {
	Component string
	Have      int
	Need      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d transactions, need %d", e.Component, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// ModelFitError wraps a numerical failure of the forecast model
type ModelFitError struct {
	Reason string
	Err    error
}

func (e *ModelFitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model fit failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("model fit failed: %s", e.Reason)
}

func (e *ModelFitError) Is(target error) bool {
	return target == ErrModelFit
}

func (e *ModelFitError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents a rejected request parameter
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// NewNotFoundError creates a new NotFoundError with an ID
func NewNotFoundError(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}
