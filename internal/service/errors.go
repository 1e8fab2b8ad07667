package service

import (
	"errors"
	"fmt"
)

// Reason classifies a rejected draft.
type Reason string

const (
	ReasonMissingRequiredField Reason = "MissingRequiredField"
	ReasonInvalidAmount        Reason = "InvalidAmount"
)

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

// ValidationError is returned for a draft that cannot be stored. Nothing
// was written.
type ValidationError struct {
	Reason Reason
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMissingRequiredField:
		return e.Reason == ReasonMissingRequiredField
	case ErrInvalidAmount:
		return e.Reason == ReasonInvalidAmount
	}
	return false
}

// WriteError means the store rejected or failed an append. The caller's
// draft should be kept so the user can retry.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// FeedError is delivered to a subscription when a snapshot could not be
// produced. The last delivered snapshot remains the best known state.
type FeedError struct {
	Err error
}

func (e *FeedError) Error() string {
	return "feed failed: " + e.Err.Error()
}

func (e *FeedError) Unwrap() error {
	return e.Err
}
