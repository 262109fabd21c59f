// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrInvalidOrder         = errors.New("invalid order")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrInsufficientCapital  = errors.New("insufficient capital")
	ErrMarginShortfall      = errors.New("margin shortfall")
	ErrStaleQuote           = errors.New("quote is stale")
	ErrQuoteMissing         = errors.New("quote not available")
	ErrLimitNotMarketable   = errors.New("limit price not marketable")
	ErrPositionLimit        = errors.New("position count limit reached")
	ErrConcentrationLimit   = errors.New("instrument concentration limit exceeded")
	ErrSeriesExhausted      = errors.New("price series exhausted")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrDatabaseError        = errors.New("database error")
)

// ValidationError represents a malformed order rejected before touching
// ledger state.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// MarginError represents a capital or margin rejection. The order is
// rejected and the ledger is left unchanged.
type MarginError struct {
	InstrumentID string
	Required     float64
	Available    float64
	Err          error
}

func (e *MarginError) Error() string {
	return fmt.Sprintf("margin error [%s]: required %.2f, available %.2f: %v",
		e.InstrumentID, e.Required, e.Available, e.Err)
}

func (e *MarginError) Unwrap() error {
	return e.Err
}

// NewMarginError creates a new MarginError wrapping the given sentinel.
func NewMarginError(instrumentID string, required, available float64, err error) *MarginError {
	return &MarginError{
		InstrumentID: instrumentID,
		Required:     required,
		Available:    available,
		Err:          err,
	}
}

// DataGapError represents a requested quote that is missing or stale beyond
// the configured tolerance. The simulator rejects rather than fabricating a
// price.
type DataGapError struct {
	InstrumentID string
	At           time.Time
	Age          time.Duration
	Tolerance    time.Duration
	Err          error
}

func (e *DataGapError) Error() string {
	if e.Age > 0 {
		return fmt.Sprintf("data gap [%s] at %s: quote age %s exceeds tolerance %s",
			e.InstrumentID, e.At.Format(time.RFC3339), e.Age, e.Tolerance)
	}
	return fmt.Sprintf("data gap [%s] at %s: %v", e.InstrumentID, e.At.Format(time.RFC3339), e.Err)
}

func (e *DataGapError) Unwrap() error {
	return e.Err
}

// NewDataGapError creates a new DataGapError wrapping the given sentinel.
func NewDataGapError(instrumentID string, at time.Time, age, tolerance time.Duration, err error) *DataGapError {
	return &DataGapError{
		InstrumentID: instrumentID,
		At:           at,
		Age:          age,
		Tolerance:    tolerance,
		Err:          err,
	}
}

// RiskError represents a concentration or position-count rejection.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Err     error
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: current %.2f, limit %.2f", e.Rule, e.Current, e.Limit)
}

func (e *RiskError) Unwrap() error {
	return e.Err
}

// NewRiskError creates a new RiskError wrapping the given sentinel.
func NewRiskError(rule string, current, limit float64, err error) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsRejection reports whether err is one of the order rejection reasons, as
// opposed to an internal failure. Rejections leave the ledger untouched.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidOrder,
		ErrUnknownInstrument,
		ErrInsufficientCapital,
		ErrMarginShortfall,
		ErrStaleQuote,
		ErrQuoteMissing,
		ErrLimitNotMarketable,
		ErrPositionLimit,
		ErrConcentrationLimit,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
