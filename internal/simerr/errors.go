// Package simerr defines the error kinds shared across the simulation
// pipeline. Configuration and rule validation errors are fatal and must
// surface before any store write; integrity violations abort and roll back
// the current run; aggregation warnings are recovered locally.
package simerr

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid configuration value. Key names the
// offending configuration field.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Key, e.Reason)
}

// Configf builds a ConfigurationError for the given key.
func Configf(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// RuleValidationError reports a malformed or missing pricing rule.
type RuleValidationError struct {
	Vendor string
	Tier   string
	Reason string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("invalid pricing rule %s/%s: %s", e.Vendor, e.Tier, e.Reason)
}

// Rulef builds a RuleValidationError for the given (vendor, tier).
func Rulef(vendor, tier, format string, args ...any) error {
	return &RuleValidationError{Vendor: vendor, Tier: tier, Reason: fmt.Sprintf(format, args...)}
}

// IntegrityViolation reports a referential or event-ordering violation
// detected at the persistence boundary. The enclosing write transaction
// must be rolled back.
type IntegrityViolation struct {
	Entity string
	ID     string
	Reason string
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %s", e.Entity, e.ID, e.Reason)
}

// Integrityf builds an IntegrityViolation for the given entity/id.
func Integrityf(entity, id, format string, args ...any) error {
	return &IntegrityViolation{Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err must abort the command with a non-zero exit.
func IsFatal(err error) bool {
	var cfg *ConfigurationError
	var rule *RuleValidationError
	var integrity *IntegrityViolation
	return errors.As(err, &cfg) || errors.As(err, &rule) || errors.As(err, &integrity)
}
