// Package errors defines custom error types for the deskpilot AI core
package errors

import (
	"errors"
	"fmt"
)

// ErrNoProviders signals that an orchestrated call found zero candidates to
// attempt. This is a configuration bug, distinct from a transient outage
// where candidates were attempted and all failed.
var ErrNoProviders = errors.New("no providers available to attempt")

// ProviderError represents a failed attempt against one backend
type ProviderError struct {
	Provider   string `json:"provider"`
	Operation  string `json:"operation"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s failed: %s", e.Provider, e.Operation, e.Message)
}

// AggregateError is the terminal failure produced when every candidate
// provider has been attempted within one orchestrated call.
type AggregateError struct {
	Attempts     int
	LastProvider string
	Err          error
}

// Error implements the error interface
func (e *AggregateError) Error() string {
	return fmt.Sprintf("all %d providers failed, last tried %s: %v", e.Attempts, e.LastProvider, e.Err)
}

// Unwrap exposes the last attempt's error for errors.Is/As
func (e *AggregateError) Unwrap() error {
	return e.Err
}

// ConfigError represents a fatal startup-time configuration problem
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new configuration error
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}
