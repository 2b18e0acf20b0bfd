/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrAlreadyExists is returned when attempting to insert a document whose identifier is taken
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrConfiguration marks a programming error in a context model or class map
	ErrConfiguration = errors.New("invalid mapping configuration")
)

// AlreadyExistsError represents an error when a document identifier is already taken
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ConfigurationError is raised, by panic, while a context model is mapped.
// It is never returned from a storage operation.
type ConfigurationError struct {
	Model   string
	Set     string
	Message string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Model != "" && e.Set != "":
		return fmt.Sprintf("mapping %s.%s: %s", e.Model, e.Set, e.Message)
	case e.Model != "":
		return fmt.Sprintf("mapping %s: %s", e.Model, e.Message)
	}
	return fmt.Sprintf("mapping: %s", e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Helper functions for creating errors

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(model, set, message string) error {
	return &ConfigurationError{Model: model, Set: set, Message: message}
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsConfiguration checks if an error is a mapping configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
