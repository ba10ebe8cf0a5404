// Package errors provides custom error types for the speakerpool system.
// These errors separate session level failures from per-artifact problems
// and let callers check error classes with errors.Is and errors.As.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As re-export the standard library matchers.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the speakerpool system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCredentialRequired indicates that a bearer credential is required but not available
	ErrCredentialRequired = errors.New("credential required")

	// ErrCredentialInvalid indicates that the credential was rejected or could not be parsed
	ErrCredentialInvalid = errors.New("credential invalid")

	// ErrForbidden indicates that the caller lacks the privileges for an operation
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates that the remote store is temporarily unavailable
	ErrUnavailable = errors.New("store unavailable")

	// ErrEmptyArtifact marks the `{}` sentinel: already consumed or never populated
	ErrEmptyArtifact = errors.New("empty delta artifact")

	// ErrInvalidArtifact indicates a delta artifact that cannot be attributed to a speaker
	ErrInvalidArtifact = errors.New("invalid delta artifact")

	// ErrUnknownSpeaker indicates that a delta references a speaker that does not exist
	ErrUnknownSpeaker = errors.New("referenced speaker does not exist")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IdentityError is returned when a delta names a speaker that is not in the store
// and the merge mode does not allow creation.
type IdentityError struct {
	Field string // "id" or "uniqueId"
	Value string
}

// Error implements the error interface
func (e *IdentityError) Error() string {
	return fmt.Sprintf("referenced speaker does not exist: no speaker with %s %q", e.Field, e.Value)
}

// Is implements errors.Is support
func (e *IdentityError) Is(target error) bool {
	return target == ErrUnknownSpeaker || target == ErrNotFound
}

// AlreadyExistsError represents an attempt to create a resource that exists
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an unexpected response from the remote store
type APIError struct {
	Store      string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Store, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Store, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode == 401:
		return target == ErrCredentialInvalid
	case e.StatusCode == 403:
		return target == ErrForbidden
	case e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(store string, statusCode int, message string) *APIError {
	return &APIError{
		Store:      store,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MergeError represents a delta that could not be merged into the store
type MergeError struct {
	Artifact string
	Mode     string
	Err      error
}

// Error implements the error interface
func (e *MergeError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("merge (%s) of %s failed: %v", e.Mode, e.Artifact, e.Err)
	}
	return fmt.Sprintf("merge (%s) failed: %v", e.Mode, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError creates a new MergeError
func NewMergeError(artifact, mode string, err error) *MergeError {
	return &MergeError{
		Artifact: artifact,
		Mode:     mode,
		Err:      err,
	}
}

// LoadError marks a session level failure: the canonical collection could not be
// loaded and no speakers are available.
type LoadError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("speaker directory failed to load from %s: %v", e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCredentialError checks if an error is related to the bearer credential
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialRequired) || errors.Is(err, ErrCredentialInvalid)
}

// IsUnknownSpeaker checks if an error is an identity error
func IsUnknownSpeaker(err error) bool {
	return errors.Is(err, ErrUnknownSpeaker)
}

// IsLoadError checks if an error is a session level load failure
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "jwt"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "get", "put", "list", "read", "write"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "load", "save", "register", "publish"
	Resource  string // "speaker", "canonical", "delta"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents an authentication/authorization error
type AuthenticationError struct {
	Store   string
	Method  string // "bearer", "jwt"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Store, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialRequired || target == ErrCredentialInvalid
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(store, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Store:   store,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(store string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Store:      store,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
