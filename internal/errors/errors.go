package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnknownIdentity indicates a lookup by an id or unit that is not registered.
	// Raised as a panic: callers must only look up identities they know exist.
	UnknownIdentity ErrorCode = "UNKNOWN_IDENTITY"
	// MalformedRecord indicates persisted analysis bytes could not be decoded
	MalformedRecord ErrorCode = "MALFORMED_RECORD"
	// StorageUnavailable indicates a storage backend call failed
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// AnalysisNotFound indicates no trustworthy analysis is persisted
	AnalysisNotFound ErrorCode = "ANALYSIS_NOT_FOUND"
	// InvariantViolation indicates an internal invariant broke (merge renumbering, dangling ids)
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// CollectorFailed indicates the collector could not scan units or facts
	CollectorFailed ErrorCode = "COLLECTOR_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// TiaError represents an error with a stable code, message, and suggestions
type TiaError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a TiaError with the suggested fixes registered for its code
func New(code ErrorCode, message string, cause error) *TiaError {
	return &TiaError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a TiaError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *TiaError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *TiaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TiaError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TiaError) WithDetails(details interface{}) *TiaError {
	e.Details = details
	return e
}

// Is reports whether any error in err's chain is a TiaError with the given code.
func Is(err error, code ErrorCode) bool {
	var te *TiaError
	for err != nil {
		if !stderrors.As(err, &te) {
			return false
		}
		if te.Code == code {
			return true
		}
		err = te.cause
	}
	return false
}

// CodeOf returns the code of the first TiaError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var te *TiaError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MalformedRecord: {
		{
			Type:        RunCommand,
			Command:     "tia finish",
			Safe:        true,
			Description: "Rebuild the analysis from a fresh test run; the corrupt record is ignored",
		},
	},
	AnalysisNotFound: {
		{
			Type:        RunCommand,
			Command:     "tia finish",
			Safe:        true,
			Description: "Record test facts and persist a first analysis",
		},
	},
	StorageUnavailable: {
		{
			Type:        RunCommand,
			Command:     "tia status",
			Safe:        true,
			Description: "Check the configured storage backend",
		},
	},
	ConfigInvalid: {
		{
			Type:        OpenDocs,
			Description: "Review .tia/config.json",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
