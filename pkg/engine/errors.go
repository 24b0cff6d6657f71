package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provisioning error for reporting and exit handling.
type ErrorKind string

const (
	// KindValidation indicates malformed input, detected before any resource
	// is touched.
	KindValidation ErrorKind = "validation"

	// KindConflict indicates the target site already exists on some resource.
	KindConflict ErrorKind = "conflict"

	// KindUnavailable indicates a required backing service or tool is not
	// reachable.
	KindUnavailable ErrorKind = "unavailable"

	// KindAdapter indicates an individual resource operation failed.
	KindAdapter ErrorKind = "adapter"

	// KindConfigInvalid indicates the rendered web server configuration
	// failed syntax validation.
	KindConfigInvalid ErrorKind = "config_invalid"

	// KindNotConfirmed indicates a destructive operation was declined.
	KindNotConfirmed ErrorKind = "not_confirmed"

	// KindCompensation indicates a rollback step itself failed. These are
	// logged and attached as detail, never surfaced as the primary error.
	KindCompensation ErrorKind = "compensation"
)

// SiteError is a classified error with resource and step context.
type SiteError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Resource names the external resource involved (directory, database,
	// vhost, hosts, cms), if applicable.
	Resource string `json:"resource,omitempty"`

	// Step is the provisioning or removal step during which the error
	// occurred, if applicable.
	Step string `json:"step,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`

	// Details carries additional context, such as the list of compensated
	// steps after a rollback.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	switch {
	case e.Resource != "" && e.Step != "":
		return fmt.Sprintf("[%s] %s (resource=%s, step=%s)%s", e.Kind, e.Message, e.Resource, e.Step, e.causeSuffix())
	case e.Resource != "":
		return fmt.Sprintf("[%s] %s (resource=%s)%s", e.Kind, e.Message, e.Resource, e.causeSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Kind, e.Message, e.causeSuffix())
	}
}

func (e *SiteError) causeSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SiteError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against sentinel-style values.
func (e *SiteError) Is(target error) bool {
	t, ok := target.(*SiteError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithResource adds resource context to the error.
func (e *SiteError) WithResource(resource string) *SiteError {
	e.Resource = resource
	return e
}

// WithStep adds step context to the error.
func (e *SiteError) WithStep(step string) *SiteError {
	e.Step = step
	return e
}

// WithDetail adds a detail field to the error context.
func (e *SiteError) WithDetail(key string, value interface{}) *SiteError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *SiteError {
	return &SiteError{Kind: KindValidation, Message: message, Err: err}
}

// NewConflictError creates a conflict error for an already-occupied resource.
func NewConflictError(message string, err error) *SiteError {
	return &SiteError{Kind: KindConflict, Message: message, Err: err}
}

// NewUnavailableError creates an error for a missing backing dependency.
func NewUnavailableError(message string, err error) *SiteError {
	return &SiteError{Kind: KindUnavailable, Message: message, Err: err}
}

// NewAdapterError creates an error for a failed resource operation.
func NewAdapterError(message string, err error) *SiteError {
	return &SiteError{Kind: KindAdapter, Message: message, Err: err}
}

// NewConfigInvalidError creates an error for a web server config that failed
// syntax validation.
func NewConfigInvalidError(message string, err error) *SiteError {
	return &SiteError{Kind: KindConfigInvalid, Message: message, Err: err}
}

// NewNotConfirmedError creates an error for a declined destructive operation.
func NewNotConfirmedError(message string) *SiteError {
	return &SiteError{Kind: KindNotConfirmed, Message: message}
}

// NewCompensationError creates an error for a failed rollback step.
func NewCompensationError(message string, err error) *SiteError {
	return &SiteError{Kind: KindCompensation, Message: message, Err: err}
}

func isKind(err error, kind ErrorKind) bool {
	var e *SiteError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsValidation reports whether the error is a validation error.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsConflict reports whether the error is a conflict error.
func IsConflict(err error) bool { return isKind(err, KindConflict) }

// IsUnavailable reports whether the error is a missing-dependency error.
func IsUnavailable(err error) bool { return isKind(err, KindUnavailable) }

// IsAdapter reports whether the error is a resource operation failure.
func IsAdapter(err error) bool { return isKind(err, KindAdapter) }

// IsConfigInvalid reports whether the error is a web server config
// validation failure.
func IsConfigInvalid(err error) bool { return isKind(err, KindConfigInvalid) }

// IsNotConfirmed reports whether the error is a declined confirmation.
func IsNotConfirmed(err error) bool { return isKind(err, KindNotConfirmed) }
