package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// kind marks the package-level sentinels that match any error of their code
	kind bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is lets errors.Is match a specific domain error against the common
// sentinel of its code, e.g. errors.Is(err, ErrNotFound)
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e == t || (t.kind && e.Code == t.Code)
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

func newKind(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, kind: true}
}

// Common domain errors
var (
	ErrNotFound      = newKind("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = newKind("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = newKind("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = newKind("INVALID_STATE", "Operation not allowed in current state")
)

// Validation error codes used by domain validation
const (
	CodeValidationRequired = "VALIDATION_REQUIRED"
	CodeValidationFormat   = "VALIDATION_FORMAT"
	CodeValidationRange    = "VALIDATION_RANGE"
)
