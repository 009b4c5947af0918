package shared

// DomainError is a rule violation with a stable machine-readable code.
// The HTTP layer maps Code to a status and error envelope.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrNotFound is returned by repositories when no row matches.
// Compare with errors.Is.
var ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")
