package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the provider credential or the
	// recipient is missing.
	ErrNotConfigured = errors.New("media provider not configured")

	// ErrTransport marks failures that happened before the provider gave a
	// structured answer.
	ErrTransport = errors.New("media provider unreachable")
)

// ProviderError is a structured failure reported by the provider. The
// description is the provider's text, verbatim.
type ProviderError struct {
	Method      string
	Code        int
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s failed", e.Method)
	}
	return fmt.Sprintf("%s failed: %s", e.Method, e.Description)
}

// IsProviderError reports whether err carries a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
