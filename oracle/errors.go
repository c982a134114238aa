package oracle

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnauthorized is returned by owner-gated operations when the caller
// is not the contract owner. The call aborts with no state mutation.
var ErrUnauthorized = errors.New("unauthorized: only owner")

// InsufficientSourcesError is returned by GetPrice while the distinct
// source count is below the configured quorum.
type InsufficientSourcesError struct {
	Required int
	Actual   int
}

func (e *InsufficientSourcesError) Error() string {
	return fmt.Sprintf("need at least %d price sources, have %d", e.Required, e.Actual)
}

// IsInsufficientSources reports whether err is an InsufficientSourcesError.
func IsInsufficientSources(err error) bool {
	var target *InsufficientSourcesError
	return errors.As(err, &target)
}
