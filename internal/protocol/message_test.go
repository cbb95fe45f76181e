package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// unregisteredFault implements Message but is deliberately kept out of the
// gob registry, like any error type an engine invents on the fly.
type unregisteredFault struct{}

func (unregisteredFault) message()      {}
func (unregisteredFault) Error() string { return "unregistered" }

// A message whose concrete type is not registered must be reported as
// non-serializable, so the sender downgrades it to a generic Fault.
func TestRoundTripsRejectsUnregisteredType(t *testing.T) {
	t.Parallel()
	require.False(t, RoundTrips(unregisteredFault{}))
}
