package crypto

import (
	"fmt"
	"strings"

	"github.com/cmeister2/fez/internal/crypto/algorithm"
)

// Compile-time type assertions.
var (
	_ Signing[algorithm.RSA, []byte] = Absent[algorithm.RSA]{}
	_ Verifying[algorithm.RSA]       = Absent[algorithm.RSA]{}
)

// Absent stands in for a capability that was deliberately not configured,
// such as the verifier of a sign-only pipeline. It satisfies Signing and
// Verifying for any algorithm so such a pipeline still type-checks.
//
// Note: Sign and Verify always panic with a *NotConfiguredError. Reaching
// them is a bug at the call site, not a data error. A missing key in a real
// backend is an ordinary error and must not be modelled with Absent.
type Absent[A algorithm.Algorithm] struct{}

// String implements fmt.Stringer.
func (Absent[A]) String() string {
	return "absent " + algorithm.Name[A]() + " capability"
}

// Algorithm returns the marker value for A.
func (Absent[A]) Algorithm() A {
	var a A
	return a
}

// Sign always panics.
func (Absent[A]) Sign([]byte) ([]byte, error) {
	panic(&NotConfiguredError{
		Capability: "Signing",
		Operation:  "Sign",
		Algorithm:  algorithm.Name[A](),
	})
}

// Verify always panics.
func (Absent[A]) Verify([]byte, []byte) error {
	panic(&NotConfiguredError{
		Capability: "Verifying",
		Operation:  "Verify",
		Algorithm:  algorithm.Name[A](),
	})
}

// NotConfiguredError is the panic value raised when an Absent capability is
// invoked. It is never returned as an error.
type NotConfiguredError struct {
	// Capability is the interface name, Signing or Verifying.
	Capability string
	// Operation is the method that was invoked.
	Operation string
	// Algorithm is the name of the algorithm marker.
	Algorithm string
}

// Error implements the error interface.
func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("crypto: %s called on absent %s[%s] capability: to %s, configure an implementation of %s",
		e.Operation, e.Capability, e.Algorithm, strings.ToLower(e.Operation), e.Capability)
}
