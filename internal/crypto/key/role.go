// Package key declares the key-role markers Secret and Public.
//
// Roles document which side of a key pair a holder carries. The signing and
// verification capabilities are deliberately not parameterized by role: a
// role is an emergent property of which concrete type implements Signing
// (secret material) or Verifying (public material). Holders advertise their
// role through a Role method so call sites can ask for one explicitly.
package key

import "fmt"

// Role is the constraint satisfied by key-role markers: data-less, so copies
// are free, and printable.
type Role interface {
	~struct{}
	fmt.Stringer
}

// Secret marks a key that must not be shared with any other party under any
// circumstance.
type Secret struct{}

// Public marks a key that may be published.
type Public struct{}

// String implements fmt.Stringer.
func (Secret) String() string { return "secret" }

// String implements fmt.Stringer.
func (Public) String() string { return "public" }

// Holder is implemented by key holders that declare their role.
//
//	func publish(h key.Holder[key.Public]) { ... }
type Holder[R Role] interface {
	Role() R
}

// Name returns the printable name of the role marker type R.
func Name[R Role]() string {
	var r R
	return r.String()
}
