// Package algorithm declares the signature algorithm markers that
// parameterize the signing and verification capabilities in package crypto.
//
// A marker is a zero-size struct with a String method. Markers are only ever
// used as type arguments, so a capability for one algorithm family is a
// distinct type from the capability for another. Adding a family means adding
// a new marker type here (or in any other package); nothing else changes.
package algorithm

import "fmt"

// Algorithm is the constraint satisfied by every algorithm marker.
// The ~struct{} term keeps markers data-less, so each has exactly one value.
type Algorithm interface {
	~struct{}
	fmt.Stringer
}

// RSA marks the RSA signature family. It is the only family package
// signatures require today.
type RSA struct{}

// String implements fmt.Stringer.
func (RSA) String() string { return "RSA" }

// Name returns the printable name of the marker type A.
func Name[A Algorithm]() string {
	var a A
	return a.String()
}
