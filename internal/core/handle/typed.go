package handle

import "fmt"

// Typed is a Handle tagged with a resource kind. Handles of different kinds
// are different Go types and cannot be compared or assigned to each other.
type Typed[K any] struct {
	raw Handle
}

// FromRaw rebuilds a typed handle from its wire representation.
func FromRaw[K any](h Handle) Typed[K] { return Typed[K]{raw: h} }

func (t Typed[K]) Raw() Handle  { return t.raw }
func (t Typed[K]) IsZero() bool { return t.raw.IsZero() }

func (t Typed[K]) String() string {
	return fmt.Sprintf("%d:%d", t.raw.Index(), t.raw.Generation())
}
