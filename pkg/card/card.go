// Package card owns the stateful connection to one smart-card reader.
//
// A Session moves through three states:
//
//	Closed -> Open (after connect) -> Selected (after a successful SELECT)
//	-> Closed (on Close, reachable from every state)
//
// The session is not reentrant: callers must not issue overlapping
// operations on the same session. Exclusivity across processes comes from
// the PC/SC exclusive share mode of the adapter, not from locking here.
package card

import "github.com/ebfe/scard"

// Transport abstracts the physical card connection. The PC/SC adapter
// satisfies it in production; tests substitute scripted fakes.
type Transport interface {
	Transmit(cmd []byte) ([]byte, error)
}

// State is the lifecycle state of a Session.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Transport is satisfied by *scard.Card.
var _ Transport = (*scard.Card)(nil)
