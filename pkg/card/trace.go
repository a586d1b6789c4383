package card

import "github.com/gregLibert/cardflow/pkg/iso7816"

// A Transaction is the atomic unit of ISO 7816-3 communication: one command
// APDU sent by the host, one response APDU sent back by the card.
//
// A Trace is the chronological sequence of transactions a session performed.
// A single logical operation may span two transactions when the card answers
// 61XX and the session issues the GET RESPONSE continuation; the trace keeps
// both, which is what the debug log and the tests inspect.

// Transaction represents a completed command-response pair.
type Transaction struct {
	Command  []byte
	Response *iso7816.Response
}

// Trace is a sequence of transactions.
type Trace []Transaction

// Last returns the final transaction of the trace, nil if empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}
