package card

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/iso7816"
)

// Session drives one exclusive reader connection. It applies the single
// protocol behavior the engine handles transparently: a 61XX status triggers
// exactly one GET RESPONSE continuation, and the concatenated data is
// returned. Everything else, including the success check against a workflow
// step's allow-list, is the caller's business.
type Session struct {
	reader     string
	transport  Transport
	disconnect func() error

	state       State
	selectedAID []byte
	lastSelect  *iso7816.Response
	trace       Trace

	log *logrus.Entry
}

// NewSession wraps an open transport. disconnect may be nil; when set it is
// invoked once by Close.
func NewSession(reader string, transport Transport, disconnect func() error) *Session {
	return &Session{
		reader:     reader,
		transport:  transport,
		disconnect: disconnect,
		state:      StateOpen,
		log:        logrus.WithField("reader", reader),
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Reader returns the reader name the session is bound to.
func (s *Session) Reader() string {
	return s.reader
}

// SelectedAID returns the AID of the currently selected applet, nil when no
// SELECT succeeded yet.
func (s *Session) SelectedAID() []byte {
	return s.selectedAID
}

// LastSelectResponse returns the raw response of the most recent successful
// SELECT (the FCI when the card returns one).
func (s *Session) LastSelectResponse() *iso7816.Response {
	return s.lastSelect
}

// Trace returns the full transaction history of the session.
func (s *Session) Trace() Trace {
	return s.trace
}

// Select issues `00 A4 04 00 Lc AID`. Success is SW 9000 or 61XX; anything
// else is a SelectError carrying the literal status word.
func (s *Session) Select(aid []byte) (*iso7816.Response, error) {
	return s.doSelect(iso7816.SelectByAID(aid), hexutil.String(aid), aid)
}

// SelectFile issues `00 A4 00 0C Lc fileID` for readers that target an
// internal elementary file before sampling it.
func (s *Session) SelectFile(fileID []byte) (*iso7816.Response, error) {
	return s.doSelect(iso7816.SelectFile(fileID), hexutil.String(fileID), nil)
}

func (s *Session) doSelect(cmd *iso7816.Command, target string, aid []byte) (*iso7816.Response, error) {
	resp, err := s.TransmitCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Status.IsSuccess() {
		s.log.WithField("sw", resp.Status.Hex()).Debug("selection rejected")
		return nil, &SelectError{Target: target, SW: resp.Status}
	}

	s.state = StateSelected
	if aid != nil {
		s.selectedAID = aid
	}
	s.lastSelect = resp
	return resp, nil
}

// TransmitCommand encodes and transmits a command APDU.
func (s *Session) TransmitCommand(cmd *iso7816.Command) (*iso7816.Response, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, err
	}
	return s.Transmit(raw)
}

// Transmit sends a raw APDU and returns the parsed response. On 61XX it
// issues one `00 C0 00 00 Le` GET RESPONSE and returns the concatenation of
// both data fields with the continuation's status word.
func (s *Session) Transmit(raw []byte) (*iso7816.Response, error) {
	if s.state == StateClosed {
		return nil, &ConnectionError{Reader: s.reader, Err: errors.New("session is closed")}
	}

	resp, err := s.exchange(raw)
	if err != nil {
		return nil, err
	}

	if !resp.Status.HasMoreData() {
		return resp, nil
	}

	// One continuation, never a loop: a card that keeps answering 61XX
	// after its own announced length is misbehaving and gets reported as-is.
	getResp, err := iso7816.GetResponse(resp.Status.BytesAvailable()).Bytes()
	if err != nil {
		return nil, err
	}

	cont, err := s.exchange(getResp)
	if err != nil {
		return nil, err
	}

	return &iso7816.Response{
		Data:   append(append([]byte{}, resp.Data...), cont.Data...),
		Status: cont.Status,
	}, nil
}

func (s *Session) exchange(raw []byte) (*iso7816.Response, error) {
	rawResp, err := s.transport.Transmit(raw)
	if err != nil {
		return nil, &TransmitError{Err: err}
	}

	resp, err := iso7816.ParseResponse(rawResp)
	if err != nil {
		return nil, &TransmitError{Err: err}
	}

	s.trace = append(s.trace, Transaction{Command: raw, Response: resp})
	s.log.WithFields(logrus.Fields{
		"apdu": hexutil.String(raw),
		"sw":   resp.Status.Hex(),
		"len":  len(resp.Data),
	}).Debug("exchange")

	return resp, nil
}

// Close releases the connection. It is idempotent, reachable from every
// state, and swallows disconnect failures so that a close on an error path
// never masks the original error.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.selectedAID = nil

	if s.disconnect == nil {
		return
	}
	if err := s.disconnect(); err != nil {
		s.log.WithError(err).Warn("disconnect failed")
	}
}
