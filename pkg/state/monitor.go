package state

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardflow/pkg/card"
	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

// Monitor samples a plugin's state readers over one card session. Samples
// are cached until the next refresh, so a UI can re-render freely without
// touching the card. The monitor issues one transmission at a time and is
// not safe for concurrent use, like everything sharing a session.
type Monitor struct {
	session *card.Session
	readers []schema.StateReader
	cache   map[string]ParsedState
	log     *logrus.Entry
}

// NewMonitor creates a monitor over the management readers of a plugin.
func NewMonitor(session *card.Session, readers []schema.StateReader) *Monitor {
	return &Monitor{
		session: session,
		readers: readers,
		cache:   make(map[string]ParsedState),
		log:     logrus.WithField("component", "state-monitor"),
	}
}

// Read returns the cached sample for a reader, refreshing on first access.
func (m *Monitor) Read(id string) (ParsedState, error) {
	if cached, ok := m.cache[id]; ok {
		return cached, nil
	}
	return m.Refresh(id)
}

// Refresh re-samples one reader: optional SELECT of its target file, the
// configured APDU, then the parse rule.
func (m *Monitor) Refresh(id string) (ParsedState, error) {
	reader := m.find(id)
	if reader == nil {
		return ParsedState{}, fmt.Errorf("unknown state reader %q", id)
	}

	if reader.SelectFile != "" {
		fileID, err := hexutil.Bytes(reader.SelectFile)
		if err != nil {
			return ParsedState{}, fmt.Errorf("state reader %s: select_file %q is not hex", id, reader.SelectFile)
		}
		if _, err := m.session.SelectFile(fileID); err != nil {
			return ParsedState{}, err
		}
	}

	apdu, err := hexutil.Bytes(reader.APDU)
	if err != nil {
		return ParsedState{}, fmt.Errorf("state reader %s: apdu %q is not hex", id, reader.APDU)
	}

	resp, err := m.session.Transmit(apdu)
	if err != nil {
		return ParsedState{}, err
	}

	parsed := Parse(reader, resp)
	m.log.WithFields(logrus.Fields{
		"reader":  id,
		"sw":      resp.Status.Hex(),
		"display": parsed.DisplayValue,
	}).Debug("state sampled")
	if len(resp.Data) > 0 {
		m.log.WithField("reader", id).Tracef("response:\n%s", tlv.Dump(resp.Data))
	}

	m.cache[id] = parsed
	return parsed, nil
}

// RefreshAll re-samples every reader, keeping per-reader failures inside
// the returned states instead of aborting the sweep.
func (m *Monitor) RefreshAll() map[string]ParsedState {
	results := make(map[string]ParsedState, len(m.readers))
	for i := range m.readers {
		id := m.readers[i].ID
		parsed, err := m.Refresh(id)
		if err != nil {
			parsed = ParsedState{Success: false, Error: err.Error()}
			m.cache[id] = parsed
		}
		results[id] = parsed
	}
	return results
}

// Invalidate drops every cached sample.
func (m *Monitor) Invalidate() {
	m.cache = make(map[string]ParsedState)
}

func (m *Monitor) find(id string) *schema.StateReader {
	for i := range m.readers {
		if m.readers[i].ID == id {
			return &m.readers[i]
		}
	}
	return nil
}
