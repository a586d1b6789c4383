package card

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/cardflow/pkg/hexutil"
)

// fakeTransport replays scripted responses and records every command.
type fakeTransport struct {
	responses [][]byte
	sent      [][]byte
	err       error
}

func (f *fakeTransport) Transmit(cmd []byte) ([]byte, error) {
	f.sent = append(f.sent, append([]byte{}, cmd...))
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return hexutil.MustBytes("9000"), nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func TestTransmitPlain(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{hexutil.MustBytes("C4 01 AA 9000")}}
	s := NewSession("test", ft, nil)

	resp, err := s.Transmit(hexutil.MustBytes("00 CA 00 6E 00"))
	require.NoError(t, err)
	assert.Equal(t, hexutil.MustBytes("C4 01 AA"), resp.Data)
	assert.Equal(t, "9000", resp.Status.Hex())
	assert.Len(t, ft.sent, 1)
}

func TestTransmitGetResponseChaining(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		hexutil.MustBytes("AABB 6104"),
		hexutil.MustBytes("CCDDEEFF 9000"),
	}}
	s := NewSession("test", ft, nil)

	resp, err := s.Transmit(hexutil.MustBytes("00 A4 04 00 00"))
	require.NoError(t, err)

	// Exactly one synthetic GET RESPONSE with Le taken from the 61XX status.
	require.Len(t, ft.sent, 2)
	assert.Equal(t, hexutil.MustBytes("00 C0 00 00 04"), ft.sent[1])
	assert.Equal(t, hexutil.MustBytes("AABB CCDDEEFF"), resp.Data)
	assert.Equal(t, "9000", resp.Status.Hex())
	assert.Len(t, s.Trace(), 2)
}

func TestTransmitChainingIsNotALoop(t *testing.T) {
	// A card that answers 61XX to the continuation as well: the session
	// must return that status instead of chasing it.
	ft := &fakeTransport{responses: [][]byte{
		hexutil.MustBytes("AA 6102"),
		hexutil.MustBytes("BB 6102"),
	}}
	s := NewSession("test", ft, nil)

	resp, err := s.Transmit(hexutil.MustBytes("00 CA 00 00 00"))
	require.NoError(t, err)
	assert.Len(t, ft.sent, 2)
	assert.Equal(t, "6102", resp.Status.Hex())
	assert.Equal(t, hexutil.MustBytes("AABB"), resp.Data)
}

func TestSelect(t *testing.T) {
	aid := hexutil.MustBytes("D27600012401030400060000")

	t.Run("Success updates state", func(t *testing.T) {
		ft := &fakeTransport{responses: [][]byte{hexutil.MustBytes("6F 00 9000")}}
		s := NewSession("test", ft, nil)

		_, err := s.Select(aid)
		require.NoError(t, err)
		assert.Equal(t, StateSelected, s.State())
		assert.Equal(t, aid, s.SelectedAID())
		require.NotNil(t, s.LastSelectResponse())

		// SELECT header: 00 A4 04 00 Lc AID
		expected := append(hexutil.MustBytes("00 A4 04 00 0C"), aid...)
		assert.True(t, bytes.Equal(expected, ft.sent[0]),
			"sent %X, expected %X", ft.sent[0], expected)
	})

	t.Run("61xx counts as success", func(t *testing.T) {
		ft := &fakeTransport{responses: [][]byte{
			hexutil.MustBytes("6108"),
			hexutil.MustBytes("6F 06 84 04 01020304 9000"),
		}}
		s := NewSession("test", ft, nil)

		resp, err := s.Select(aid)
		require.NoError(t, err)
		assert.Equal(t, StateSelected, s.State())
		assert.Equal(t, "9000", resp.Status.Hex())
	})

	t.Run("Rejection is a SelectError with the literal SW", func(t *testing.T) {
		ft := &fakeTransport{responses: [][]byte{hexutil.MustBytes("6A82")}}
		s := NewSession("test", ft, nil)

		_, err := s.Select(aid)
		var selErr *SelectError
		require.ErrorAs(t, err, &selErr)
		assert.Equal(t, "6A82", selErr.SW.Hex())
		assert.Contains(t, selErr.Error(), "6A82")
		assert.Equal(t, StateOpen, s.State())
	})
}

func TestSelectFile(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{hexutil.MustBytes("9000")}}
	s := NewSession("test", ft, nil)

	_, err := s.SelectFile(hexutil.MustBytes("2F02"))
	require.NoError(t, err)
	assert.Equal(t, hexutil.MustBytes("00 A4 00 0C 02 2F02"), ft.sent[0])
	// SelectFile does not change the applet selection.
	assert.Nil(t, s.SelectedAID())
}

func TestTransportFailure(t *testing.T) {
	ft := &fakeTransport{err: errors.New("reader unplugged")}
	s := NewSession("test", ft, nil)

	_, err := s.Transmit(hexutil.MustBytes("00 CA 00 00 00"))
	var txErr *TransmitError
	require.ErrorAs(t, err, &txErr)
}

func TestClose(t *testing.T) {
	t.Run("Invokes disconnect once and becomes closed", func(t *testing.T) {
		calls := 0
		s := NewSession("test", &fakeTransport{}, func() error {
			calls++
			return nil
		})

		s.Close()
		s.Close()
		assert.Equal(t, 1, calls, "disconnect must run exactly once")
		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("Swallows disconnect errors", func(t *testing.T) {
		s := NewSession("test", &fakeTransport{}, func() error {
			return errors.New("already gone")
		})
		s.Close() // must not panic or propagate
		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("Transmit after close fails", func(t *testing.T) {
		s := NewSession("test", &fakeTransport{}, nil)
		s.Close()

		_, err := s.Transmit(hexutil.MustBytes("00 CA 00 00 00"))
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
	})
}
