package iso7816

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures according to ISO/IEC 7816-4.
//
// COMMAND APDU (C-APDU):
// Header CLA INS P1 P2, then an optional body: Lc + Data and/or Le.
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
//
// LENGTH MODES:
//   - Short: Lc/Le on 1 byte (max 255/256).
//   - Extended: Lc/Le on multiple bytes (max 65535/65536), triggered when
//     Lc > 255 or Le > 256. Needed for large hex_editor field payloads.
//
// RESPONSE APDU (R-APDU):
// Optional data field, then the mandatory 2-byte Status Word (SW1 SW2).

// APDU limits according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length encodable in short mode.
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length in short mode.
	// In short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the limit for Lc in extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne in extended mode. 0x0000 encodes 65536.
	MaxExtendedLe = 65536
)

// Command represents a command APDU built by the engine (SELECT, GET
// RESPONSE, template-resolved steps). Header bytes are raw: the declarative
// templates fully determine CLA/INS/P1/P2, so no structured class or
// instruction model is layered on top.
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	Ne               int // expected response length, 0 means none
}

// NewCommand creates a command APDU.
func NewCommand(cla, ins, p1, p2 byte, data []byte, ne int) *Command {
	return &Command{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data, Ne: ne}
}

// Bytes encodes the command, selecting short or extended length encoding
// from the data length and expected response length.
func (c *Command) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("command data length %d exceeds extended Lc", nc)
	}
	if ne > MaxExtendedLe {
		return nil, fmt.Errorf("expected length %d exceeds extended Le", ne)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(c.CLA)
	buf.WriteByte(c.INS)
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	isExtended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if !isExtended {
			buf.WriteByte(byte(nc))
		} else {
			// Extended Lc: 00 + 2 bytes big-endian.
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		if !isExtended {
			if ne == MaxShortLe {
				buf.WriteByte(0x00) // 0x00 encodes 256
			} else {
				buf.WriteByte(byte(ne))
			}
		} else {
			// Case 2 extended needs a leading 00 to distinguish Le from Lc.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			if ne == MaxExtendedLe {
				buf.WriteByte(0x00)
				buf.WriteByte(0x00)
			} else {
				buf.WriteByte(byte(ne >> 8))
				buf.WriteByte(byte(ne))
			}
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *Command) String() string {
	return fmt.Sprintf("CLA: %02X, INS: %02X, P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.CLA, c.INS, c.P1, c.P2, len(c.Data), c.Ne)
}

// Response represents the reply from the card (R-APDU).
type Response struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse parses raw bytes received from the card.
// The input must contain at least the two status word bytes.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	return &Response{
		Data:   raw[:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *Response) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
