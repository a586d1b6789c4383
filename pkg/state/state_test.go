package state

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/iso7816"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

func response(t *testing.T, parts ...string) *iso7816.Response {
	t.Helper()
	resp, err := iso7816.ParseResponse(hexutil.MustBytes(parts...))
	require.NoError(t, err)
	return resp
}

func TestParseNotFoundStatus(t *testing.T) {
	t.Run("6A88 with configured empty display", func(t *testing.T) {
		reader := &schema.StateReader{
			ID:    "signature_key",
			APDU:  "00CA006E00",
			Parse: schema.ParseRule{Type: schema.ParseOpenPGPKey, DisplayMap: map[string]string{"": "Not generated"}},
		}

		parsed := Parse(reader, response(t, "6A88"))
		assert.True(t, parsed.Success, "not-found status is not an error")
		assert.Equal(t, "Not generated", parsed.DisplayValue)
		assert.Empty(t, parsed.Error)
	})

	t.Run("6A82 uses the reader empty value", func(t *testing.T) {
		reader := &schema.StateReader{
			ID:         "cardholder",
			APDU:       "00CA006500",
			Parse:      schema.ParseRule{Type: schema.ParseTLV, Tag: "5B"},
			EmptyValue: "-",
		}

		parsed := Parse(reader, response(t, "6A82"))
		assert.True(t, parsed.Success)
		assert.Equal(t, "-", parsed.DisplayValue)
	})

	t.Run("Other error statuses surface the literal SW", func(t *testing.T) {
		reader := &schema.StateReader{
			ID:    "r",
			APDU:  "00CA006500",
			Parse: schema.ParseRule{Type: schema.ParseByte},
		}

		parsed := Parse(reader, response(t, "6982"))
		assert.False(t, parsed.Success)
		assert.Contains(t, parsed.Error, "6982")
	})
}

func TestParseByte(t *testing.T) {
	reader := &schema.StateReader{
		Parse: schema.ParseRule{
			Type:     schema.ParseByte,
			Offset:   4,
			Template: "{value} tries",
		},
	}

	t.Run("Template formatting", func(t *testing.T) {
		parsed := Parse(reader, response(t, "00 11 22 33 03 9000"))
		assert.Equal(t, "3 tries", parsed.DisplayValue)
		assert.Equal(t, "0011223303", parsed.RawHex)
		assert.True(t, parsed.Success)
	})

	t.Run("Display map wins over template", func(t *testing.T) {
		mapped := &schema.StateReader{
			Parse: schema.ParseRule{
				Type:       schema.ParseByte,
				Offset:     0,
				DisplayMap: map[string]string{"00": "Disabled", "01": "Enabled"},
			},
		}
		parsed := Parse(mapped, response(t, "01 9000"))
		assert.Equal(t, "Enabled", parsed.DisplayValue)
	})

	t.Run("Offset out of range recovers to N/A", func(t *testing.T) {
		parsed := Parse(reader, response(t, "00 9000"))
		assert.True(t, parsed.Success)
		assert.Equal(t, NotAvailable, parsed.DisplayValue)
	})
}

func TestParseHex(t *testing.T) {
	t.Run("Plain slice", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseHex, Offset: 1, Length: 2},
		}
		parsed := Parse(reader, response(t, "00 CAFE 00 9000"))
		assert.Equal(t, "CAFE", parsed.DisplayValue)
	})

	t.Run("Integer formatting", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseHex, Offset: 0, Length: 2, AsInt: true},
		}
		parsed := Parse(reader, response(t, "0100 9000"))
		assert.Equal(t, "256", parsed.DisplayValue)
	})

	t.Run("Integer wider than uint64 recovers to N/A", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseHex, Offset: 0, Length: 9, AsInt: true},
		}
		parsed := Parse(reader, response(t, "FF0000000000000001 9000"))
		assert.Equal(t, NotAvailable, parsed.DisplayValue)
	})

	t.Run("Slice beyond data recovers to N/A", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseHex, Offset: 2, Length: 4},
		}
		parsed := Parse(reader, response(t, "AABB 9000"))
		assert.Equal(t, NotAvailable, parsed.DisplayValue)
	})
}

func TestParseTLV(t *testing.T) {
	t.Run("ASCII decode", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseTLV, Tag: "5B", ASCII: true},
		}
		parsed := Parse(reader, response(t, "5B 05 416C696365 9000"))
		assert.Equal(t, "Alice", parsed.DisplayValue)
	})

	t.Run("Raw hex when ascii is off", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseTLV, Tag: "C4"},
		}
		parsed := Parse(reader, response(t, "C4 03 010203 9000"))
		assert.Equal(t, "010203", parsed.DisplayValue)
	})

	t.Run("Display map over the value hex", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{
				Type:       schema.ParseTLV,
				Tag:        "C4",
				DisplayMap: map[string]string{"01": "On", "00": "Off"},
			},
		}
		parsed := Parse(reader, response(t, "C4 01 01 9000"))
		assert.Equal(t, "On", parsed.DisplayValue)
	})

	t.Run("Unprintable ascii falls back to hex", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseTLV, Tag: "5B", ASCII: true},
		}
		parsed := Parse(reader, response(t, "5B 02 0102 9000"))
		assert.Equal(t, "0102", parsed.DisplayValue)
	})

	t.Run("Absent tag yields the empty sentinel", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse:      schema.ParseRule{Type: schema.ParseTLV, Tag: "5B"},
			EmptyValue: "(none)",
		}
		parsed := Parse(reader, response(t, "C4 01 AA 9000"))
		assert.True(t, parsed.Success)
		assert.Equal(t, "(none)", parsed.DisplayValue)
	})

	t.Run("Zero-length value yields the empty sentinel", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse:      schema.ParseRule{Type: schema.ParseTLV, Tag: "5B"},
			EmptyValue: "(none)",
		}
		parsed := Parse(reader, response(t, "5B 00 9000"))
		assert.Equal(t, "(none)", parsed.DisplayValue)
	})

	t.Run("Nested tag inside a template", func(t *testing.T) {
		reader := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseTLV, Tag: "88"},
		}
		parsed := Parse(reader, response(t, "6F 04 88 02 1234 9000"))
		assert.Equal(t, "1234", parsed.DisplayValue)
	})
}

func TestParseASCII(t *testing.T) {
	reader := &schema.StateReader{
		Parse:      schema.ParseRule{Type: schema.ParseASCII},
		EmptyValue: "(empty)",
	}

	t.Run("Whole data as text", func(t *testing.T) {
		parsed := Parse(reader, response(t, "404142 9000"))
		assert.Equal(t, "@AB", parsed.DisplayValue)
	})

	t.Run("Empty data yields the sentinel", func(t *testing.T) {
		parsed := Parse(reader, response(t, "9000"))
		assert.Equal(t, "(empty)", parsed.DisplayValue)
	})

	t.Run("Sliced text", func(t *testing.T) {
		sliced := &schema.StateReader{
			Parse: schema.ParseRule{Type: schema.ParseASCII, Offset: 1, Length: 2},
		}
		parsed := Parse(sliced, response(t, "00 4869 00 9000"))
		assert.Equal(t, "Hi", parsed.DisplayValue)
	})
}

func TestParseOpenPGPKey(t *testing.T) {
	reader := &schema.StateReader{
		Parse:      schema.ParseRule{Type: schema.ParseOpenPGPKey},
		EmptyValue: "Not generated",
	}

	t.Run("RSA 2048 modulus", func(t *testing.T) {
		modulus := bytes.Repeat([]byte{0xA5}, 256)
		inner, err := tlv.Encode("81", modulus)
		require.NoError(t, err)
		outer, err := tlv.Encode("7F49", inner)
		require.NoError(t, err)

		parsed := Parse(reader, response(t, hexutil.String(outer), "9000"))
		assert.Equal(t, "RSA-2048", parsed.DisplayValue)
	})

	t.Run("RSA 4096 with leading zero byte", func(t *testing.T) {
		modulus := bytes.Repeat([]byte{0xA5}, 513)
		inner, err := tlv.Encode("81", modulus)
		require.NoError(t, err)
		outer, err := tlv.Encode("7F49", inner)
		require.NoError(t, err)

		parsed := Parse(reader, response(t, hexutil.String(outer), "9000"))
		assert.Equal(t, "RSA-4096", parsed.DisplayValue)
	})

	t.Run("EC P-256 point", func(t *testing.T) {
		point := append([]byte{0x04}, bytes.Repeat([]byte{0x11}, 64)...)
		inner, err := tlv.Encode("86", point)
		require.NoError(t, err)
		outer, err := tlv.Encode("7F49", inner)
		require.NoError(t, err)

		parsed := Parse(reader, response(t, hexutil.String(outer), "9000"))
		assert.Equal(t, "EC-256", parsed.DisplayValue)
	})

	t.Run("EC P-521 point", func(t *testing.T) {
		point := append([]byte{0x04}, bytes.Repeat([]byte{0x11}, 132)...)
		inner, err := tlv.Encode("86", point)
		require.NoError(t, err)
		outer, err := tlv.Encode("7F49", inner)
		require.NoError(t, err)

		parsed := Parse(reader, response(t, hexutil.String(outer), "9000"))
		assert.Equal(t, "EC-521", parsed.DisplayValue)
	})

	t.Run("Missing template yields the sentinel", func(t *testing.T) {
		parsed := Parse(reader, response(t, "C4 01 AA 9000"))
		assert.Equal(t, "Not generated", parsed.DisplayValue)
	})
}
