// Package state interprets raw card responses for named state readers and
// drives their on-demand sampling over one card session.
//
// Parsing never hard-fails on malformed bytes: a truncated or unexpected
// response degrades to "N/A" or the reader's configured empty value. Status
// words that conventionally mean "nothing there yet" (6A88, 6A82) are a
// display decision, not an error: an applet without a generated key is a
// normal state the UI shows as e.g. "Not generated".
package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/iso7816"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

// NotAvailable is the display value of a response the parse rule could not
// interpret.
const NotAvailable = "N/A"

// ParsedState is the interpreted result of one state reader sample.
type ParsedState struct {
	RawHex       string
	DisplayValue string
	Success      bool
	Error        string
}

// Parse interprets a response according to the reader's parse rule.
func Parse(reader *schema.StateReader, resp *iso7816.Response) ParsedState {
	if !resp.Status.IsSuccess() {
		if resp.Status.IsNotFound() {
			return ParsedState{
				Success:      true,
				DisplayValue: emptyValue(reader),
			}
		}
		return ParsedState{
			Success: false,
			Error:   resp.Status.Verbose(),
		}
	}

	result := ParsedState{
		RawHex:  hexutil.String(resp.Data),
		Success: true,
	}
	result.DisplayValue = display(reader, resp.Data)
	return result
}

func display(reader *schema.StateReader, data []byte) string {
	rule := &reader.Parse

	switch rule.Type {
	case schema.ParseByte:
		return parseByte(reader, data)
	case schema.ParseHex:
		return parseHex(reader, data)
	case schema.ParseTLV:
		return parseTLV(reader, data)
	case schema.ParseASCII:
		return parseASCIIRule(reader, data)
	case schema.ParseOpenPGPKey:
		return parseOpenPGPKey(reader, data)
	default:
		return NotAvailable
	}
}

func parseByte(reader *schema.StateReader, data []byte) string {
	rule := &reader.Parse
	if rule.Offset < 0 || rule.Offset >= len(data) {
		return NotAvailable
	}
	b := data[rule.Offset]

	if mapped, ok := rule.DisplayMap[fmt.Sprintf("%02X", b)]; ok {
		return mapped
	}
	if rule.Template != "" {
		resolved, err := Resolve(rule.Template, strconv.Itoa(int(b)))
		if err == nil {
			return resolved
		}
	}
	return fmt.Sprintf("%02X", b)
}

func parseHex(reader *schema.StateReader, data []byte) string {
	rule := &reader.Parse
	end := rule.Offset + rule.Length
	if rule.Offset < 0 || rule.Length <= 0 || end > len(data) {
		return NotAvailable
	}
	slice := data[rule.Offset:end]

	if rule.AsInt {
		// Slices wider than the uint64 accumulator would overflow.
		if len(slice) > 8 {
			return NotAvailable
		}
		var n uint64
		for _, b := range slice {
			n = n<<8 | uint64(b)
		}
		return strconv.FormatUint(n, 10)
	}
	return hexutil.String(slice)
}

// parseTLV applies the layered display fallback: mapped/decoded value, then
// raw hex, then the first byte, then the empty sentinel.
func parseTLV(reader *schema.StateReader, data []byte) string {
	rule := &reader.Parse

	value, found := tlv.Find(rule.Tag, data)
	if !found || len(value) == 0 {
		return emptyValue(reader)
	}

	if mapped, ok := rule.DisplayMap[hexutil.String(value)]; ok {
		return mapped
	}

	if rule.ASCII {
		if s := tlv.SafeASCII(value); strings.TrimSpace(strings.ReplaceAll(s, ".", "")) != "" {
			return s
		}
		// Not printable: fall through to the hex rendering.
	}

	if hexed := hexutil.String(value); hexed != "" {
		return hexed
	}
	return fmt.Sprintf("%02X", value[0])
}

func parseASCIIRule(reader *schema.StateReader, data []byte) string {
	rule := &reader.Parse

	slice := data
	if rule.Length > 0 {
		end := rule.Offset + rule.Length
		if rule.Offset < 0 || end > len(data) {
			return NotAvailable
		}
		slice = data[rule.Offset:end]
	}

	if len(slice) == 0 {
		return emptyValue(reader)
	}
	return tlv.SafeASCII(slice)
}

func emptyValue(reader *schema.StateReader) string {
	if reader.EmptyValue != "" {
		return reader.EmptyValue
	}
	if v, ok := reader.Parse.DisplayMap[""]; ok {
		return v
	}
	return ""
}

// Resolve fills the `{value}` placeholder of a display template.
func Resolve(tmpl, value string) (string, error) {
	if !strings.Contains(tmpl, "{value}") {
		return "", fmt.Errorf("display template %q has no {value} placeholder", tmpl)
	}
	return strings.ReplaceAll(tmpl, "{value}", value), nil
}
