package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// SafeASCII renders bytes as printable ASCII, replacing anything outside the
// printable range with '.'.
func SafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}

// Dump renders decoded TLV data as an indented tree for debug logs.
// Undecodable input falls back to a flat hex dump.
func Dump(data []byte) string {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return strings.ToUpper(hex.EncodeToString(data))
	}

	var sb strings.Builder
	dumpPackets(&sb, packets, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func dumpPackets(sb *strings.Builder, packets []bertlv.TLV, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range packets {
		if len(p.TLVs) > 0 {
			fmt.Fprintf(sb, "%s%s:\n", indent, strings.ToUpper(p.Tag))
			dumpPackets(sb, p.TLVs, depth+1)
			continue
		}
		fmt.Fprintf(sb, "%s%s: %s (%q)\n",
			indent, strings.ToUpper(p.Tag),
			strings.ToUpper(hex.EncodeToString(p.Value)), SafeASCII(p.Value))
	}
}
