package iso7816

// Instruction codes used by the engine's built-in commands.
const (
	INS_SELECT       byte = 0xA4
	INS_GET_RESPONSE byte = 0xC0
)

// SELECT parameters (ISO 7816-4 tables 39/40):
//   - P1=04: select by DF name (AID), P2=00: first occurrence, return FCI.
//   - P1=00: select by file identifier, P2=0C: no response data requested,
//     the form OpenPGP-style applets expect for internal EFs.

// SelectByAID builds `00 A4 04 00 Lc AID`.
func SelectByAID(aid []byte) *Command {
	return NewCommand(0x00, INS_SELECT, 0x04, 0x00, aid, 0)
}

// SelectFile builds `00 A4 00 0C Lc fileID`.
func SelectFile(fileID []byte) *Command {
	return NewCommand(0x00, INS_SELECT, 0x00, 0x0C, fileID, 0)
}

// GetResponse builds `00 C0 00 00 Le` for a 61XX continuation.
// A 6100 status means at least 256 bytes are waiting, so Le becomes 256
// (encoded as 00).
func GetResponse(le int) *Command {
	if le == 0 {
		le = MaxShortLe
	}
	return NewCommand(0x00, INS_GET_RESPONSE, 0x00, 0x00, nil, le)
}
