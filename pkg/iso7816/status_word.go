package iso7816

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/hexutil"
)

// Dynamic Status Word logic:
//
// Most Status Words (SW) are static 2-byte values (e.g. 0x9000), but ISO
// 7816-4 defines ranges where the value carries context:
//
// 1. '61XX' (SW1=0x61): Process completed, XX more response bytes are
//    available via GET RESPONSE.
// 2. '6CXX' (SW1=0x6C): Wrong length, XX is the correct Le.
// 3. '63CX': Counter warning. The low nibble of SW2 is a counter value,
//    typically the remaining PIN retries.

// StatusWord represents the two-byte status (SW1-SW2) ending every response.
type StatusWord uint16

// NewStatusWord creates a StatusWord from its two bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// ParseStatusWord decodes a 4-digit hex status word ("9000", "6A88").
func ParseStatusWord(s string) (StatusWord, error) {
	raw, err := hexutil.Bytes(s)
	if err != nil || len(raw) != 2 {
		return 0, fmt.Errorf("invalid status word %q", s)
	}
	return NewStatusWord(raw[0], raw[1]), nil
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// Hex returns the canonical 4-digit representation used in messages and
// allow-lists.
func (sw StatusWord) Hex() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// IsSuccess returns true for 9000 or 61XX (data available).
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR || sw.HasMoreData()
}

// HasMoreData returns true for 61XX responses.
func (sw StatusWord) HasMoreData() bool {
	return sw.SW1() == 0x61
}

// BytesAvailable returns the XX of a 61XX status, 0 otherwise.
func (sw StatusWord) BytesAvailable() int {
	if !sw.HasMoreData() {
		return 0
	}
	return int(sw.SW2())
}

// IsNotFound reports the status words conventionally meaning "the referenced
// data or file does not exist on the card". State readers translate these to
// their configured empty display value instead of an error.
func (sw StatusWord) IsNotFound() bool {
	return sw == SW_ERR_REF_DATA_NOT_FOUND ||
		sw == SW_ERR_FILE_NOT_FOUND ||
		sw == SW_ERR_RECORD_NOT_FOUND
}

// IsRetryCounter checks if the status carries a verification retry counter
// (63CX form).
func (sw StatusWord) IsRetryCounter() bool {
	if sw.SW1() != 0x63 {
		return false
	}
	return hexutil.GetRange(sw.SW2(), 8, 5) == 0x0C
}

// RetryCount returns the counter of a 63CX status, -1 otherwise.
func (sw StatusWord) RetryCount() int {
	if !sw.IsRetryCounter() {
		return -1
	}
	return int(hexutil.GetRange(sw.SW2(), 4, 1))
}

// Verbose returns a human-readable description, prioritizing the dynamic
// ISO forms over the static catalogue.
func (sw StatusWord) Verbose() string {
	sw1 := sw.SW1()
	sw2 := sw.SW2()

	if sw1 == 0x61 {
		return fmt.Sprintf("Process completed, %d bytes available", sw2)
	}

	if sw1 == 0x6C {
		return fmt.Sprintf("Wrong length, correct Le is %d", sw2)
	}

	if sw.IsRetryCounter() {
		return fmt.Sprintf("Warning: verification failed, %d retries left", sw.RetryCount())
	}

	if desc, ok := statusDescriptions[sw]; ok {
		return fmt.Sprintf("[%s] %s", sw.Hex(), desc)
	}

	return fmt.Sprintf("[%s] %s", sw.Hex(), sw.categoryDescription())
}

// categoryDescription provides a fallback description based on SW1.
func (sw StatusWord) categoryDescription() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x66:
		return "Execution Error: Security issue"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Standard Status Word codes defined in ISO/IEC 7816-4.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_NO_INFO           StatusWord = 0x6200
	SW_WARN_DATA_CORRUPTED    StatusWord = 0x6281
	SW_WARN_EOF_REACHED       StatusWord = 0x6282
	SW_WARN_FILE_DEACTIVATED  StatusWord = 0x6283
	SW_WARN_TERMINATION_STATE StatusWord = 0x6285

	SW_WARN_NV_CHANGED_NO_INFO StatusWord = 0x6300
	SW_WARN_COUNTER_0          StatusWord = 0x63C0

	SW_ERR_MEMORY_FAILURE StatusWord = 0x6581
	SW_ERR_SECURITY_ISSUE StatusWord = 0x6600
	SW_ERR_WRONG_LENGTH   StatusWord = 0x6700

	SW_ERR_LOGICAL_CHANNEL_NOT_SUPP  StatusWord = 0x6881
	SW_ERR_SECURE_MESSAGING_NOT_SUPP StatusWord = 0x6882

	SW_ERR_CMD_NOT_ALLOWED_NO_INFO StatusWord = 0x6900
	SW_ERR_CMD_INCOMPATIBLE_FILE   StatusWord = 0x6981
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_AUTH_METHOD_BLOCKED     StatusWord = 0x6983
	SW_ERR_REF_DATA_NOT_USABLE     StatusWord = 0x6984
	SW_ERR_COND_OF_USE_NOT_SAT     StatusWord = 0x6985

	SW_ERR_WRONG_PARAMS_NO_INFO   StatusWord = 0x6A00
	SW_ERR_INCORRECT_PARAMS_DATA  StatusWord = 0x6A80
	SW_ERR_FUNC_NOT_SUPPORTED     StatusWord = 0x6A81
	SW_ERR_FILE_NOT_FOUND         StatusWord = 0x6A82
	SW_ERR_RECORD_NOT_FOUND       StatusWord = 0x6A83
	SW_ERR_NOT_ENOUGH_MEMORY      StatusWord = 0x6A84
	SW_ERR_INCORRECT_PARAMS_P1P2  StatusWord = 0x6A86
	SW_ERR_REF_DATA_NOT_FOUND     StatusWord = 0x6A88
	SW_ERR_FILE_ALREADY_EXISTS    StatusWord = 0x6A89
	SW_ERR_DF_NAME_ALREADY_EXISTS StatusWord = 0x6A8A

	SW_ERR_WRONG_P1P2        StatusWord = 0x6B00
	SW_ERR_INS_INVALID       StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED StatusWord = 0x6E00
	SW_ERR_UNKNOWN           StatusWord = 0x6F00
)

var statusDescriptions = map[StatusWord]string{
	SW_NO_ERROR: "No error",

	SW_WARN_NO_INFO:           "Warning: no information given",
	SW_WARN_DATA_CORRUPTED:    "Warning: returned data may be corrupted",
	SW_WARN_EOF_REACHED:       "Warning: end of file reached before reading Le bytes",
	SW_WARN_FILE_DEACTIVATED:  "Warning: selected file deactivated",
	SW_WARN_TERMINATION_STATE: "Warning: selected file in termination state",

	SW_WARN_NV_CHANGED_NO_INFO: "Warning: NV memory changed",
	SW_WARN_COUNTER_0:          "Warning: counter reached 0",

	SW_ERR_MEMORY_FAILURE: "Memory failure",
	SW_ERR_SECURITY_ISSUE: "Security-related issue",
	SW_ERR_WRONG_LENGTH:   "Wrong length",

	SW_ERR_LOGICAL_CHANNEL_NOT_SUPP:  "Logical channel not supported",
	SW_ERR_SECURE_MESSAGING_NOT_SUPP: "Secure messaging not supported",

	SW_ERR_CMD_NOT_ALLOWED_NO_INFO: "Command not allowed",
	SW_ERR_CMD_INCOMPATIBLE_FILE:   "Command incompatible with file structure",
	SW_ERR_SECURITY_STATUS_NOT_SAT: "Security status not satisfied",
	SW_ERR_AUTH_METHOD_BLOCKED:     "Authentication method blocked",
	SW_ERR_REF_DATA_NOT_USABLE:     "Referenced data not usable",
	SW_ERR_COND_OF_USE_NOT_SAT:     "Conditions of use not satisfied",

	SW_ERR_WRONG_PARAMS_NO_INFO:   "Wrong parameters",
	SW_ERR_INCORRECT_PARAMS_DATA:  "Incorrect parameters in data field",
	SW_ERR_FUNC_NOT_SUPPORTED:     "Function not supported",
	SW_ERR_FILE_NOT_FOUND:         "File or application not found",
	SW_ERR_RECORD_NOT_FOUND:       "Record not found",
	SW_ERR_NOT_ENOUGH_MEMORY:      "Not enough memory space in the file",
	SW_ERR_INCORRECT_PARAMS_P1P2:  "Incorrect parameters P1-P2",
	SW_ERR_REF_DATA_NOT_FOUND:     "Referenced data not found",
	SW_ERR_FILE_ALREADY_EXISTS:    "File already exists",
	SW_ERR_DF_NAME_ALREADY_EXISTS: "DF name already exists",

	SW_ERR_WRONG_P1P2:        "Wrong parameters P1-P2",
	SW_ERR_INS_INVALID:       "Instruction code not supported or invalid",
	SW_ERR_CLA_NOT_SUPPORTED: "Class not supported",
	SW_ERR_UNKNOWN:           "No precise diagnosis",
}
