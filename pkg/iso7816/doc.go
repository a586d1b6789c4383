/*
Package iso7816 implements the APDU layer of the engine: command encoding
(short and extended length forms), response parsing, and status word analysis
according to ISO/IEC 7816-3 and 7816-4.

The communication with a smart card is strictly synchronous:
 1. The host sends a Command APDU (header + optional body).
 2. The card processes it and returns a Response APDU (optional body +
    trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success.
  - 0x61XX: Success, XX more response bytes available (GET RESPONSE).
  - 0x63CX: Warning, X is a retry counter (PIN verification).
  - 0x6A82/0x6A88: Referenced file or data not found.

Commands issued by workflows are resolved from declarative hex templates, so
Command keeps raw header bytes rather than modelling the CLA/INS bit fields.
The session layer in pkg/card drives transmission and the single automatic
GET RESPONSE continuation.
*/
package iso7816
