package state

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/iso7816"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

// FCI is the file control information template (tag 6F) a card may return
// on SELECT (ISO 7816-4 §5.3.3). Cards differ widely in what they put
// inside; unrecognized data objects are kept rather than dropped.
type FCI struct {
	DFName      string          `tlv:"84"`
	Proprietary *FCIProprietary `tlv:"A5"`
	Unknown     []bertlv.TLV    `tlv:",unknown"`
}

// FCIProprietary is the proprietary information template nested in an FCI.
type FCIProprietary struct {
	Label         string       `tlv:"50"`
	Discretionary []byte       `tlv:"73"`
	Unknown       []bertlv.TLV `tlv:",unknown"`
}

type selectResult struct {
	FCI *FCI `tlv:"6F"`
}

// ParseSelectFCI decodes the FCI of a SELECT response. A response without
// one (empty data, or no 6F template) yields nil and no error; only
// undecodable TLV is an error.
func ParseSelectFCI(resp *iso7816.Response) (*FCI, error) {
	if resp == nil || len(resp.Data) == 0 {
		return nil, nil
	}
	var result selectResult
	if err := tlv.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	return result.FCI, nil
}

// Describe renders a one-line summary for logs and banners.
func (f *FCI) Describe() string {
	var parts []string
	if f.DFName != "" {
		parts = append(parts, "DF "+f.DFName)
	}
	if f.Proprietary != nil && f.Proprietary.Label != "" {
		if raw, err := hexutil.Bytes(f.Proprietary.Label); err == nil {
			parts = append(parts, fmt.Sprintf("label %q", tlv.SafeASCII(raw)))
		}
	}
	if len(parts) == 0 {
		return "no file control information"
	}
	return strings.Join(parts, ", ")
}
