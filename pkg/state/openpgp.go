package state

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

// OpenPGP public key classification (OpenPGP card specification §7.2.14):
// the card returns a public key template, tag 7F49, holding either an RSA
// modulus (tag 81) or an EC point (tag 86, uncompressed 04||X||Y form). The
// reader displays a size-bucketed human label, not the key material.

type publicKeyTemplate struct {
	Modulus []byte `tlv:"81"`
	ECPoint []byte `tlv:"86"`
}

func parseOpenPGPKey(reader *schema.StateReader, data []byte) string {
	inner, found := tlv.Find("7F49", data)
	if !found || len(inner) == 0 {
		return emptyValue(reader)
	}

	var key publicKeyTemplate
	if err := tlv.Unmarshal(inner, &key); err != nil {
		return NotAvailable
	}

	switch {
	case len(key.Modulus) > 0:
		return rsaLabel(len(key.Modulus))
	case len(key.ECPoint) > 0:
		return ecLabel(len(key.ECPoint))
	default:
		return emptyValue(reader)
	}
}

// rsaLabel buckets a modulus byte count into the common RSA sizes. Cards
// occasionally prepend a zero byte, so each bucket tolerates one extra byte.
func rsaLabel(modulusBytes int) string {
	for _, bits := range []int{1024, 2048, 3072, 4096} {
		size := bits / 8
		if modulusBytes == size || modulusBytes == size+1 {
			return fmt.Sprintf("RSA-%d", bits)
		}
	}
	return fmt.Sprintf("RSA (%d bit)", modulusBytes*8)
}

// ecLabel classifies an uncompressed EC point (04 || X || Y) by the
// coordinate width of the standard prime curves.
func ecLabel(pointBytes int) string {
	switch coord := (pointBytes - 1) / 2; {
	case coord == 32:
		return "EC-256"
	case coord == 48:
		return "EC-384"
	case coord == 66:
		return "EC-521"
	default:
		return fmt.Sprintf("EC (%d byte point)", pointBytes)
	}
}
