package attr

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// decodeNumeric parses the source database's arbitrary-precision NUMERIC
// on-disk format — a base-10000 digit array with weight/sign/dscale
// header (spec.md §4.3) — and renders it with exactly dscale fractional
// digits. big.Int carries the full-precision intermediate value; there
// is no floating-point step.
func decodeNumeric(payload []byte) (string, error) {
	if len(payload) < 8 {
		return "", errors.Wrap(ErrBadVarlena, "numeric header truncated")
	}
	ndigits := int(int16(binary.LittleEndian.Uint16(payload[0:2])))
	weight := int(int16(binary.LittleEndian.Uint16(payload[2:4])))
	sign := binary.LittleEndian.Uint16(payload[4:6])
	dscale := int(binary.LittleEndian.Uint16(payload[6:8]))

	switch sign {
	case 0xC000:
		return "NaN", nil
	case 0xD000:
		return "Infinity", nil
	case 0xF000:
		return "-Infinity", nil
	}

	need := 8 + ndigits*2
	if len(payload) < need {
		return "", errors.Wrap(ErrBadVarlena, "numeric digit array truncated")
	}

	base := big.NewInt(10000)
	scaled := new(big.Int)
	for i := 0; i < ndigits; i++ {
		d := int64(binary.LittleEndian.Uint16(payload[8+i*2 : 10+i*2]))
		if d < 0 || d > 9999 {
			return "", errors.Errorf("numeric: out-of-range base-10000 digit %d", d)
		}
		scaled.Mul(scaled, base)
		scaled.Add(scaled, big.NewInt(d))
	}

	// scaled == value * 10000^(ndigits-1-weight); rescale to dscale
	// fractional decimal digits.
	totalExp := 4*(weight-ndigits+1) + dscale
	switch {
	case totalExp > 0:
		scaled.Mul(scaled, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(totalExp)), nil))
	case totalExp < 0:
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-totalExp)), nil)
		rounded := new(big.Int)
		rem := new(big.Int)
		rounded.QuoRem(scaled, div, rem)
		scaled = rounded
	}

	neg := sign == 0x4000
	digits := scaled.String()
	if dscale == 0 {
		if digits == "" {
			digits = "0"
		}
		if neg && digits != "0" {
			return "-" + digits, nil
		}
		return digits, nil
	}

	for len(digits) <= dscale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-dscale]
	fracPart := digits[len(digits)-dscale:]
	out := intPart + "." + fracPart
	if neg && scaled.Sign() != 0 {
		out = "-" + out
	}
	return out, nil
}
