package treasury

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Uint128Bits is the width every stored or emitted amount must fit in.
const Uint128Bits = 128

// Uint128 is an unsigned amount bounded to 2^128-1. All arithmetic is
// checked; a result outside the range is reported instead of wrapping. The
// zero value is zero.
type Uint128 struct {
	v uint256.Int
}

// NewUint128 lifts a uint64 into a Uint128.
func NewUint128(x uint64) Uint128 {
	var out Uint128
	out.v.SetUint64(x)
	return out
}

// ParseUint128 parses a base-10 string. Signs, whitespace and values above
// 2^128-1 are rejected.
func ParseUint128(raw string) (Uint128, error) {
	if raw == "" {
		return Uint128{}, fmt.Errorf("%w: empty amount", ErrInvalidMessage)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return Uint128{}, fmt.Errorf("%w: amount %q must be a base-10 integer", ErrInvalidMessage, raw)
		}
	}
	var out Uint128
	if err := out.v.SetFromDecimal(raw); err != nil {
		return Uint128{}, fmt.Errorf("%w: amount %q exceeds 256 bits", ErrArithmeticOverflow, raw)
	}
	if out.v.BitLen() > Uint128Bits {
		return Uint128{}, fmt.Errorf("%w: amount %q exceeds 128 bits", ErrArithmeticOverflow, raw)
	}
	return out, nil
}

// MustUint128 parses raw and panics on malformed input. Intended for tests
// and constants.
func MustUint128(raw string) Uint128 {
	out, err := ParseUint128(raw)
	if err != nil {
		panic(err)
	}
	return out
}

// Uint128FromBig converts a non-negative big integer.
func Uint128FromBig(b *big.Int) (Uint128, error) {
	if b == nil {
		return Uint128{}, nil
	}
	if b.Sign() < 0 {
		return Uint128{}, fmt.Errorf("%w: negative amount", ErrInvalidMessage)
	}
	if b.BitLen() > Uint128Bits {
		return Uint128{}, fmt.Errorf("%w: amount exceeds 128 bits", ErrArithmeticOverflow)
	}
	var out Uint128
	out.v.SetFromBig(b)
	return out, nil
}

func fromWide(x *uint256.Int) (Uint128, error) {
	if x.BitLen() > Uint128Bits {
		return Uint128{}, fmt.Errorf("%w: result exceeds 128 bits", ErrArithmeticOverflow)
	}
	var out Uint128
	out.v.Set(x)
	return out, nil
}

func (u Uint128) wide() *uint256.Int { return new(uint256.Int).Set(&u.v) }

// String renders the decimal form.
func (u Uint128) String() string { return u.v.Dec() }

// Big returns a fresh big.Int copy.
func (u Uint128) Big() *big.Int { return u.v.ToBig() }

// IsZero reports whether the amount is zero.
func (u Uint128) IsZero() bool { return u.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (u Uint128) Cmp(other Uint128) int { return u.v.Cmp(&other.v) }

// IsUint64 reports whether the amount fits a uint64.
func (u Uint128) IsUint64() bool { return u.v.IsUint64() }

// Uint64 returns the low 64 bits.
func (u Uint128) Uint64() uint64 { return u.v.Uint64() }

// CheckedAdd returns u+other or ErrArithmeticOverflow.
func (u Uint128) CheckedAdd(other Uint128) (Uint128, error) {
	sum, overflow := new(uint256.Int).AddOverflow(&u.v, &other.v)
	if overflow {
		return Uint128{}, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, u, other)
	}
	return fromWide(sum)
}

// CheckedSub returns u-other or errUnderflow when other exceeds u.
func (u Uint128) CheckedSub(other Uint128) (Uint128, error) {
	if u.v.Lt(&other.v) {
		return Uint128{}, fmt.Errorf("%w: %s - %s", errUnderflow, u, other)
	}
	var out Uint128
	out.v.Sub(&u.v, &other.v)
	return out, nil
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts only the quoted decimal form.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: amount must be a decimal string", ErrInvalidMessage)
	}
	parsed, err := ParseUint128(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
