package treasury

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

const maxUint128Dec = "340282366920938463463374607431768211455"

func TestParseUint128Bounds(t *testing.T) {
	ceiling, err := ParseUint128(maxUint128Dec)
	if err != nil {
		t.Fatalf("parse ceiling: %v", err)
	}
	if ceiling.String() != maxUint128Dec {
		t.Fatalf("unexpected ceiling %s", ceiling)
	}
	if _, err := ParseUint128("340282366920938463463374607431768211456"); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow above 2^128-1, got %v", err)
	}
	for _, bad := range []string{"", "+1", "-1", "1.5", " 1", "0x10"} {
		if _, err := ParseUint128(bad); !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestUint128CheckedArithmetic(t *testing.T) {
	ceiling := MustUint128(maxUint128Dec)
	if _, err := ceiling.CheckedAdd(NewUint128(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := NewUint128(1).CheckedSub(NewUint128(2)); !errors.Is(err, errUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	sum, err := NewUint128(2).CheckedAdd(NewUint128(3))
	if err != nil || sum.Uint64() != 5 {
		t.Fatalf("unexpected sum %s (%v)", sum, err)
	}
}

func TestUint128FromBig(t *testing.T) {
	v, err := Uint128FromBig(big.NewInt(42))
	if err != nil || v.String() != "42" {
		t.Fatalf("unexpected conversion %s (%v)", v, err)
	}
	if _, err := Uint128FromBig(big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative value to fail")
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	if _, err := Uint128FromBig(huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestUint128JSONIsQuoted(t *testing.T) {
	raw, err := json.Marshal(Coin{Denom: DefaultDenom, Amount: NewUint128(985000)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"denom":"ujuno","amount":"985000"}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}
