package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, AccountAddressLength)
	addr := MustNewAddress(JunoPrefix, payload)
	encoded := addr.String()
	if encoded[:5] != "juno1" {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %s != %s", decoded, addr)
	}
	if decoded.IsContract() {
		t.Fatalf("account address reported as contract")
	}
}

func TestContractAddressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, ContractAddressLength)
	addr := MustNewAddress(JunoPrefix, payload)
	decoded, err := DecodeAddressWithPrefix(addr.String(), JunoPrefix)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.IsContract() {
		t.Fatalf("expected contract address")
	}
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(JunoPrefix, []byte{1, 2, 3}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestDecodeAddressWithPrefixMismatch(t *testing.T) {
	other := MustNewAddress(AddressPrefix("osmo"), bytes.Repeat([]byte{0x02}, AccountAddressLength))
	if _, err := DecodeAddressWithPrefix(other.String(), JunoPrefix); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected prefix mismatch error, got %v", err)
	}
}

func TestAddressJSON(t *testing.T) {
	type wrapper struct {
		Owner Address `json:"owner"`
		Empty Address `json:"empty"`
	}
	in := wrapper{Owner: DeriveAddress(JunoPrefix, []byte("owner"))}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out wrapper
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Owner.Equal(in.Owner) {
		t.Fatalf("owner mismatch: %s != %s", out.Owner, in.Owner)
	}
	if !out.Empty.IsZero() {
		t.Fatalf("expected empty address to stay zero")
	}
	if err := json.Unmarshal([]byte(`{"owner":"juno1notanaddress"}`), &out); err == nil {
		t.Fatalf("expected malformed address to fail")
	}
}

func TestGeneratedKeyAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.PubKey().Address(JunoPrefix).Equal(key.PubKey().Address(JunoPrefix)) {
		t.Fatalf("restored key derives a different address")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := t.TempDir() + "/owner.json"
	if err := SaveToKeystore(path, key, "pass", ScryptLight); err != nil {
		t.Fatalf("save: %v", err)
	}
	addr, err := KeystoreAddress(path, "pass", JunoPrefix)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !addr.Equal(key.PubKey().Address(JunoPrefix)) {
		t.Fatalf("keystore address mismatch")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}
