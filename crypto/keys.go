package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part of a bech32 address.
type AddressPrefix string

const (
	JunoPrefix AddressPrefix = "juno"
)

const (
	// AccountAddressLength is the payload size of externally owned accounts.
	AccountAddressLength = 20
	// ContractAddressLength is the payload size of contract addresses.
	ContractAddressLength = 32
)

var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address represents a bech32 encoded account or contract address. The zero
// value is the empty address.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// NewAddress builds an address from its raw payload. Only account (20 byte)
// and contract (32 byte) payloads are accepted.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AccountAddressLength && len(b) != ContractAddressLength {
		return Address{}, fmt.Errorf("%w: payload must be %d or %d bytes, got %d", ErrInvalidAddress, AccountAddressLength, ContractAddressLength, len(b))
	}
	if strings.TrimSpace(string(prefix)) == "" {
		return Address{}, fmt.Errorf("%w: prefix required", ErrInvalidAddress)
	}
	payload := make([]byte, len(b))
	copy(payload, b)
	return Address{prefix: AddressPrefix(strings.ToLower(string(prefix))), bytes: payload}, nil
}

// MustNewAddress is like NewAddress but panics on malformed input. Intended
// for constants and tests.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// DeriveAddress deterministically derives an account address from a seed by
// hashing it with keccak256 and keeping the trailing 20 bytes.
func DeriveAddress(prefix AddressPrefix, seed []byte) Address {
	digest := crypto.Keccak256(seed)
	return MustNewAddress(prefix, digest[len(digest)-AccountAddressLength:])
}

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw address payload.
func (a Address) Bytes() []byte {
	if a.IsZero() {
		return nil
	}
	out := make([]byte, len(a.bytes))
	copy(out, a.bytes)
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return len(a.bytes) == 0
}

// IsContract reports whether the payload has the contract address length.
func (a Address) IsContract() bool {
	return len(a.bytes) == ContractAddressLength
}

// Equal compares prefix and payload.
func (a Address) Equal(other Address) bool {
	return a.prefix == other.prefix && bytes.Equal(a.bytes, other.bytes)
}

// MarshalText encodes the address in its bech32 form. The zero address encodes
// as the empty string.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a bech32 address. The empty string decodes to the
// zero address.
func (a *Address) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(raw)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid bech32 string: %v", ErrInvalidAddress, err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: error converting bits: %v", ErrInvalidAddress, err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// DecodeAddressWithPrefix decodes addrStr and rejects addresses that do not
// carry the expected prefix.
func DecodeAddressWithPrefix(addrStr string, prefix AddressPrefix) (Address, error) {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return Address{}, err
	}
	if addr.prefix != prefix {
		return Address{}, fmt.Errorf("%w: expected prefix %q, got %q", ErrInvalidAddress, prefix, addr.prefix)
	}
	return addr, nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address returns the account address controlled by the key.
func (k *PublicKey) Address(prefix AddressPrefix) Address {
	addrBytes := crypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return MustNewAddress(prefix, addrBytes)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
