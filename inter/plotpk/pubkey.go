// Package plotpk provides typed public keys for the parties that take part in
// block production: harvesters (plot keys), farmers and pools. The key bytes
// are opaque to the consensus code; the Type prefix records which signature
// scheme produced them so that a key can be parsed back from its hex form.
package plotpk

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// PubKey is a public key tagged with its signature scheme.
type PubKey struct {
	// Type identifies the curve/group of the key.
	Type uint8
	// Raw is the marshalled group element.
	Raw []byte
}

// Types enumerates the supported key schemes.
var Types = struct {
	// BN256G2 is a BLS public key living in G2 of the bn256 pairing.
	BN256G2 uint8
}{
	BN256G2: 0xc1,
}

// Empty reports whether the key was never set.
func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

// String returns the 0x-prefixed hex of Bytes().
func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes returns the flat form: type byte followed by the raw key.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

// Equal compares both the scheme and the key material.
func (pk PubKey) Equal(other PubKey) bool {
	return pk.Type == other.Type && bytes.Equal(pk.Raw, other.Raw)
}

// Copy returns a deep copy, so Raw is not shared.
func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// FromString parses a hex string, with or without the 0x prefix.
func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

// FromBytes parses the flat form produced by Bytes.
func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, errors.New("empty pubkey")
	}
	return PubKey{b[0], common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
