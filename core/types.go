// Package core implements the Punks protocol: the six-byte trait codec, the
// deterministic trait generator, the Taproot script model, transaction
// templates against an Ark-style VTXO layer, the escrow state machine, and
// the ownership registry and supply authority.
package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PunkID is the permanent 32-byte identity of a Punk: SHA-256 of its
// canonical six-byte payload. Stable across VTXO refreshes and transfers.
type PunkID [32]byte

func (id PunkID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the zero value (no punk).
func (id PunkID) IsZero() bool { return id == PunkID{} }

// ParsePunkID decodes a hex-encoded 32-byte punk id.
func ParsePunkID(s string) (PunkID, error) {
	var id PunkID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("%w: punk id must be 32 bytes, got %d", ErrInvalidArgument, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MarshalJSON renders id as a hex string.
func (id PunkID) MarshalJSON() ([]byte, error) { return json.Marshal(id.String()) }

// UnmarshalJSON parses id from a hex string.
func (id *PunkID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePunkID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// XOnlyPubKey is a 32-byte x-only Schnorr public key, as used on the owner
// and server leaves of the Taproot script tree.
type XOnlyPubKey [32]byte

func (k XOnlyPubKey) String() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether k is unset.
func (k XOnlyPubKey) IsZero() bool { return k == XOnlyPubKey{} }

// ParseXOnlyPubKey decodes a 32-byte hex x-only public key.
func ParseXOnlyPubKey(s string) (XOnlyPubKey, error) {
	var k XOnlyPubKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("%w: pubkey must be 32 bytes, got %d", ErrInvalidArgument, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// MarshalJSON renders k as a hex string.
func (k XOnlyPubKey) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON parses k from a hex string.
func (k *XOnlyPubKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseXOnlyPubKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ArkAddress is an opaque Ark-layer address string, as returned by a wallet
// or the ArkClient capability. It is never parsed by this package; it is
// only ever handed back to ArkClient.Send.
type ArkAddress string

// Sats is an amount denominated in satoshis.
type Sats uint64

// Outpoint identifies a VTXO by the txid:vout of the transaction that
// produced it. Outpoints are volatile — Ark rounds rewrite them on refresh —
// so they are only ever used to verify a deposit at the moment it is made,
// never as a durable identity (see Registry, which keys on PunkID).
type Outpoint string

// PunkType is the 3-bit type field of the trait payload.
type PunkType uint8

const (
	TypeMale PunkType = iota
	TypeFemale
	TypeZombie
	TypeAlien
	TypeApe
	typeCount
)

func (t PunkType) String() string {
	switch t {
	case TypeMale:
		return "Male"
	case TypeFemale:
		return "Female"
	case TypeZombie:
		return "Zombie"
	case TypeApe:
		return "Ape"
	case TypeAlien:
		return "Alien"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the five defined types.
func (t PunkType) Valid() bool { return t < typeCount }

// Metadata is the decoded, canonical representation of a Punk's traits.
type Metadata struct {
	Type       PunkType
	Background uint8
	Attributes []uint8 // bit indices into the type's attribute table, ascending
}
