package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/bits"
	"sort"
)

// PayloadSize is the fixed on-chain payload length: exactly six bytes, no
// framing, no length prefix.
const PayloadSize = 6

// MaxAttributesPerType is the maximum number of attribute table entries a
// type may define (32, one per bit of the attribute bitmap).
const MaxAttributesPerType = 32

// Payload is the raw six-byte on-chain encoding of a Punk's traits.
//
//	byte 0     : type:3 (bits 7..5) | background:4 (bits 4..1) | reserved:1 (bit 0, must be 0)
//	bytes 1..4 : u32 little-endian attribute bitmap
//	byte 5     : attribute count (popcount of the bitmap)
type Payload [PayloadSize]byte

// String renders the payload as lowercase hex.
func (p Payload) String() string { return hex.EncodeToString(p[:]) }

// MarshalJSON renders p as a hex string.
func (p Payload) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON parses p from a hex string of exactly PayloadSize bytes.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	if len(raw) != PayloadSize {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidLength, PayloadSize, len(raw))
	}
	copy(p[:], raw)
	return nil
}

// Encode canonicalises m and produces its six-byte payload.
func Encode(m Metadata) (Payload, error) {
	var p Payload

	if !m.Type.Valid() {
		return p, fmt.Errorf("%w: type index %d", ErrInvalidType, m.Type)
	}
	if int(m.Background) >= BackgroundCount() {
		return p, fmt.Errorf("%w: background index %d", ErrInvalidBackground, m.Background)
	}

	attrs := canonicalAttributes(m.Attributes)
	tbl := AttributeTable(m.Type)
	var bitmap uint32
	for _, a := range attrs {
		if int(a) >= MaxAttributesPerType {
			return p, fmt.Errorf("%w: bit %d", ErrAttributeIndexOutOfRange, a)
		}
		if int(a) >= len(tbl) {
			return p, fmt.Errorf("%w: %s has no attribute at bit %d", ErrUnknownAttribute, m.Type, a)
		}
		bitmap |= 1 << uint(a)
	}
	if bits.OnesCount32(bitmap) != len(m.Attributes) {
		return p, fmt.Errorf("%w: %d attributes supplied but bitmap has %d bits set", ErrCountMismatch, len(m.Attributes), bits.OnesCount32(bitmap))
	}

	p[0] = byte(m.Type)<<5 | (m.Background&0x0f)<<1
	binary.LittleEndian.PutUint32(p[1:5], bitmap)
	p[5] = byte(len(attrs))
	return p, nil
}

// Decode parses a six-byte payload back into Metadata. It takes no punk id
// and does not check the payload against one (see PunkIDOf).
func Decode(raw []byte) (Metadata, error) {
	var m Metadata
	if len(raw) != PayloadSize {
		return m, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidLength, PayloadSize, len(raw))
	}

	typeIdx := PunkType(raw[0] >> 5)
	if !typeIdx.Valid() {
		return m, fmt.Errorf("%w: %d", ErrInvalidTypeIndex, typeIdx)
	}
	bg := (raw[0] >> 1) & 0x0f
	if int(bg) >= BackgroundCount() {
		return m, fmt.Errorf("%w: %d", ErrInvalidBackgroundIndex, bg)
	}

	bitmap := binary.LittleEndian.Uint32(raw[1:5])
	count := raw[5]
	if bits.OnesCount32(bitmap) != int(count) {
		return m, fmt.Errorf("%w: bitmap has %d bits set, count byte says %d", ErrCountMismatch, bits.OnesCount32(bitmap), count)
	}

	var attrs []uint8
	for i := uint8(0); i < 32; i++ {
		if bitmap&(1<<uint(i)) != 0 {
			attrs = append(attrs, i)
		}
	}

	m = Metadata{Type: typeIdx, Background: bg, Attributes: attrs}
	return m, nil
}

// VerifyIntegrity re-encodes m and reports whether it reproduces raw
// byte-for-byte.
func VerifyIntegrity(m Metadata, raw []byte) bool {
	p, err := Encode(m)
	if err != nil {
		return false
	}
	if len(raw) != len(p) {
		return false
	}
	for i := range p {
		if p[i] != raw[i] {
			return false
		}
	}
	return true
}

// PunkIDOf computes the permanent punk identifier: SHA-256 of the payload
// bytes.
func PunkIDOf(raw []byte) PunkID {
	return PunkID(sha256.Sum256(raw))
}

// canonicalAttributes returns a sorted, de-duplicated copy of attrs,
// ascending by bit index.
func canonicalAttributes(attrs []uint8) []uint8 {
	seen := make(map[uint8]struct{}, len(attrs))
	out := make([]uint8, 0, len(attrs))
	for _, a := range attrs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
