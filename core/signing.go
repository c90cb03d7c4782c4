package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// ServerSigner holds the process-wide server signing key. It is the only
// component permitted to produce official-punk attestations, initialised
// once at boot and never rotated at runtime — mutating it requires a
// process restart.
type ServerSigner struct {
	priv   *btcec.PrivateKey
	pubkey XOnlyPubKey
}

// NewServerSigner loads a server signer from a 32-byte private key.
func NewServerSigner(privKey []byte) (*ServerSigner, error) {
	if len(privKey) != 32 {
		return nil, fmt.Errorf("%w: server private key must be 32 bytes, got %d", ErrInvalidArgument, len(privKey))
	}
	priv, pub := btcec.PrivKeyFromBytes(privKey)
	var xo XOnlyPubKey
	copy(xo[:], schnorr.SerializePubKey(pub))
	return &ServerSigner{priv: priv, pubkey: xo}, nil
}

// Pubkey returns the server's x-only public key, the constant co-signer
// pinned into every Punk's script tree.
func (s *ServerSigner) Pubkey() XOnlyPubKey { return s.pubkey }

// AttestPunkID produces the official-punk Schnorr signature over
// SHA-256(punkId bytes).
func (s *ServerSigner) AttestPunkID(id PunkID) ([]byte, error) {
	digest := sha256.Sum256(id[:])
	sig, err := schnorr.Sign(s.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: signing attestation: %s", ErrInternal, err)
	}
	return sig.Serialize(), nil
}

// VerifyAttestation reports whether sig is a valid Schnorr signature by
// serverPubkey over SHA-256(id bytes).
func VerifyAttestation(serverPubkey XOnlyPubKey, id PunkID, sig []byte) bool {
	pub, err := schnorr.ParsePubKey(serverPubkey[:])
	if err != nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(id[:])
	return parsed.Verify(digest[:], pub)
}
