package core

import "context"

// VTXO is a virtual transaction output as reported by an Ark wallet: an
// off-chain unspent output, spendable instantly and settled to the base
// chain in batches. Ark rounds periodically rewrite Outpoint for still-
// unspent VTXOs — only PunkID (carried separately in the registry) survives
// a refresh; Outpoint is a volatile hint.
type VTXO struct {
	Outpoint Outpoint
	Value    Sats
	Address  ArkAddress
}

// ArkClient is the opaque capability this package uses to interact with the
// Ark-layer signing/settlement RPC. Its implementation — key storage,
// signing, round participation — is out of scope for this package; core
// only ever calls through this interface.
type ArkClient interface {
	// Send transfers amount to address and returns the resulting txid.
	// Implementations must apply their own deadline; core never retries a
	// timed-out send within a request, to avoid double-spending.
	Send(ctx context.Context, address ArkAddress, amount Sats) (txid string, err error)

	// GetVTXOs lists the wallet's current (unspent) virtual outputs.
	GetVTXOs(ctx context.Context) ([]VTXO, error)

	// GetBalance returns the sum of the wallet's unspent VTXO values.
	GetBalance(ctx context.Context) (Sats, error)

	// GetBoardingAddress returns the on-chain address used to board funds
	// into the Ark layer.
	GetBoardingAddress(ctx context.Context) (string, error)
}
