package core

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// PunkVTXO is the VTXO-carried state of a single Punk: the fields that
// travel with the VTXO produced by the most recent state transition. Outpoint is filled in only once the controlling transaction
// has actually been broadcast; it is a volatile hint, never the punk's
// identity (see PunkID).
type PunkVTXO struct {
	PunkID         PunkID
	Owner          XOnlyPubKey
	ServerPubkey   XOnlyPubKey
	ListingPrice   Sats
	CompressedData Payload
	Value          Sats
	Outpoint       Outpoint
}

func scriptAddress(owner, server XOnlyPubKey, params *chaincfg.Params) (ArkAddress, *ScriptTree, error) {
	tree, err := BuildScriptTree(owner, server)
	if err != nil {
		return "", nil, err
	}
	addr, err := tree.Address(params)
	if err != nil {
		return "", nil, err
	}
	return ArkAddress(addr), tree, nil
}

// Mint builds the funding transaction for a brand-new Punk: it spends
// funding VTXOs from ark and produces one Punk VTXO of value reserve at the
// (owner, serverPubkey) address.
func Mint(ctx context.Context, ark ArkClient, params *chaincfg.Params, owner, server XOnlyPubKey, reserve Sats, compressed Payload) (*PunkVTXO, string, error) {
	balance, err := ark.GetBalance(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: checking funding balance: %s", ErrUpstreamFailure, err)
	}
	if balance < reserve {
		return nil, "", fmt.Errorf("%w: have %d sats, need %d", ErrInsufficientFunds, balance, reserve)
	}

	addr, _, err := scriptAddress(owner, server, params)
	if err != nil {
		return nil, "", err
	}
	txid, err := ark.Send(ctx, addr, reserve)
	if err != nil {
		return nil, "", fmt.Errorf("%w: sending mint output: %s", ErrUpstreamFailure, err)
	}

	return &PunkVTXO{
		PunkID:         PunkIDOf(compressed[:]),
		Owner:          owner,
		ServerPubkey:   server,
		ListingPrice:   0,
		CompressedData: compressed,
		Value:          reserve,
		Outpoint:       Outpoint(txid + ":0"),
	}, txid, nil
}

// Transfer spends current via TransferLeaf and produces a new Punk VTXO at
// (newOwner, serverPubkey) with listingPrice reset to zero.
func Transfer(ctx context.Context, ark ArkClient, params *chaincfg.Params, current PunkVTXO, newOwner XOnlyPubKey) (*PunkVTXO, string, error) {
	addr, _, err := scriptAddress(newOwner, current.ServerPubkey, params)
	if err != nil {
		return nil, "", err
	}
	txid, err := ark.Send(ctx, addr, current.Value)
	if err != nil {
		return nil, "", fmt.Errorf("%w: sending transfer output: %s", ErrUpstreamFailure, err)
	}
	next := current
	next.Owner = newOwner
	next.ListingPrice = 0
	next.Outpoint = Outpoint(txid + ":0")
	return &next, txid, nil
}

// List spends current via ListLeaf and produces a new Punk VTXO at the same
// owner with listingPrice updated; price zero delists.
func List(ctx context.Context, ark ArkClient, params *chaincfg.Params, current PunkVTXO, price Sats) (*PunkVTXO, string, error) {
	addr, _, err := scriptAddress(current.Owner, current.ServerPubkey, params)
	if err != nil {
		return nil, "", err
	}
	txid, err := ark.Send(ctx, addr, current.Value)
	if err != nil {
		return nil, "", fmt.Errorf("%w: sending list output: %s", ErrUpstreamFailure, err)
	}
	next := current
	next.ListingPrice = price
	next.Outpoint = Outpoint(txid + ":0")
	return &next, txid, nil
}

// Delist is List with price zero.
func Delist(ctx context.Context, ark ArkClient, params *chaincfg.Params, current PunkVTXO) (*PunkVTXO, string, error) {
	return List(ctx, ark, params, current, 0)
}

// BuyOnChain is the buyer-driven Buy variant. After checking that current
// is listed and that the buyer's balance covers the listing price, it makes
// two sequential sends from buyerArk: the listing price to sellerAddr, then
// current.Value to the (buyer, server) script address, which becomes the
// returned Punk VTXO. It does not spend the seller's Punk VTXO (BuyLeaf is
// not used) and the two sends are not one atomic transaction: if the second
// send fails, the payment has already gone out. The escrow flow
// (core/escrow.go) is the production path.
func BuyOnChain(ctx context.Context, buyerArk ArkClient, sellerAddr ArkAddress, params *chaincfg.Params, current PunkVTXO, buyer XOnlyPubKey) (*PunkVTXO, string, string, error) {
	if current.ListingPrice == 0 {
		return nil, "", "", fmt.Errorf("%w: punk %s is not listed", ErrPreconditionFailed, current.PunkID)
	}
	balance, err := buyerArk.GetBalance(ctx)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: checking buyer balance: %s", ErrUpstreamFailure, err)
	}
	if balance < current.ListingPrice {
		return nil, "", "", fmt.Errorf("%w: have %d sats, need %d", ErrInsufficientFunds, balance, current.ListingPrice)
	}

	paymentTxid, err := buyerArk.Send(ctx, sellerAddr, current.ListingPrice)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: sending payment: %s", ErrUpstreamFailure, err)
	}

	addr, _, err := scriptAddress(buyer, current.ServerPubkey, params)
	if err != nil {
		return nil, "", "", err
	}
	punkTxid, err := buyerArk.Send(ctx, addr, current.Value)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: sending punk output: %s", ErrUpstreamFailure, err)
	}

	next := current
	next.Owner = buyer
	next.ListingPrice = 0
	next.Outpoint = Outpoint(punkTxid + ":0")
	return &next, punkTxid, paymentTxid, nil
}

// Cancel is an alias for Delist: cancelling a pending listing is, at the
// VTXO layer, the same state transition as delisting.
func Cancel(ctx context.Context, ark ArkClient, params *chaincfg.Params, current PunkVTXO) (*PunkVTXO, string, error) {
	return Delist(ctx, ark, params, current)
}
