package core

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/btcutil"
)

// unspendableNUMSHex is the NUMS point used as the Taproot internal key so
// the key-path spend is provably unusable — every spend of a Punk VTXO must
// take a script path.
const unspendableNUMSHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

// TapLeafKind names one of the three spending paths of a Punk VTXO's
// script tree.
type TapLeafKind int

const (
	TransferLeaf TapLeafKind = iota
	BuyLeaf
	ListLeaf
)

func (k TapLeafKind) String() string {
	switch k {
	case TransferLeaf:
		return "transfer"
	case BuyLeaf:
		return "buy"
	case ListLeaf:
		return "list"
	default:
		return "unknown"
	}
}

// TapLeafVersion is the leaf version used for every leaf in the tree.
const TapLeafVersion = txscript.BaseLeafVersion // 0xc0

// ScriptTree is the realised Taproot output for a Punk VTXO: the three
// script leaves plus the tweaked output key they commit to.
type ScriptTree struct {
	Owner        XOnlyPubKey
	ServerPubkey XOnlyPubKey

	transferScript []byte
	buyScript      []byte
	listScript     []byte

	internalKey *btcec.PublicKey
	outputKey   *btcec.PublicKey
	assembled   *txscript.IndexedTapScriptTree
}

func unspendableInternalKey() (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(unspendableNUMSHex)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding NUMS point: %s", ErrInternal, err)
	}
	return schnorr.ParsePubKey(raw)
}

// BuildScriptTree constructs the Taproot output for a Punk owned by owner
// and co-signed by serverPubkey:
//
//	TransferLeaf: <owner> CHECKSIGVERIFY <server> CHECKSIG
//	BuyLeaf:      <server> CHECKSIG
//	ListLeaf:     <owner> CHECKSIGVERIFY <server> CHECKSIG
//
// The resulting address is a pure function of (owner, serverPubkey) only.
func BuildScriptTree(owner, serverPubkey XOnlyPubKey) (*ScriptTree, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner pubkey is zero", ErrInvalidArgument)
	}
	if serverPubkey.IsZero() {
		return nil, fmt.Errorf("%w: server pubkey is zero", ErrInvalidArgument)
	}

	ownerAndServer, err := checksigVerifyThenChecksig(owner, serverPubkey)
	if err != nil {
		return nil, err
	}
	buyScript, err := checksig(serverPubkey)
	if err != nil {
		return nil, err
	}

	internalKey, err := unspendableInternalKey()
	if err != nil {
		return nil, err
	}

	transferLeaf := txscript.NewBaseTapLeaf(ownerAndServer)
	buyLeaf := txscript.NewBaseTapLeaf(buyScript)
	listLeaf := txscript.NewBaseTapLeaf(ownerAndServer)

	tree := txscript.AssembleTaprootScriptTree(transferLeaf, buyLeaf, listLeaf)
	root := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, root[:])

	return &ScriptTree{
		Owner:          owner,
		ServerPubkey:   serverPubkey,
		transferScript: ownerAndServer,
		buyScript:      buyScript,
		listScript:     ownerAndServer,
		internalKey:    internalKey,
		outputKey:      outputKey,
		assembled:      tree,
	}, nil
}

func checksig(pub XOnlyPubKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddData(pub[:])
	b.AddOp(txscript.OP_CHECKSIG)
	return b.Script()
}

func checksigVerifyThenChecksig(first, second XOnlyPubKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddData(first[:])
	b.AddOp(txscript.OP_CHECKSIGVERIFY)
	b.AddData(second[:])
	b.AddOp(txscript.OP_CHECKSIG)
	return b.Script()
}

// Script returns the raw script for the given leaf kind.
func (t *ScriptTree) Script(kind TapLeafKind) []byte {
	switch kind {
	case TransferLeaf:
		return t.transferScript
	case BuyLeaf:
		return t.buyScript
	case ListLeaf:
		return t.listScript
	default:
		return nil
	}
}

func (t *ScriptTree) leafIndex(kind TapLeafKind) int {
	switch kind {
	case TransferLeaf:
		return 0
	case BuyLeaf:
		return 1
	case ListLeaf:
		return 2
	default:
		return -1
	}
}

// ControlBlock returns the serialised control block proving kind's script
// is part of this tree, for use in the spending witness.
func (t *ScriptTree) ControlBlock(kind TapLeafKind) ([]byte, error) {
	idx := t.leafIndex(kind)
	if idx < 0 || idx >= len(t.assembled.LeafMerkleProofs) {
		return nil, fmt.Errorf("%w: unknown leaf kind", ErrInvalidArgument)
	}
	cb := t.assembled.LeafMerkleProofs[idx].ToControlBlock(t.internalKey)
	return cb.ToBytes()
}

// PkScript returns the P2TR scriptPubKey (OP_1 <32-byte-x-only-output-key>).
func (t *ScriptTree) PkScript() ([]byte, error) {
	xOnly := schnorr.SerializePubKey(t.outputKey)
	script := make([]byte, 0, 34)
	script = append(script, txscript.OP_1, txscript.OP_DATA_32)
	script = append(script, xOnly...)
	return script, nil
}

// Address derives the bech32m Taproot address for this script tree on the
// given network. The address is a pure function of (owner, serverPubkey,
// params) only.
func (t *ScriptTree) Address(params *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(t.outputKey), params)
	if err != nil {
		return "", fmt.Errorf("%w: deriving taproot address: %s", ErrInternal, err)
	}
	return addr.EncodeAddress(), nil
}

// OutputKeyHex returns the hex-encoded x-only tweaked output key.
func (t *ScriptTree) OutputKeyHex() string {
	return hex.EncodeToString(schnorr.SerializePubKey(t.outputKey))
}
