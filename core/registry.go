package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxTotalPunks is the default supply cap: 5 types x 16 backgrounds x up to
// 32 attributes comfortably exceeds 2016, so the cap is a deliberate
// scarcity choice, not a codec limit.
const MaxTotalPunks = 2016

// DefaultReserveSats is the minimum reserve every Punk VTXO carries.
const DefaultReserveSats Sats = 10_000

// Registry is the canonical punkId -> owner authority: it enforces the
// supply cap, produces official attestations, and resolves
// wallet-registration conflicts. All registry mutations are serialised
// per-punk via locks.
type Registry struct {
	store     Store
	signer    *ServerSigner
	locks     *PunkLocks
	maxSupply int
	log       *zap.SugaredLogger
}

// NewRegistry wires a Registry over store, attesting with signer. maxSupply
// <= 0 defaults to MaxTotalPunks.
func NewRegistry(store Store, signer *ServerSigner, locks *PunkLocks, maxSupply int, log *zap.SugaredLogger) *Registry {
	if maxSupply <= 0 {
		maxSupply = MaxTotalPunks
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{store: store, signer: signer, locks: locks, maxSupply: maxSupply, log: log}
}

// Supply returns the current minted count and the cap.
func (r *Registry) Supply(ctx context.Context) (minted, max int, err error) {
	n, err := r.store.CountPunks(ctx)
	if err != nil {
		return 0, r.maxSupply, fmt.Errorf("%w: counting punks: %s", ErrInternal, err)
	}
	return n, r.maxSupply, nil
}

// Owner returns the current owner of a punk.
func (r *Registry) Owner(ctx context.Context, id PunkID) (ArkAddress, error) {
	row, err := r.store.GetPunk(ctx, id)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", fmt.Errorf("%w: punk %s", ErrNotFound, id)
	}
	return row.OwnerAddress, nil
}

// ListPunks returns every row, optionally filtered by owner.
func (r *Registry) ListPunks(ctx context.Context, owner *ArkAddress) ([]PunkRow, error) {
	if owner != nil {
		return r.store.ListPunksByOwner(ctx, *owner)
	}
	return r.store.ListPunks(ctx)
}

// Mint enforces the supply cap, rejects a duplicate punkId, writes the
// punks row and initial history entry, and produces the server attestation.
func (r *Registry) Mint(ctx context.Context, id PunkID, owner ArkAddress, compressed Payload) (*PunkRow, error) {
	var out *PunkRow
	err := r.locks.WithLock(id, func() error {
		existing, err := r.store.GetPunk(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if existing != nil {
			return fmt.Errorf("%w: punk %s already minted", ErrConflict, id)
		}
		n, err := r.store.CountPunks(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if n >= r.maxSupply {
			return fmt.Errorf("%w: supply cap of %d reached", ErrPreconditionFailed, r.maxSupply)
		}

		sig, err := r.signer.AttestPunkID(id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		row := PunkRow{
			PunkID:          id,
			OwnerAddress:    owner,
			Compressed:      compressed,
			ServerSignature: sig,
			MintedAt:        now,
			UpdatedAt:       now,
		}
		hist := HistoryEntry{PunkID: id, From: "", To: owner, At: now}
		if err := r.store.InsertPunk(ctx, row, hist); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		out = &row
		r.log.Infow("punk minted", "punk", id.String(), "owner", owner)
		r.store.AppendAudit(ctx, AuditEntry{RequestID: uuid.NewString(), Timestamp: now, Action: ActionMinted, Buyer: owner, PunkID: &id, Status: AuditSuccess})
		return nil
	})
	return out, err
}

// IsOfficial reports whether row carries a server signature that verifies
// against serverPubkey, or is present in the legacy whitelist.
func IsOfficial(row PunkRow, serverPubkey XOnlyPubKey) bool {
	if len(row.ServerSignature) > 0 && VerifyAttestation(serverPubkey, row.PunkID, row.ServerSignature) {
		return true
	}
	return IsLegacyPunk(row.PunkID)
}

// PunkSubmission is one entry of a wallet-registration request body.
type PunkSubmission struct {
	PunkID     PunkID
	MintTS     *time.Time
	Compressed *Payload
}

// RegisterResult reports what happened to one submitted punk.
type RegisterResult struct {
	PunkID PunkID
	Action RegisterOutcome
}

// Register implements wallet registration: a wallet submits its locally
// known punks under `address`, optionally declaring `altAddress` as another
// address the same wallet controls (used to recognise a migration rather
// than a conflict).
func (r *Registry) Register(ctx context.Context, address, altAddress ArkAddress, punks []PunkSubmission) ([]RegisterResult, error) {
	results := make([]RegisterResult, 0, len(punks))
	for _, sub := range punks {
		res, err := r.registerOne(ctx, address, altAddress, sub)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Registry) registerOne(ctx context.Context, address, altAddress ArkAddress, sub PunkSubmission) (RegisterResult, error) {
	var result RegisterResult
	err := r.locks.WithLock(sub.PunkID, func() error {
		existing, err := r.store.GetPunk(ctx, sub.PunkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}

		now := time.Now().UTC()
		var compressed Payload
		if sub.Compressed != nil {
			compressed = *sub.Compressed
		}

		switch {
		case existing == nil:
			sig, err := r.signer.AttestPunkID(sub.PunkID)
			if err != nil {
				return err
			}
			row := PunkRow{
				PunkID:          sub.PunkID,
				OwnerAddress:    address,
				Compressed:      compressed,
				ServerSignature: sig,
				MintedAt:        now,
				UpdatedAt:       now,
			}
			if sub.MintTS != nil {
				row.MintedAt = *sub.MintTS
			}
			hist := HistoryEntry{PunkID: sub.PunkID, From: "", To: address, At: now}
			if err := r.store.InsertPunk(ctx, row, hist); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			result = RegisterResult{PunkID: sub.PunkID, Action: RegisterInserted}
			r.store.AppendAudit(ctx, AuditEntry{RequestID: uuid.NewString(), Timestamp: now, Action: ActionWalletRegistered, PunkID: &sub.PunkID, Buyer: address, Status: AuditSuccess})

		case existing.OwnerAddress == address:
			if err := r.store.TouchPunk(ctx, sub.PunkID, sub.Compressed); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			result = RegisterResult{PunkID: sub.PunkID, Action: RegisterRefreshed}

		case altAddress != "" && existing.OwnerAddress == altAddress:
			if err := r.store.MigratePunkOwner(ctx, sub.PunkID, address, now); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			result = RegisterResult{PunkID: sub.PunkID, Action: RegisterMigrated}
			r.store.AppendAudit(ctx, AuditEntry{RequestID: uuid.NewString(), Timestamp: now, Action: ActionWalletRegistered, PunkID: &sub.PunkID, Seller: altAddress, Buyer: address, Status: AuditSuccess, Details: map[string]any{"migrated": true}})

		default:
			result = RegisterResult{PunkID: sub.PunkID, Action: RegisterConflict}
			r.log.Warnw("wallet register conflict", "punk", sub.PunkID.String(), "claimed_by", address, "recorded_owner", existing.OwnerAddress)
		}
		return nil
	})
	return result, err
}

// Recover returns the rows a wallet controlling minterPubkey can reclaim
// via the standard register path.
func (r *Registry) Recover(ctx context.Context, minterPubkey XOnlyPubKey) ([]PunkRow, error) {
	rows, err := r.store.FindReclaimable(ctx, minterPubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInternal, err)
	}
	return rows, nil
}
