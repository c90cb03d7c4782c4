package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Escrow arbitrates the marketplace state machine: list, deposit
// confirmation, atomic execute, and cancel, all against a single escrow
// wallet. The escrow wallet is process-wide state initialised once at boot;
// besides Escrow, only ReserveClaim sends from it.
type Escrow struct {
	store      Store
	ark        ArkClient
	locks      *PunkLocks
	address    ArkAddress
	pubkey     XOnlyPubKey
	reserve    Sats
	feePercent int
}

// NewEscrow wires an Escrow over store and the escrow wallet's ArkClient.
// address/pubkey identify the escrow wallet itself. reserve is the fixed
// VTXO reserve value (default DefaultReserveSats); feePercent implements
// the marketplace fee policy.
func NewEscrow(store Store, ark ArkClient, locks *PunkLocks, address ArkAddress, pubkey XOnlyPubKey, reserve Sats, feePercent int) *Escrow {
	return &Escrow{store: store, ark: ark, locks: locks, address: address, pubkey: pubkey, reserve: reserve, feePercent: feePercent}
}

// Info returns the escrow wallet's address and pubkey.
func (e *Escrow) Info() (ArkAddress, XOnlyPubKey) {
	return e.address, e.pubkey
}

// List opens a new listing in `pending`. A punk may carry at most one
// listing at a time; listing an already-listed punk is a conflict.
func (e *Escrow) List(ctx context.Context, punkID PunkID, sellerAddress ArkAddress, sellerPubkey XOnlyPubKey, price Sats, compressed *Payload) (*Listing, error) {
	if price == 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidArgument)
	}
	var out *Listing
	err := e.locks.WithLock(punkID, func() error {
		existing, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if existing != nil && existing.Status != StatusCancelled && existing.Status != StatusSold {
			return fmt.Errorf("%w: punk %s already has an active listing", ErrConflict, punkID)
		}
		now := time.Now().UTC()
		l := Listing{
			PunkID:             punkID,
			SellerAddress:      sellerAddress,
			SellerPubkey:       sellerPubkey,
			PriceSats:          price,
			Status:             StatusPending,
			EscrowAddress:      e.address,
			CompressedMetadata: compressed,
			CreatedAt:          now,
		}
		if err := e.store.CreateListing(ctx, l); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionListCreated, PunkID: &punkID, Seller: sellerAddress, AmountSats: &price, Status: AuditSuccess})
		out = &l
		return nil
	})
	return out, err
}

// Listings returns every listing regardless of state.
func (e *Escrow) Listings(ctx context.Context) ([]Listing, error) {
	return e.store.ListListings(ctx)
}

// Listing returns one listing, or ErrNotFound.
func (e *Escrow) Listing(ctx context.Context, punkID PunkID) (*Listing, error) {
	l, err := e.store.GetListing(ctx, punkID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInternal, err)
	}
	if l == nil {
		return nil, fmt.Errorf("%w: no listing for punk %s", ErrNotFound, punkID)
	}
	return l, nil
}

// ConfirmDeposit moves a listing from pending to deposited once the
// seller's Punk VTXO is verified present in the escrow wallet: an unspent
// VTXO at outpoint whose value equals the reserve exactly.
func (e *Escrow) ConfirmDeposit(ctx context.Context, punkID PunkID, outpoint Outpoint) (*Listing, error) {
	var out *Listing
	err := e.locks.WithLock(punkID, func() error {
		l, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if l == nil {
			return fmt.Errorf("%w: no listing for punk %s", ErrNotFound, punkID)
		}
		if l.Status != StatusPending {
			return fmt.Errorf("%w: listing for %s is %s, not pending", ErrPreconditionFailed, punkID, l.Status)
		}

		vtxos, err := e.ark.GetVTXOs(ctx)
		if err != nil {
			return fmt.Errorf("%w: listing escrow VTXOs: %s", ErrUpstreamFailure, err)
		}
		found := false
		for _, v := range vtxos {
			if v.Outpoint == outpoint && v.Value == e.reserve {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: no verified VTXO of %d sats at %s", ErrDepositUnverified, e.reserve, outpoint)
		}

		now := time.Now().UTC()
		if err := e.store.ConfirmDeposit(ctx, punkID, outpoint, now); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionDepositConfirmed, PunkID: &punkID, Seller: l.SellerAddress, Status: AuditSuccess, Details: map[string]any{"outpoint": string(outpoint)}})

		updated, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		out = updated
		return nil
	})
	return out, err
}

// Fee computes the marketplace fee for a given price under the configured
// fee percentage: `fee = price * FEE_PERCENT / 100`.
func (e *Escrow) Fee(price Sats) Sats {
	return Sats(uint64(price) * uint64(e.feePercent) / 100)
}

// Execute runs the atomic swap: listing must be `deposited` with no
// payment_txid recorded yet, and escrow balance must cover the price. Step
// 1 commits owner, history, and listing buyer fields in a single store
// transaction — once that succeeds the buyer owns the punk regardless of
// what happens to the payment legs that follow. A failure in step 2
// (payment send) does not roll back ownership; it is recorded with the
// PAYMENT_FAILED sentinel for manual operator retry.
func (e *Escrow) Execute(ctx context.Context, punkID PunkID, buyerAddress ArkAddress, buyerPubkey XOnlyPubKey) (*Listing, error) {
	var out *Listing
	err := e.locks.WithLock(punkID, func() error {
		l, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if l == nil {
			return fmt.Errorf("%w: no listing for punk %s", ErrNotFound, punkID)
		}
		if l.Status != StatusDeposited {
			return fmt.Errorf("%w: listing for %s is %s, not deposited", ErrPreconditionFailed, punkID, l.Status)
		}
		if l.PaymentTxid != "" {
			return fmt.Errorf("%w: payment already recorded for %s", ErrConflict, punkID)
		}

		balance, err := e.ark.GetBalance(ctx)
		if err != nil {
			return fmt.Errorf("%w: checking escrow balance: %s", ErrUpstreamFailure, err)
		}
		if balance < l.PriceSats {
			return fmt.Errorf("%w: escrow has %d sats, needs %d", ErrInsufficientFunds, balance, l.PriceSats)
		}

		now := time.Now().UTC()
		if err := e.store.ExecuteSale(ctx, ExecuteParams{PunkID: punkID, BuyerAddress: buyerAddress, BuyerPubkey: buyerPubkey, SoldAt: now}); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}

		fee := e.Fee(l.PriceSats)
		payout := l.PriceSats - fee
		paymentTxid, sendErr := e.ark.Send(ctx, l.SellerAddress, payout)
		if sendErr != nil {
			failTxid := PaymentFailedPrefix + sendErr.Error()
			_ = e.store.RecordPayment(ctx, punkID, failTxid)
			e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionPaymentFailed, PunkID: &punkID, Seller: l.SellerAddress, Buyer: buyerAddress, AmountSats: &payout, Status: AuditFailed, Error: sendErr.Error()})
			updated, _ := e.store.GetListing(ctx, punkID)
			out = updated
			return fmt.Errorf("%w: sending payment to seller: %s", ErrUpstreamFailure, sendErr)
		}
		if err := e.store.RecordPayment(ctx, punkID, paymentTxid); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionSaleCompleted, PunkID: &punkID, Seller: l.SellerAddress, Buyer: buyerAddress, AmountSats: &payout, Txid: paymentTxid, Status: AuditSuccess})

		depositTxid, err := e.ark.Send(ctx, l.SellerAddress, e.reserve)
		if err != nil {
			e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionPaymentFailed, PunkID: &punkID, Seller: l.SellerAddress, AmountSats: &e.reserve, Status: AuditFailed, Error: err.Error(), Details: map[string]any{"leg": "reserve_return"}})
		} else {
			if err := e.store.RecordDepositReturn(ctx, punkID, depositTxid); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
		}

		if err := e.store.InsertSale(ctx, SaleRecord{PunkID: punkID, PriceSats: l.PriceSats, Seller: l.SellerAddress, Buyer: buyerAddress, SoldAt: now, PaymentTxid: paymentTxid}); err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}

		updated, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		out = updated
		return nil
	})
	return out, err
}

// Cancel cancels a listing. A `pending` listing cancels outright. A `deposited` listing must have its reserve refunded to the
// seller first; the listing is only marked cancelled once that refund's
// txid is obtained — if the refund send fails, the listing stays
// `deposited` and the failure is surfaced for operator retry.
func (e *Escrow) Cancel(ctx context.Context, punkID PunkID) (*Listing, error) {
	var out *Listing
	err := e.locks.WithLock(punkID, func() error {
		l, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		if l == nil {
			return fmt.Errorf("%w: no listing for punk %s", ErrNotFound, punkID)
		}

		now := time.Now().UTC()
		switch l.Status {
		case StatusPending:
			if err := e.store.CancelListing(ctx, punkID, now); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionListingCancelled, PunkID: &punkID, Seller: l.SellerAddress, Status: AuditSuccess})

		case StatusDeposited:
			refundTxid, err := e.ark.Send(ctx, l.SellerAddress, e.reserve)
			if err != nil {
				e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionRefundFailed, PunkID: &punkID, Seller: l.SellerAddress, AmountSats: &e.reserve, Status: AuditFailed, Error: err.Error()})
				return fmt.Errorf("%w: refunding reserve to seller: %s", ErrUpstreamFailure, err)
			}
			if err := e.store.RecordDepositReturn(ctx, punkID, refundTxid); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			if err := e.store.CancelListing(ctx, punkID, now); err != nil {
				return fmt.Errorf("%w: %s", ErrInternal, err)
			}
			e.audit(ctx, AuditEntry{Timestamp: now, Action: ActionListingCancelled, PunkID: &punkID, Seller: l.SellerAddress, AmountSats: &e.reserve, Txid: refundTxid, Status: AuditSuccess})

		default:
			return fmt.Errorf("%w: listing for %s is %s, cannot cancel", ErrPreconditionFailed, punkID, l.Status)
		}

		updated, err := e.store.GetListing(ctx, punkID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		out = updated
		return nil
	})
	return out, err
}

func (e *Escrow) audit(ctx context.Context, entry AuditEntry) {
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	_ = e.store.AppendAudit(ctx, entry)
}
