package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MinReserveClaimSats is the lower bound below which a reserve-claim top-up
// is not worth sending.
const MinReserveClaimSats Sats = 1_000

// ReserveClaimResult reports the outcome of one wallet's top-up attempt.
type ReserveClaimResult struct {
	Wallet  ArkAddress
	Owed    Sats
	Paid    Sats
	Txid    string
	Skipped bool
	Reason  string
}

// ReserveClaim is the idempotent operational repair: for each wallet whose
// on-chain/Ark balance has fallen short of what its punk count
// requires (punkCount * reservePerPunk), send the difference — bounded
// below by MinReserveClaimSats and above by the escrow wallet's own
// available balance. walletBalances supplies each wallet's currently known
// balance (sourced from the Ark layer or esplora by the caller); a wallet
// absent from the map is treated as having zero balance.
func ReserveClaim(ctx context.Context, store Store, ark ArkClient, reservePerPunk Sats, walletBalances map[ArkAddress]Sats) ([]ReserveClaimResult, error) {
	rows, err := store.ListPunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing punks: %s", ErrInternal, err)
	}

	owned := make(map[ArkAddress]int)
	for _, r := range rows {
		owned[r.OwnerAddress]++
	}

	available, err := ark.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: checking escrow balance: %s", ErrUpstreamFailure, err)
	}

	results := make([]ReserveClaimResult, 0, len(owned))
	for wallet, count := range owned {
		required := reservePerPunk * Sats(count)
		balance := walletBalances[wallet]
		if balance >= required {
			continue
		}
		owed := required - balance
		if owed < MinReserveClaimSats {
			results = append(results, ReserveClaimResult{Wallet: wallet, Owed: owed, Skipped: true, Reason: "below minimum claim threshold"})
			continue
		}
		if owed > available {
			owed = available
		}
		if owed == 0 {
			results = append(results, ReserveClaimResult{Wallet: wallet, Owed: required - balance, Skipped: true, Reason: "escrow has insufficient available balance"})
			continue
		}

		now := time.Now().UTC()
		txid, err := ark.Send(ctx, wallet, owed)
		if err != nil {
			results = append(results, ReserveClaimResult{Wallet: wallet, Owed: owed, Skipped: true, Reason: err.Error()})
			_ = store.AppendAudit(ctx, AuditEntry{RequestID: uuid.NewString(), Timestamp: now, Action: ActionReserveClaimed, Seller: wallet, AmountSats: &owed, Status: AuditFailed, Error: err.Error()})
			continue
		}
		available -= owed
		_ = store.AppendAudit(ctx, AuditEntry{RequestID: uuid.NewString(), Timestamp: now, Action: ActionReserveClaimed, Seller: wallet, AmountSats: &owed, Txid: txid, Status: AuditSuccess})
		results = append(results, ReserveClaimResult{Wallet: wallet, Owed: owed, Paid: owed, Txid: txid})
	}
	return results, nil
}
