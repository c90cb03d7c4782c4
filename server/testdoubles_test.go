package server

import (
	"context"
	"sync"
	"time"

	"github.com/arkpunks/punks-core/core"
)

// memStore is a minimal in-memory core.Store for exercising the HTTP
// handlers without a real database.
type memStore struct {
	mu       sync.Mutex
	punks    map[core.PunkID]core.PunkRow
	history  map[core.PunkID][]core.HistoryEntry
	listings map[core.PunkID]core.Listing
	sales    []core.SaleRecord
	audit    []core.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		punks:    map[core.PunkID]core.PunkRow{},
		history:  map[core.PunkID][]core.HistoryEntry{},
		listings: map[core.PunkID]core.Listing{},
	}
}

func (s *memStore) CountPunks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.punks), nil
}

func (s *memStore) GetPunk(ctx context.Context, id core.PunkID) (*core.PunkRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.punks[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memStore) InsertPunk(ctx context.Context, row core.PunkRow, hist core.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.punks[row.PunkID] = row
	s.history[row.PunkID] = append(s.history[row.PunkID], hist)
	return nil
}

func (s *memStore) TouchPunk(ctx context.Context, id core.PunkID, compressed *core.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.punks[id]
	if !ok {
		return nil
	}
	if compressed != nil {
		row.Compressed = *compressed
	}
	row.UpdatedAt = time.Now().UTC()
	s.punks[id] = row
	return nil
}

func (s *memStore) MigratePunkOwner(ctx context.Context, id core.PunkID, newOwner core.ArkAddress, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.punks[id]
	if !ok {
		return nil
	}
	from := row.OwnerAddress
	row.OwnerAddress = newOwner
	row.UpdatedAt = at
	s.punks[id] = row
	s.history[id] = append(s.history[id], core.HistoryEntry{PunkID: id, From: from, To: newOwner, At: at})
	return nil
}

func (s *memStore) ListPunks(ctx context.Context) ([]core.PunkRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PunkRow, 0, len(s.punks))
	for _, row := range s.punks {
		out = append(out, row)
	}
	return out, nil
}

func (s *memStore) ListPunksByOwner(ctx context.Context, owner core.ArkAddress) ([]core.PunkRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PunkRow
	for _, row := range s.punks {
		if row.OwnerAddress == owner {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memStore) FindReclaimable(ctx context.Context, minterPubkey core.XOnlyPubKey) ([]core.PunkRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PunkRow
	target := minterPubkey.String()
	for id, entries := range s.history {
		for _, e := range entries {
			if string(e.To) == target || string(e.From) == target {
				if row, ok := s.punks[id]; ok {
					out = append(out, row)
				}
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) CreateListing(ctx context.Context, l core.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.PunkID] = l
	return nil
}

func (s *memStore) GetListing(ctx context.Context, id core.PunkID) (*core.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *memStore) ListListings(ctx context.Context) ([]core.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	return out, nil
}

func (s *memStore) ConfirmDeposit(ctx context.Context, id core.PunkID, outpoint core.Outpoint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	if l.Status != core.StatusPending {
		return core.ErrPreconditionFailed
	}
	l.Status = core.StatusDeposited
	l.PunkVTXOOutpoint = outpoint
	l.DepositedAt = &at
	s.listings[id] = l
	return nil
}

func (s *memStore) ExecuteSale(ctx context.Context, p core.ExecuteParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[p.PunkID]
	if !ok {
		return core.ErrNotFound
	}
	if l.Status != core.StatusDeposited {
		return core.ErrPreconditionFailed
	}
	l.Status = core.StatusSold
	l.BuyerAddress = p.BuyerAddress
	l.BuyerPubkey = p.BuyerPubkey
	l.SoldAt = &p.SoldAt
	s.listings[p.PunkID] = l

	row, ok := s.punks[p.PunkID]
	if ok {
		row.OwnerAddress = p.BuyerAddress
		row.UpdatedAt = p.SoldAt
		s.punks[p.PunkID] = row
	}
	return nil
}

func (s *memStore) RecordPayment(ctx context.Context, id core.PunkID, txid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	l.PaymentTxid = txid
	s.listings[id] = l
	return nil
}

func (s *memStore) RecordDepositReturn(ctx context.Context, id core.PunkID, txid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	l.DepositReturnTxid = txid
	s.listings[id] = l
	return nil
}

func (s *memStore) CancelListing(ctx context.Context, id core.PunkID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	if l.Status == core.StatusSold || l.Status == core.StatusCancelled {
		return core.ErrPreconditionFailed
	}
	l.Status = core.StatusCancelled
	l.CancelledAt = &at
	s.listings[id] = l
	return nil
}

func (s *memStore) InsertSale(ctx context.Context, sale core.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return nil
}

func (s *memStore) ListSales(ctx context.Context) ([]core.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SaleRecord, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

func (s *memStore) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

func (s *memStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]core.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditEntry
	for _, e := range s.audit {
		if e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeArk is a scriptable core.ArkClient for handler tests.
type fakeArk struct {
	mu      sync.Mutex
	vtxos   []core.VTXO
	balance core.Sats
	sendErr error
	sends   []struct {
		Address core.ArkAddress
		Amount  core.Sats
	}
}

func (a *fakeArk) Send(ctx context.Context, address core.ArkAddress, amount core.Sats) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return "", a.sendErr
	}
	a.sends = append(a.sends, struct {
		Address core.ArkAddress
		Amount  core.Sats
	}{address, amount})
	return "txid-fake", nil
}

func (a *fakeArk) GetVTXOs(ctx context.Context) ([]core.VTXO, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vtxos, nil
}

func (a *fakeArk) GetBalance(ctx context.Context) (core.Sats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

func (a *fakeArk) GetBoardingAddress(ctx context.Context) (string, error) {
	return "bc1qboarding", nil
}
