package core

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// memStore is an in-memory Store used across the package's tests. It keeps
// just enough transactional shape to exercise the invariants Escrow and
// Registry depend on (ExecuteSale touches punks, listings and history
// together) without needing a real database.
type memStore struct {
	punks    map[PunkID]PunkRow
	history  map[PunkID][]HistoryEntry
	listings map[PunkID]Listing
	sales    []SaleRecord
	audit    []AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		punks:    make(map[PunkID]PunkRow),
		history:  make(map[PunkID][]HistoryEntry),
		listings: make(map[PunkID]Listing),
	}
}

func (m *memStore) CountPunks(ctx context.Context) (int, error) { return len(m.punks), nil }

func (m *memStore) GetPunk(ctx context.Context, id PunkID) (*PunkRow, error) {
	row, ok := m.punks[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memStore) InsertPunk(ctx context.Context, row PunkRow, history HistoryEntry) error {
	if _, ok := m.punks[row.PunkID]; ok {
		return fmt.Errorf("%w: punk already exists", ErrConflict)
	}
	m.punks[row.PunkID] = row
	m.history[row.PunkID] = append(m.history[row.PunkID], history)
	return nil
}

func (m *memStore) TouchPunk(ctx context.Context, id PunkID, compressed *Payload) error {
	row, ok := m.punks[id]
	if !ok {
		return fmt.Errorf("%w: punk not found", ErrNotFound)
	}
	if compressed != nil {
		row.Compressed = *compressed
	}
	row.UpdatedAt = time.Now().UTC()
	m.punks[id] = row
	return nil
}

func (m *memStore) MigratePunkOwner(ctx context.Context, id PunkID, newOwner ArkAddress, at time.Time) error {
	row, ok := m.punks[id]
	if !ok {
		return fmt.Errorf("%w: punk not found", ErrNotFound)
	}
	old := row.OwnerAddress
	row.OwnerAddress = newOwner
	row.UpdatedAt = at
	m.punks[id] = row
	m.history[id] = append(m.history[id], HistoryEntry{PunkID: id, From: old, To: newOwner, At: at})
	return nil
}

func (m *memStore) ListPunks(ctx context.Context) ([]PunkRow, error) {
	out := make([]PunkRow, 0, len(m.punks))
	for _, row := range m.punks {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PunkID.String() < out[j].PunkID.String() })
	return out, nil
}

func (m *memStore) ListPunksByOwner(ctx context.Context, owner ArkAddress) ([]PunkRow, error) {
	var out []PunkRow
	for _, row := range m.punks {
		if row.OwnerAddress == owner {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memStore) FindReclaimable(ctx context.Context, minterPubkey XOnlyPubKey) ([]PunkRow, error) {
	return nil, nil
}

func (m *memStore) CreateListing(ctx context.Context, l Listing) error {
	m.listings[l.PunkID] = l
	return nil
}

func (m *memStore) GetListing(ctx context.Context, id PunkID) (*Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memStore) ListListings(ctx context.Context) ([]Listing, error) {
	out := make([]Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) ConfirmDeposit(ctx context.Context, id PunkID, outpoint Outpoint, at time.Time) error {
	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: listing not found", ErrNotFound)
	}
	l.Status = StatusDeposited
	l.PunkVTXOOutpoint = outpoint
	l.DepositedAt = &at
	m.listings[id] = l
	return nil
}

func (m *memStore) ExecuteSale(ctx context.Context, p ExecuteParams) error {
	l, ok := m.listings[p.PunkID]
	if !ok {
		return fmt.Errorf("%w: listing not found", ErrNotFound)
	}
	row, ok := m.punks[p.PunkID]
	if !ok {
		return fmt.Errorf("%w: punk not found", ErrNotFound)
	}
	from := row.OwnerAddress
	row.OwnerAddress = p.BuyerAddress
	row.UpdatedAt = p.SoldAt
	m.punks[p.PunkID] = row
	m.history[p.PunkID] = append(m.history[p.PunkID], HistoryEntry{PunkID: p.PunkID, From: from, To: p.BuyerAddress, At: p.SoldAt})

	l.Status = StatusSold
	l.SoldAt = &p.SoldAt
	l.BuyerAddress = p.BuyerAddress
	l.BuyerPubkey = p.BuyerPubkey
	m.listings[p.PunkID] = l
	return nil
}

func (m *memStore) RecordPayment(ctx context.Context, id PunkID, txid string) error {
	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: listing not found", ErrNotFound)
	}
	l.PaymentTxid = txid
	m.listings[id] = l
	return nil
}

func (m *memStore) RecordDepositReturn(ctx context.Context, id PunkID, txid string) error {
	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: listing not found", ErrNotFound)
	}
	l.DepositReturnTxid = txid
	m.listings[id] = l
	return nil
}

func (m *memStore) CancelListing(ctx context.Context, id PunkID, at time.Time) error {
	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: listing not found", ErrNotFound)
	}
	l.Status = StatusCancelled
	l.CancelledAt = &at
	m.listings[id] = l
	return nil
}

func (m *memStore) InsertSale(ctx context.Context, s SaleRecord) error {
	m.sales = append(m.sales, s)
	return nil
}

func (m *memStore) ListSales(ctx context.Context) ([]SaleRecord, error) { return m.sales, nil }

func (m *memStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]AuditEntry, error) {
	var out []AuditEntry
	for _, e := range m.audit {
		if e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ Store = (*memStore)(nil)

// fakeArk is a scriptable ArkClient test double.
type fakeArk struct {
	vtxos        []VTXO
	balance      Sats
	sendErr      error
	sendTxid     string
	sendCalls    []fakeSendCall
	boardingAddr string
}

type fakeSendCall struct {
	Address ArkAddress
	Amount  Sats
}

func (f *fakeArk) Send(ctx context.Context, address ArkAddress, amount Sats) (string, error) {
	f.sendCalls = append(f.sendCalls, fakeSendCall{Address: address, Amount: amount})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if f.sendTxid != "" {
		return f.sendTxid, nil
	}
	return "txid-" + string(address), nil
}

func (f *fakeArk) GetVTXOs(ctx context.Context) ([]VTXO, error) { return f.vtxos, nil }
func (f *fakeArk) GetBalance(ctx context.Context) (Sats, error) { return f.balance, nil }
func (f *fakeArk) GetBoardingAddress(ctx context.Context) (string, error) {
	return f.boardingAddr, nil
}

var _ ArkClient = (*fakeArk)(nil)

func testPunkID(t interface{ Helper() }, seed string) PunkID {
	g, err := Generate(seed)
	if err != nil {
		panic(err)
	}
	return g.PunkID
}
