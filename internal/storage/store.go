// Package storage is the SQLite-backed implementation of core.Store,
// grounded on the slidechain block store's raw-SQL idiom: a single
// *sql.DB, hand-written CREATE TABLE IF NOT EXISTS schema, and explicit
// Exec/Query calls rather than an ORM.
package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arkpunks/punks-core/core"
)

// Store is the database/sql-backed core.Store implementation.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serialises writers; avoid SQLITE_BUSY storms
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func hexEncode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// --- Punks / supply ---

func (s *Store) CountPunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM punks`).Scan(&n)
	return n, err
}

func (s *Store) GetPunk(ctx context.Context, id core.PunkID) (*core.PunkRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT punk_id, owner_address, compressed, server_signature, minted_at, updated_at FROM punks WHERE punk_id = ?`, id.String())
	r, err := scanPunkRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func scanPunkRow(row *sql.Row) (*core.PunkRow, error) {
	var punkIDHex, owner, compressedHex string
	var sigHex sql.NullString
	var mintedAt, updatedAt time.Time
	if err := row.Scan(&punkIDHex, &owner, &compressedHex, &sigHex, &mintedAt, &updatedAt); err != nil {
		return nil, err
	}
	id, err := core.ParsePunkID(punkIDHex)
	if err != nil {
		return nil, err
	}
	compressed, err := hexDecode(compressedHex)
	if err != nil {
		return nil, err
	}
	var payload core.Payload
	copy(payload[:], compressed)
	sig, err := hexDecode(sigHex.String)
	if err != nil {
		return nil, err
	}
	return &core.PunkRow{
		PunkID:          id,
		OwnerAddress:    core.ArkAddress(owner),
		Compressed:      payload,
		ServerSignature: sig,
		MintedAt:        mintedAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func (s *Store) InsertPunk(ctx context.Context, row core.PunkRow, history core.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO punks (punk_id, owner_address, compressed, server_signature, minted_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		row.PunkID.String(), string(row.OwnerAddress), hexEncode(row.Compressed[:]), hexEncode(row.ServerSignature), row.MintedAt, row.UpdatedAt)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO ownership_history (punk_id, from_addr, to_addr, ts) VALUES (?, ?, ?, ?)`,
		history.PunkID.String(), nullableString(string(history.From)), string(history.To), history.At)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) TouchPunk(ctx context.Context, id core.PunkID, compressed *core.Payload) error {
	now := time.Now().UTC()
	if compressed != nil {
		_, err := s.db.ExecContext(ctx, `UPDATE punks SET compressed = ?, updated_at = ? WHERE punk_id = ?`, hexEncode(compressed[:]), now, id.String())
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE punks SET updated_at = ? WHERE punk_id = ?`, now, id.String())
	return err
}

func (s *Store) MigratePunkOwner(ctx context.Context, id core.PunkID, newOwner core.ArkAddress, at time.Time) error {
	existing, err := s.GetPunk(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: punk %s", core.ErrNotFound, id)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE punks SET owner_address = ?, updated_at = ? WHERE punk_id = ?`, string(newOwner), at, id.String())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO ownership_history (punk_id, from_addr, to_addr, ts) VALUES (?, ?, ?, ?)`,
		id.String(), string(existing.OwnerAddress), string(newOwner), at)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListPunks(ctx context.Context) ([]core.PunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT punk_id, owner_address, compressed, server_signature, minted_at, updated_at FROM punks ORDER BY minted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPunkRows(rows)
}

func (s *Store) ListPunksByOwner(ctx context.Context, owner core.ArkAddress) ([]core.PunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT punk_id, owner_address, compressed, server_signature, minted_at, updated_at FROM punks WHERE owner_address = ? ORDER BY minted_at`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPunkRows(rows)
}

// FindReclaimable returns rows whose ownership_history shows minterPubkey's
// associated address as a prior owner, for recovery purposes. Since
// history only records addresses (never pubkeys directly), callers supply
// the derived address as the lookup key via minterPubkey.String(); storage
// treats it as an opaque address string.
func (s *Store) FindReclaimable(ctx context.Context, minterPubkey core.XOnlyPubKey) ([]core.PunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.punk_id, p.owner_address, p.compressed, p.server_signature, p.minted_at, p.updated_at
		FROM punks p
		WHERE p.punk_id IN (
			SELECT DISTINCT punk_id FROM ownership_history WHERE to_addr = ? OR from_addr = ?
		)
		ORDER BY p.minted_at`, minterPubkey.String(), minterPubkey.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPunkRows(rows)
}

func scanPunkRows(rows *sql.Rows) ([]core.PunkRow, error) {
	var out []core.PunkRow
	for rows.Next() {
		var punkIDHex, owner, compressedHex string
		var sigHex sql.NullString
		var mintedAt, updatedAt time.Time
		if err := rows.Scan(&punkIDHex, &owner, &compressedHex, &sigHex, &mintedAt, &updatedAt); err != nil {
			return nil, err
		}
		id, err := core.ParsePunkID(punkIDHex)
		if err != nil {
			return nil, err
		}
		compressed, err := hexDecode(compressedHex)
		if err != nil {
			return nil, err
		}
		var payload core.Payload
		copy(payload[:], compressed)
		sig, err := hexDecode(sigHex.String)
		if err != nil {
			return nil, err
		}
		out = append(out, core.PunkRow{
			PunkID:          id,
			OwnerAddress:    core.ArkAddress(owner),
			Compressed:      payload,
			ServerSignature: sig,
			MintedAt:        mintedAt,
			UpdatedAt:       updatedAt,
		})
	}
	return out, rows.Err()
}

// --- Listings ---

func (s *Store) CreateListing(ctx context.Context, l core.Listing) error {
	var compressedHex sql.NullString
	if l.CompressedMetadata != nil {
		compressedHex = sql.NullString{String: hexEncode(l.CompressedMetadata[:]), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (punk_id, seller_address, seller_pubkey, price_sats, status, escrow_address, compressed_metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.PunkID.String(), string(l.SellerAddress), l.SellerPubkey.String(), uint64(l.PriceSats), string(l.Status), string(l.EscrowAddress), compressedHex, l.CreatedAt)
	return err
}

func (s *Store) GetListing(ctx context.Context, id core.PunkID) (*core.Listing, error) {
	row := s.db.QueryRowContext(ctx, listingSelect+` WHERE punk_id = ?`, id.String())
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

const listingSelect = `SELECT punk_id, seller_address, seller_pubkey, price_sats, status, escrow_address,
	punk_vtxo_outpoint, compressed_metadata, created_at, deposited_at, sold_at, cancelled_at,
	buyer_address, buyer_pubkey, payment_txid, deposit_return_txid FROM listings`

func scanListing(row *sql.Row) (*core.Listing, error) {
	var l core.Listing
	var punkIDHex, sellerPubkeyHex string
	var outpoint, compressedHex, buyerPubkeyHex sql.NullString
	var depositedAt, soldAt, cancelledAt sql.NullTime
	var buyerAddress, paymentTxid, depositReturnTxid sql.NullString

	err := row.Scan(&punkIDHex, &l.SellerAddress, &sellerPubkeyHex, &l.PriceSats, &l.Status, &l.EscrowAddress,
		&outpoint, &compressedHex, &l.CreatedAt, &depositedAt, &soldAt, &cancelledAt,
		&buyerAddress, &buyerPubkeyHex, &paymentTxid, &depositReturnTxid)
	if err != nil {
		return nil, err
	}
	l.PunkID, err = core.ParsePunkID(punkIDHex)
	if err != nil {
		return nil, err
	}
	l.SellerPubkey, err = core.ParseXOnlyPubKey(sellerPubkeyHex)
	if err != nil {
		return nil, err
	}
	l.PunkVTXOOutpoint = core.Outpoint(outpoint.String)
	if compressedHex.Valid {
		b, err := hexDecode(compressedHex.String)
		if err != nil {
			return nil, err
		}
		var p core.Payload
		copy(p[:], b)
		l.CompressedMetadata = &p
	}
	if depositedAt.Valid {
		l.DepositedAt = &depositedAt.Time
	}
	if soldAt.Valid {
		l.SoldAt = &soldAt.Time
	}
	if cancelledAt.Valid {
		l.CancelledAt = &cancelledAt.Time
	}
	l.BuyerAddress = core.ArkAddress(buyerAddress.String)
	if buyerPubkeyHex.Valid && buyerPubkeyHex.String != "" {
		l.BuyerPubkey, err = core.ParseXOnlyPubKey(buyerPubkeyHex.String)
		if err != nil {
			return nil, err
		}
	}
	l.PaymentTxid = paymentTxid.String
	l.DepositReturnTxid = depositReturnTxid.String
	return &l, nil
}

func (s *Store) ListListings(ctx context.Context) ([]core.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT punk_id FROM listings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.Listing, 0, len(ids))
	for _, idHex := range ids {
		id, err := core.ParsePunkID(idHex)
		if err != nil {
			return nil, err
		}
		l, err := s.GetListing(ctx, id)
		if err != nil {
			return nil, err
		}
		if l != nil {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *Store) ConfirmDeposit(ctx context.Context, id core.PunkID, outpoint core.Outpoint, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET status = ?, punk_vtxo_outpoint = ?, deposited_at = ? WHERE punk_id = ? AND status = ?`,
		string(core.StatusDeposited), string(outpoint), at, id.String(), string(core.StatusPending))
	if err != nil {
		return err
	}
	return checkRowsAffected(res, id)
}

func (s *Store) ExecuteSale(ctx context.Context, p core.ExecuteParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sellerAddress string
	err = tx.QueryRowContext(ctx, `SELECT seller_address FROM listings WHERE punk_id = ? AND status = ?`, p.PunkID.String(), string(core.StatusDeposited)).Scan(&sellerAddress)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: listing %s is not deposited", core.ErrPreconditionFailed, p.PunkID)
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE listings SET status = ?, sold_at = ?, buyer_address = ?, buyer_pubkey = ? WHERE punk_id = ?`,
		string(core.StatusSold), p.SoldAt, string(p.BuyerAddress), p.BuyerPubkey.String(), p.PunkID.String())
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res, p.PunkID); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `UPDATE punks SET owner_address = ?, updated_at = ? WHERE punk_id = ?`, string(p.BuyerAddress), p.SoldAt, p.PunkID.String())
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res, p.PunkID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO ownership_history (punk_id, from_addr, to_addr, ts) VALUES (?, ?, ?, ?)`,
		p.PunkID.String(), sellerAddress, string(p.BuyerAddress), p.SoldAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RecordPayment(ctx context.Context, id core.PunkID, txid string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET payment_txid = ? WHERE punk_id = ?`, txid, id.String())
	if err != nil {
		return err
	}
	return checkRowsAffected(res, id)
}

func (s *Store) RecordDepositReturn(ctx context.Context, id core.PunkID, txid string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET deposit_return_txid = ? WHERE punk_id = ?`, txid, id.String())
	if err != nil {
		return err
	}
	return checkRowsAffected(res, id)
}

func (s *Store) CancelListing(ctx context.Context, id core.PunkID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET status = ?, cancelled_at = ? WHERE punk_id = ? AND status IN (?, ?)`,
		string(core.StatusCancelled), at, id.String(), string(core.StatusPending), string(core.StatusDeposited))
	if err != nil {
		return err
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id core.PunkID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no matching row for punk %s", core.ErrPreconditionFailed, id)
	}
	return nil
}

// --- Sales / stats ---

func (s *Store) InsertSale(ctx context.Context, sale core.SaleRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sales (punk_id, price_sats, seller, buyer, sold_at, payment_txid) VALUES (?, ?, ?, ?, ?, ?)`,
		sale.PunkID.String(), uint64(sale.PriceSats), string(sale.Seller), string(sale.Buyer), sale.SoldAt, sale.PaymentTxid)
	return err
}

func (s *Store) ListSales(ctx context.Context) ([]core.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT punk_id, price_sats, seller, buyer, sold_at, payment_txid FROM sales ORDER BY sold_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SaleRecord
	for rows.Next() {
		var punkIDHex, seller, buyer, paymentTxid string
		var priceSats uint64
		var soldAt time.Time
		if err := rows.Scan(&punkIDHex, &priceSats, &seller, &buyer, &soldAt, &paymentTxid); err != nil {
			return nil, err
		}
		id, err := core.ParsePunkID(punkIDHex)
		if err != nil {
			return nil, err
		}
		out = append(out, core.SaleRecord{
			PunkID: id, PriceSats: core.Sats(priceSats), Seller: core.ArkAddress(seller),
			Buyer: core.ArkAddress(buyer), SoldAt: soldAt, PaymentTxid: paymentTxid,
		})
	}
	return out, rows.Err()
}

// --- Audit ---

func (s *Store) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	var punkIDHex sql.NullString
	if e.PunkID != nil {
		punkIDHex = sql.NullString{String: e.PunkID.String(), Valid: true}
	}
	var amount sql.NullInt64
	if e.AmountSats != nil {
		amount = sql.NullInt64{Int64: int64(*e.AmountSats), Valid: true}
	}
	var detailsJSON sql.NullString
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		detailsJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (request_id, timestamp, action, punk_id, seller, buyer, amount_sats, txid, status, error, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(e.RequestID), e.Timestamp, e.Action, punkIDHex, nullableString(string(e.Seller)), nullableString(string(e.Buyer)), amount, nullableString(e.Txid), string(e.Status), nullableString(e.Error), detailsJSON)
	return err
}

func (s *Store) ListAudit(ctx context.Context, since time.Time, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, timestamp, action, punk_id, seller, buyer, amount_sats, txid, status, error, details_json
		FROM audit_log WHERE timestamp >= ? ORDER BY timestamp DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var e core.AuditEntry
		var requestID, punkIDHex, seller, buyer, txid, errMsg, detailsJSON sql.NullString
		var amount sql.NullInt64
		if err := rows.Scan(&requestID, &e.Timestamp, &e.Action, &punkIDHex, &seller, &buyer, &amount, &txid, &e.Status, &errMsg, &detailsJSON); err != nil {
			return nil, err
		}
		e.RequestID = requestID.String
		if punkIDHex.Valid {
			id, err := core.ParsePunkID(punkIDHex.String)
			if err != nil {
				return nil, err
			}
			e.PunkID = &id
		}
		e.Seller = core.ArkAddress(seller.String)
		e.Buyer = core.ArkAddress(buyer.String)
		if amount.Valid {
			a := core.Sats(amount.Int64)
			e.AmountSats = &a
		}
		e.Txid = txid.String
		e.Error = errMsg.String
		if detailsJSON.Valid {
			var details map[string]any
			if err := json.Unmarshal([]byte(detailsJSON.String), &details); err != nil {
				return nil, err
			}
			e.Details = details
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ core.Store = (*Store)(nil)
