package storage

const schema = `
CREATE TABLE IF NOT EXISTS punks (
  punk_id          TEXT NOT NULL PRIMARY KEY,
  owner_address    TEXT NOT NULL,
  compressed       TEXT NOT NULL,
  server_signature TEXT,
  minted_at        TIMESTAMP NOT NULL,
  updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS punks_owner ON punks (owner_address);

CREATE TABLE IF NOT EXISTS ownership_history (
  id       INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  punk_id  TEXT NOT NULL,
  from_addr TEXT,
  to_addr  TEXT NOT NULL,
  ts       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS history_punk ON ownership_history (punk_id);

CREATE TABLE IF NOT EXISTS listings (
  punk_id            TEXT NOT NULL PRIMARY KEY,
  seller_address     TEXT NOT NULL,
  seller_pubkey      TEXT NOT NULL,
  price_sats         INTEGER NOT NULL,
  status             TEXT NOT NULL,
  escrow_address     TEXT NOT NULL,
  punk_vtxo_outpoint TEXT,
  compressed_metadata TEXT,
  created_at         TIMESTAMP NOT NULL,
  deposited_at       TIMESTAMP,
  sold_at            TIMESTAMP,
  cancelled_at       TIMESTAMP,
  buyer_address      TEXT,
  buyer_pubkey       TEXT,
  payment_txid       TEXT,
  deposit_return_txid TEXT
);

CREATE INDEX IF NOT EXISTS listings_status ON listings (status);

CREATE TABLE IF NOT EXISTS sales (
  id           INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  punk_id      TEXT NOT NULL,
  price_sats   INTEGER NOT NULL,
  seller       TEXT NOT NULL,
  buyer        TEXT NOT NULL,
  sold_at      TIMESTAMP NOT NULL,
  payment_txid TEXT
);

CREATE TABLE IF NOT EXISTS audit_log (
  id          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  request_id  TEXT,
  timestamp   TIMESTAMP NOT NULL,
  action      TEXT NOT NULL,
  punk_id     TEXT,
  seller      TEXT,
  buyer       TEXT,
  amount_sats INTEGER,
  txid        TEXT,
  status      TEXT NOT NULL,
  error       TEXT,
  details_json TEXT
);

CREATE INDEX IF NOT EXISTS audit_punk ON audit_log (punk_id);
CREATE INDEX IF NOT EXISTS audit_ts ON audit_log (timestamp);
`
