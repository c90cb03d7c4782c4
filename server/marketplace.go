package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/arkpunks/punks-core/core"
)

func (s *Server) marketplaceSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.store.ListSales(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := core.Stats(r.Context(), s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales, "stats": stats})
}

func (s *Server) adminAudit(w http.ResponseWriter, r *http.Request) {
	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, core.ErrInvalidArgument)
			return
		}
		since = parsed
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, core.ErrInvalidArgument)
			return
		}
		limit = n
	}
	entries, err := s.store.ListAudit(r.Context(), since, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) adminReserveClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletBalances map[string]uint64 `json:"walletBalances"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	balances := make(map[core.ArkAddress]core.Sats, len(req.WalletBalances))
	for addr, bal := range req.WalletBalances {
		balances[core.ArkAddress(addr)] = core.Sats(bal)
	}
	results, err := core.ReserveClaim(r.Context(), s.store, s.ark, s.reservePerPunk, balances)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
