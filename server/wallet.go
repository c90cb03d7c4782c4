package server

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/arkpunks/punks-core/core"
)

func (s *Server) walletStatus(w http.ResponseWriter, r *http.Request) {
	address := core.ArkAddress(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, core.ErrInvalidArgument)
		return
	}
	rows, err := s.registry.ListPunks(r.Context(), &address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":      address,
		"isRegistered": len(rows) > 0,
		"punkCount":    len(rows),
	})
}

type walletRegisterPunk struct {
	PunkID             string  `json:"punkId"`
	MintDate           *string `json:"mintDate,omitempty"`
	CompressedMetadata *string `json:"compressedMetadata,omitempty"`
}

type walletRegisterRequest struct {
	Address        string               `json:"address"`
	BitcoinAddress string               `json:"bitcoinAddress,omitempty"`
	Punks          []walletRegisterPunk `json:"punks"`
}

func (s *Server) walletRegister(w http.ResponseWriter, r *http.Request) {
	var req walletRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Address == "" {
		writeError(w, core.ErrInvalidArgument)
		return
	}

	subs := make([]core.PunkSubmission, 0, len(req.Punks))
	for _, p := range req.Punks {
		id, err := core.ParsePunkID(p.PunkID)
		if err != nil {
			writeError(w, err)
			return
		}
		sub := core.PunkSubmission{PunkID: id}
		if p.MintDate != nil {
			ts, err := time.Parse(time.RFC3339, *p.MintDate)
			if err != nil {
				writeError(w, core.ErrInvalidArgument)
				return
			}
			sub.MintTS = &ts
		}
		if p.CompressedMetadata != nil {
			raw, err := hexToPayload(*p.CompressedMetadata)
			if err != nil {
				writeError(w, err)
				return
			}
			sub.Compressed = &raw
		}
		subs = append(subs, sub)
	}

	results, err := s.registry.Register(r.Context(), core.ArkAddress(req.Address), core.ArkAddress(req.BitcoinAddress), subs)
	if err != nil {
		writeError(w, err)
		return
	}

	summary := map[core.RegisterOutcome]int{}
	for _, res := range results {
		summary[res.Action]++
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "results": results})
}

type walletRecoverRequest struct {
	MinterPubkey string `json:"minterPubkey"`
}

func (s *Server) walletRecover(w http.ResponseWriter, r *http.Request) {
	var req walletRecoverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pubkey, err := core.ParseXOnlyPubKey(req.MinterPubkey)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.registry.Recover(r.Context(), pubkey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": rows})
}

func (s *Server) listPunks(w http.ResponseWriter, r *http.Request) {
	rows, err := s.registry.ListPunks(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) listPunksByOwner(w http.ResponseWriter, r *http.Request) {
	address := core.ArkAddress(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, core.ErrInvalidArgument)
		return
	}
	rows, err := s.registry.ListPunks(r.Context(), &address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) supply(w http.ResponseWriter, r *http.Request) {
	minted, max, err := s.registry.Supply(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalMinted": minted, "maxPunks": max})
}

func hexToPayload(s string) (core.Payload, error) {
	var p core.Payload
	raw, err := hex.DecodeString(s)
	if err != nil {
		return p, core.ErrInvalidArgument
	}
	if len(raw) != core.PayloadSize {
		return p, core.ErrInvalidLength
	}
	copy(p[:], raw)
	return p, nil
}
