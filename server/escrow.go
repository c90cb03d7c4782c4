package server

import (
	"net/http"

	"github.com/arkpunks/punks-core/core"
)

type escrowListRequest struct {
	PunkID             string `json:"punkId"`
	SellerPubkey       string `json:"sellerPubkey"`
	SellerArkAddress   string `json:"sellerArkAddress"`
	Price              uint64 `json:"price"`
	CompressedMetadata string `json:"compressedMetadata,omitempty"`
}

func (s *Server) escrowList(w http.ResponseWriter, r *http.Request) {
	var req escrowListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := core.ParsePunkID(req.PunkID)
	if err != nil {
		writeError(w, err)
		return
	}
	pubkey, err := core.ParseXOnlyPubKey(req.SellerPubkey)
	if err != nil {
		writeError(w, err)
		return
	}
	var compressed *core.Payload
	if req.CompressedMetadata != "" {
		p, err := hexToPayload(req.CompressedMetadata)
		if err != nil {
			writeError(w, err)
			return
		}
		compressed = &p
	}

	listing, err := s.escrow.List(r.Context(), id, core.ArkAddress(req.SellerArkAddress), pubkey, core.Sats(req.Price), compressed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) escrowInfo(w http.ResponseWriter, r *http.Request) {
	address, pubkey := s.escrow.Info()
	writeJSON(w, http.StatusOK, map[string]string{"address": string(address), "pubkey": pubkey.String()})
}

func (s *Server) escrowListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.escrow.Listings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

type escrowOutpointRequest struct {
	PunkID           string `json:"punkId"`
	PunkVTXOOutpoint string `json:"punkVtxoOutpoint"`
}

func (s *Server) escrowUpdateOutpoint(w http.ResponseWriter, r *http.Request) {
	var req escrowOutpointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := core.ParsePunkID(req.PunkID)
	if err != nil {
		writeError(w, err)
		return
	}
	listing, err := s.escrow.ConfirmDeposit(r.Context(), id, core.Outpoint(req.PunkVTXOOutpoint))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type escrowBuyRequest struct {
	PunkID          string `json:"punkId"`
	BuyerPubkey     string `json:"buyerPubkey"`
	BuyerArkAddress string `json:"buyerArkAddress"`
}

func (s *Server) escrowBuyQuote(w http.ResponseWriter, r *http.Request) {
	var req escrowBuyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := core.ParsePunkID(req.PunkID)
	if err != nil {
		writeError(w, err)
		return
	}
	listing, err := s.escrow.Listing(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	address, _ := s.escrow.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"punkId":        req.PunkID,
		"price":         listing.PriceSats,
		"escrowAddress": address,
	})
}

func (s *Server) escrowExecute(w http.ResponseWriter, r *http.Request) {
	var req escrowBuyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := core.ParsePunkID(req.PunkID)
	if err != nil {
		writeError(w, err)
		return
	}
	buyerPubkey, err := core.ParseXOnlyPubKey(req.BuyerPubkey)
	if err != nil {
		writeError(w, err)
		return
	}
	listing, err := s.escrow.Execute(r.Context(), id, core.ArkAddress(req.BuyerArkAddress), buyerPubkey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type escrowCancelRequest struct {
	PunkID        string `json:"punkId"`
	SellerAddress string `json:"sellerAddress"`
}

func (s *Server) escrowCancel(w http.ResponseWriter, r *http.Request) {
	var req escrowCancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := core.ParsePunkID(req.PunkID)
	if err != nil {
		writeError(w, err)
		return
	}
	listing, err := s.escrow.Listing(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if string(listing.SellerAddress) != req.SellerAddress {
		writeError(w, core.ErrForbidden)
		return
	}
	cancelled, err := s.escrow.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}
