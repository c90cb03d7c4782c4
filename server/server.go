// Package server implements the HTTP surface: wallet registry reads/writes,
// the escrow marketplace endpoints, and the password-gated admin endpoints,
// wired with gorilla/mux and a logrus request-logging middleware.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arkpunks/punks-core/core"
	"github.com/arkpunks/punks-core/server/middleware"
)

// Server bundles the domain components an HTTP request may need.
type Server struct {
	store          core.Store
	registry       *core.Registry
	escrow         *core.Escrow
	ark            core.ArkClient
	adminPassword  string
	reservePerPunk core.Sats
}

// New constructs a Server and its mux.Router.
func New(store core.Store, registry *core.Registry, escrow *core.Escrow, ark core.ArkClient, adminPassword string, reservePerPunk core.Sats) (*Server, *mux.Router) {
	s := &Server{store: store, registry: registry, escrow: escrow, ark: ark, adminPassword: adminPassword, reservePerPunk: reservePerPunk}

	r := mux.NewRouter()
	r.Use(middleware.Logger)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	r.HandleFunc("/api/wallet/status", s.walletStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/wallet/register", s.walletRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/wallet/recover", s.walletRecover).Methods(http.MethodPost)

	r.HandleFunc("/api/punks", s.listPunks).Methods(http.MethodGet)
	r.HandleFunc("/api/punks/owner", s.listPunksByOwner).Methods(http.MethodGet)
	r.HandleFunc("/api/supply", s.supply).Methods(http.MethodGet)

	r.HandleFunc("/api/escrow/list", s.escrowList).Methods(http.MethodPost)
	r.HandleFunc("/api/escrow/info", s.escrowInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/escrow/listings", s.escrowListings).Methods(http.MethodGet)
	r.HandleFunc("/api/escrow/update-outpoint", s.escrowUpdateOutpoint).Methods(http.MethodPost)
	r.HandleFunc("/api/escrow/buy", s.escrowBuyQuote).Methods(http.MethodPost)
	r.HandleFunc("/api/escrow/execute", s.escrowExecute).Methods(http.MethodPost)
	r.HandleFunc("/api/escrow/cancel", s.escrowCancel).Methods(http.MethodPost)

	r.HandleFunc("/api/marketplace/sales", s.marketplaceSales).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/audit", s.adminAudit).Methods(http.MethodGet)
	admin.HandleFunc("/reserve-claim", s.adminReserveClaim).Methods(http.MethodPost)

	return s, r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminPassword == "" || r.Header.Get("X-Admin-Password") != s.adminPassword {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
