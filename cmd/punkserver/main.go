// Command punkserver runs the Punks marketplace HTTP server.
package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/arkpunks/punks-core/core"
	"github.com/arkpunks/punks-core/internal/arkrpc"
	"github.com/arkpunks/punks-core/internal/config"
	"github.com/arkpunks/punks-core/internal/storage"
	"github.com/arkpunks/punks-core/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	core.SeedLegacy(cfg.LegacyPunkIDs)

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if len(cfg.ServerPrivKey) == 0 {
		log.Fatal("SERVER_PRIVATE_KEY is required")
	}
	signer, err := core.NewServerSigner(cfg.ServerPrivKey)
	if err != nil {
		log.Fatalf("loading server signer: %v", err)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync()

	locks := core.NewPunkLocks()
	registry := core.NewRegistry(store, signer, locks, cfg.MaxTotalPunks, zlog.Sugar())

	ark := arkrpc.New(cfg.ArkServerURL, cfg.EscrowPrivKey)
	escrow := core.NewEscrow(store, ark, locks, core.ArkAddress(cfg.EscrowAddress), signer.Pubkey(), core.Sats(cfg.ReserveSats), cfg.FeePercent)

	_, router := server.New(store, registry, escrow, ark, cfg.AdminPassword, core.Sats(cfg.ReserveSats))

	log.Infof("punkserver listening on %s (network=%s)", cfg.ListenAddr, cfg.Network)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatal(err)
	}
}
