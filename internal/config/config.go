// Package config loads process-wide settings from the environment using a
// .env file plus os.Getenv.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/arkpunks/punks-core/core"
	"github.com/arkpunks/punks-core/pkg/utils"
)

// Network identifies which Bitcoin network the server operates against.
type Network string

const (
	NetworkMutinynet Network = "mutinynet"
	NetworkMainnet   Network = "mainnet"
	NetworkRegtest   Network = "regtest"
)

// Config holds every recognised runtime option. The escrow wallet's
// private key is process-wide state, initialised once at boot and never
// rotated at runtime — restart the process to change it.
type Config struct {
	ArkServerURL  string
	EsploraURL    string
	Network       Network
	EscrowAddress string
	EscrowPrivKey []byte
	ServerPrivKey []byte
	AdminPassword string
	MaxTotalPunks int
	ReserveSats   uint64
	FeePercent    int
	ListenAddr    string
	DatabasePath  string
	LegacyPunkIDs []core.PunkID
}

// Load reads a .env file if present (missing is not an error, matching
// godotenv's typical non-production use) and then resolves every setting
// from the environment, falling back to the documented defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ArkServerURL:  utils.EnvOrDefault("ARK_SERVER_URL", "https://ark.mutinynet.com"),
		EsploraURL:    utils.EnvOrDefault("ESPLORA_URL", "https://mutinynet.com/api"),
		Network:       Network(utils.EnvOrDefault("NETWORK", string(NetworkMutinynet))),
		EscrowAddress: utils.EnvOrDefault("ESCROW_WALLET_ADDRESS", ""),
		AdminPassword: utils.EnvOrDefault("ADMIN_PASSWORD", ""),
		MaxTotalPunks: utils.EnvOrDefaultInt("MAX_TOTAL_PUNKS", 2016),
		ReserveSats:   utils.EnvOrDefaultUint64("RESERVE_SATS", 10_000),
		FeePercent:    utils.EnvOrDefaultInt("FEE_PERCENT", 0),
		ListenAddr:    utils.EnvOrDefault("LISTEN_ADDR", ":8080"),
		DatabasePath:  utils.EnvOrDefault("DATABASE_PATH", "punks.db"),
	}

	switch cfg.Network {
	case NetworkMutinynet, NetworkMainnet, NetworkRegtest:
	default:
		return nil, fmt.Errorf("unrecognised network %q", cfg.Network)
	}

	if raw := utils.EnvOrDefault("ESCROW_WALLET_PRIVATE_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, utils.Wrap(err, "parsing ESCROW_WALLET_PRIVATE_KEY")
		}
		cfg.EscrowPrivKey = key
	}
	if raw := utils.EnvOrDefault("SERVER_PRIVATE_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, utils.Wrap(err, "parsing SERVER_PRIVATE_KEY")
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("SERVER_PRIVATE_KEY must be 32 bytes, got %d", len(key))
		}
		cfg.ServerPrivKey = key
	}

	if raw := utils.EnvOrDefault("LEGACY_PUNK_IDS", ""); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := core.ParsePunkID(field)
			if err != nil {
				return nil, utils.Wrap(err, "parsing LEGACY_PUNK_IDS")
			}
			cfg.LegacyPunkIDs = append(cfg.LegacyPunkIDs, id)
		}
	}

	return cfg, nil
}
