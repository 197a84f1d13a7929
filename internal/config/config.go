// Package config centralizes environment-driven startup configuration,
// following the teacher's fail-fast-on-secrets / safe-default-otherwise
// convention from cmd/engine/main.go (requireEnv / getEnvOrDefault).
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// Config is every environment-sourced setting cmd/engine needs to build a
// Planner and an HTTP surface around it.
type Config struct {
	Port         string
	DatabaseURL  string // optional; persistence is best-effort
	APIAuthToken string // optional; empty disables auth (dev mode)
	Network      cardano.NetworkId

	BootstrapPath           string // ProtocolBootstrap JSON snapshot
	ProtocolBlueprintPath   string // protocol-level compiled validators
	SubstandardBlueprintDir string // directory of "<substandard_id>.json" blueprint files

	CoinsPerUtxoByte int64
	BaseFee          int64
	PerByteFee       int64
	PriceSteps       float64
	PriceMem         float64
}

// Load reads Config from the process environment. Required values that are
// missing abort the process immediately, mirroring the teacher's rationale:
// a binary that starts with half its configuration silently wrong is worse
// than one that refuses to start.
func Load() Config {
	return Config{
		Port:                    getEnvOrDefault("PORT", "5339"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		APIAuthToken:            os.Getenv("API_AUTH_TOKEN"),
		Network:                 networkFromEnv("CARDANO_NETWORK", cardano.Testnet),
		BootstrapPath:           requireEnv("PROTOCOL_BOOTSTRAP_PATH"),
		ProtocolBlueprintPath:   requireEnv("PROTOCOL_BLUEPRINT_PATH"),
		SubstandardBlueprintDir: requireEnv("SUBSTANDARD_BLUEPRINT_DIR"),
		CoinsPerUtxoByte:        getEnvInt("COINS_PER_UTXO_BYTE", 4310),
		BaseFee:                 getEnvInt("PROTOCOL_BASE_FEE", 155381),
		PerByteFee:              getEnvInt("PROTOCOL_PER_BYTE_FEE", 44),
		PriceSteps:              getEnvFloat("PRICE_STEPS", 0.0000721),
		PriceMem:                getEnvFloat("PRICE_MEM", 0.0577),
	}
}

// requireEnv reads a required environment variable and exits if it is not
// set, preventing the binary from starting with missing critical
// configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Fatalf("FATAL: %s must be an integer, got %q", key, val)
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("FATAL: %s must be a number, got %q", key, val)
	}
	return f
}

func networkFromEnv(key string, fallback cardano.NetworkId) cardano.NetworkId {
	switch os.Getenv(key) {
	case "mainnet":
		return cardano.Mainnet
	case "testnet":
		return cardano.Testnet
	case "":
		return fallback
	default:
		log.Fatalf("FATAL: %s must be \"mainnet\" or \"testnet\"", key)
		return fallback
	}
}
