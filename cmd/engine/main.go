package main

import (
	"context"
	"log"
	"os"

	"github.com/rawblock/ctoken-engine/internal/api"
	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/chainprovider"
	"github.com/rawblock/ctoken-engine/internal/config"
	"github.com/rawblock/ctoken-engine/internal/db"
	"github.com/rawblock/ctoken-engine/internal/planner"
	"github.com/rawblock/ctoken-engine/internal/substandard"
	"github.com/rawblock/ctoken-engine/internal/txspec"
)

func main() {
	log.Println("Starting ctoken transaction-construction engine...")

	cfg := config.Load()

	var dbConn *db.PostgresStore
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without snapshot persistence. Error: %v", err)
		} else {
			dbConn = conn
			defer dbConn.Close()
			if err := dbConn.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set — running without snapshot persistence")
	}

	bootstrap, err := planner.LoadBootstrap(cfg.BootstrapPath)
	if err != nil {
		log.Fatalf("FATAL: failed to load protocol bootstrap: %v", err)
	}

	protocolRaw, err := os.ReadFile(cfg.ProtocolBlueprintPath)
	if err != nil {
		log.Fatalf("FATAL: failed to read protocol blueprint: %v", err)
	}
	protocolBlueprint, err := blueprint.Load(protocolRaw)
	if err != nil {
		log.Fatalf("FATAL: failed to parse protocol blueprint: %v", err)
	}

	substandards, err := loadSubstandardBlueprints(cfg.SubstandardBlueprintDir)
	if err != nil {
		log.Fatalf("FATAL: failed to load substandard blueprints: %v", err)
	}

	utxoSnapshotPath := getEnvOrDefault("UTXO_SNAPSHOT_PATH", "")
	var provider chainprovider.UtxoProvider
	if utxoSnapshotPath != "" {
		p, err := loadUtxoProvider(utxoSnapshotPath)
		if err != nil {
			log.Fatalf("FATAL: failed to load UTxO snapshot: %v", err)
		}
		provider = p
	} else {
		log.Println("UTXO_SNAPSHOT_PATH not set — starting with an empty chain view; " +
			"every planned transaction will fail until a snapshot is loaded")
		provider = chainprovider.NewMemoryProvider(nil)
	}

	feeParams := txspec.NetworkParams{
		Network:          cfg.Network,
		CoinsPerUtxoByte: cfg.CoinsPerUtxoByte,
		BaseFee:          cfg.BaseFee,
		PerByteFee:       cfg.PerByteFee,
		PriceSteps:       cfg.PriceSteps,
		PriceMem:         cfg.PriceMem,
	}

	p := planner.New(bootstrap, protocolBlueprint, substandards, provider, cfg.Network, feeParams, nil)

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(p, dbConn, wsHub)

	log.Printf("Engine running on :%s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadSubstandardBlueprints reads every "<substandard_id>.json" file in dir,
// keyed by substandard.ID (spec §4.3 "an optional SubstandardBlueprint").
func loadSubstandardBlueprints(dir string) (map[string]*blueprint.Blueprint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*blueprint.Blueprint, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := trimJSONExt(entry.Name())
		if id != string(substandard.Dummy) && id != string(substandard.FreezeAndSeize) {
			log.Printf("skipping unrecognized substandard blueprint file %q", entry.Name())
			continue
		}
		raw, err := os.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, err
		}
		bp, err := blueprint.LoadSubstandard(raw)
		if err != nil {
			return nil, err
		}
		out[id] = bp
	}
	return out, nil
}

func trimJSONExt(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
