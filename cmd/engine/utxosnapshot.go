package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rawblock/ctoken-engine/internal/chainprovider"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// utxoSnapshotFile is the on-disk shape of a chain snapshot: chain
// indexing itself is out of scope (SPEC_FULL §11, "Non-goals"), so the
// engine is pointed at a file an external indexer refreshes, and loads
// it once into the in-memory fake UtxoProvider at startup.
type utxoSnapshotFile struct {
	Utxos []utxoEntry `json:"utxos"`
}

type utxoEntry struct {
	TxHash  string       `json:"tx_hash"`
	Index   uint32       `json:"index"`
	Address string       `json:"address"`
	Coin    int64        `json:"coin"`
	Assets  []assetEntry `json:"assets"`
	Datum   *datumEntry  `json:"datum"`
}

type assetEntry struct {
	PolicyHex string `json:"policy_hex"`
	AssetHex  string `json:"asset_hex"`
	Quantity  int64  `json:"quantity"`
}

type datumEntry struct {
	InlineHex string `json:"inline_hex"`
}

// loadUtxoProvider reads a UTxO snapshot from path and returns a
// MemoryProvider seeded from it.
func loadUtxoProvider(path string) (*chainprovider.MemoryProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("utxo snapshot: read %s: %w", path, err)
	}
	var doc utxoSnapshotFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("utxo snapshot: parse %s: %w", path, err)
	}

	utxos := make([]cardano.Utxo, 0, len(doc.Utxos))
	for i, e := range doc.Utxos {
		u, err := decodeUtxoEntry(e)
		if err != nil {
			return nil, fmt.Errorf("utxo snapshot: entry %d: %w", i, err)
		}
		utxos = append(utxos, u)
	}
	return chainprovider.NewMemoryProvider(utxos), nil
}

func decodeUtxoEntry(e utxoEntry) (cardano.Utxo, error) {
	var u cardano.Utxo

	txHash, err := hex.DecodeString(e.TxHash)
	if err != nil || len(txHash) != 32 {
		return u, fmt.Errorf("tx_hash must be 32 bytes hex")
	}
	copy(u.Outpoint.TxHash[:], txHash)
	u.Outpoint.Index = e.Index

	addr, err := cardano.ParseAddress(e.Address)
	if err != nil {
		return u, fmt.Errorf("address: %w", err)
	}
	u.Address = addr

	value := cardano.NewValue(e.Coin)
	for _, a := range e.Assets {
		policyBytes, err := hex.DecodeString(a.PolicyHex)
		if err != nil || len(policyBytes) != 28 {
			return u, fmt.Errorf("asset policy_hex must be 28 bytes hex")
		}
		var policy cardano.PolicyId
		copy(policy[:], policyBytes)
		assetName, err := hex.DecodeString(a.AssetHex)
		if err != nil {
			return u, fmt.Errorf("asset asset_hex: %w", err)
		}
		value = value.WithAsset(policy, assetName, a.Quantity)
	}
	u.Value = value

	if e.Datum != nil {
		inline, err := hex.DecodeString(e.Datum.InlineHex)
		if err != nil {
			return u, fmt.Errorf("datum inline_hex: %w", err)
		}
		u.Datum = &cardano.DatumRef{Inline: inline}
	}

	return u, nil
}
