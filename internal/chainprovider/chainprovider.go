// Package chainprovider declares the external collaborators the core
// consumes but does not implement (spec §6): the UTxO provider and the
// signer. It also offers a deterministic in-memory UtxoProvider fake for
// tests, since planners must never observe non-deterministic chain state.
package chainprovider

import (
	"context"
	"fmt"

	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// UtxoProvider is consumed by planners at exactly three suspension points
// (spec §5): resolving an outpoint, listing UTxOs at an address, and
// listing UTxOs owned by a stake/payment key hash.
type UtxoProvider interface {
	ResolveOutpoint(ctx context.Context, o cardano.Outpoint) (cardano.Utxo, bool, error)
	UtxosAtAddress(ctx context.Context, addr cardano.Address) ([]cardano.Utxo, error)
	UtxosOfOwner(ctx context.Context, keyHash []byte) ([]cardano.Utxo, error)
}

// Signer is consumed only by the binary wiring this core, never by the
// core itself (spec §6): the core returns an unsigned body and hash for an
// external signer process to countersign.
type Signer interface {
	SignTransaction(ctx context.Context, bodyHash [32]byte) (signatureBundle []byte, err error)
}

// MemoryProvider is a deterministic, in-memory UtxoProvider fake: it serves
// a fixed snapshot and never mutates it, matching the planner contract that
// "the planner reads a snapshot, decides, returns" (spec §5).
type MemoryProvider struct {
	byOutpoint map[cardano.Outpoint]cardano.Utxo
	byAddress  map[string][]cardano.Utxo
	byOwner    map[string][]cardano.Utxo
}

// NewMemoryProvider indexes a fixed UTxO snapshot by outpoint, address, and
// owner (derived from each UTxO's payment and stake credential hashes).
func NewMemoryProvider(utxos []cardano.Utxo) *MemoryProvider {
	p := &MemoryProvider{
		byOutpoint: make(map[cardano.Outpoint]cardano.Utxo, len(utxos)),
		byAddress:  make(map[string][]cardano.Utxo),
		byOwner:    make(map[string][]cardano.Utxo),
	}
	for _, u := range utxos {
		p.byOutpoint[u.Outpoint] = u
		addrKey := u.Address.String()
		p.byAddress[addrKey] = append(p.byAddress[addrKey], u)

		ownerKey := fmt.Sprintf("%x", u.Address.Payment.Hash)
		p.byOwner[ownerKey] = append(p.byOwner[ownerKey], u)
		if u.Address.Stake != nil {
			stakeKey := fmt.Sprintf("%x", u.Address.Stake.Hash)
			p.byOwner[stakeKey] = append(p.byOwner[stakeKey], u)
		}
	}
	return p
}

func (p *MemoryProvider) ResolveOutpoint(_ context.Context, o cardano.Outpoint) (cardano.Utxo, bool, error) {
	u, ok := p.byOutpoint[o]
	return u, ok, nil
}

func (p *MemoryProvider) UtxosAtAddress(_ context.Context, addr cardano.Address) ([]cardano.Utxo, error) {
	return append([]cardano.Utxo(nil), p.byAddress[addr.String()]...), nil
}

func (p *MemoryProvider) UtxosOfOwner(_ context.Context, keyHash []byte) ([]cardano.Utxo, error) {
	return append([]cardano.Utxo(nil), p.byOwner[fmt.Sprintf("%x", keyHash)]...), nil
}
