package planner

import (
	"context"

	"github.com/rawblock/ctoken-engine/internal/blacklist"
	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/chainprovider"
	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/registry"
	"github.com/rawblock/ctoken-engine/internal/scripthash"
	"github.com/rawblock/ctoken-engine/internal/substandard"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// Planner holds the immutable, read-many collaborators every operation
// planner needs (spec §4.6: "consume Intent, an immutable ProtocolBootstrap,
// a Blueprint, an optional SubstandardBlueprint, a UtxoProvider").
type Planner struct {
	Bootstrap    ProtocolBootstrap
	Protocol     *blueprint.Blueprint
	Substandards map[string]*blueprint.Blueprint // keyed by substandard id
	Provider     chainprovider.UtxoProvider
	Network      cardano.NetworkId
	NetworkFee   txspec.NetworkParams
	Memo         *scripthash.Memoizer
}

// New builds a Planner. memo may be nil, in which case a fresh one is
// created (script parameterization is still pure either way; the memoizer
// only avoids redundant work within and across planner calls, spec §5).
func New(bootstrap ProtocolBootstrap, protocol *blueprint.Blueprint, substandards map[string]*blueprint.Blueprint, provider chainprovider.UtxoProvider, network cardano.NetworkId, fee txspec.NetworkParams, memo *scripthash.Memoizer) *Planner {
	if memo == nil {
		memo = scripthash.NewMemoizer()
	}
	return &Planner{
		Bootstrap:    bootstrap,
		Protocol:     protocol,
		Substandards: substandards,
		Provider:     provider,
		Network:      network,
		NetworkFee:   fee,
		Memo:         memo,
	}
}

func (p *Planner) substandardBlueprint(id string) (*blueprint.Blueprint, error) {
	b, ok := p.Substandards[id]
	if !ok {
		return nil, engineerr.New(engineerr.ValidatorNotFound, "unknown substandard id: "+id)
	}
	return b, nil
}

func substandardKind(id string) (substandard.Kind, error) {
	switch substandard.ID(id) {
	case substandard.Dummy:
		return substandard.NewDummy(), nil
	case substandard.FreezeAndSeize:
		return substandard.NewFreezeAndSeize(), nil
	default:
		return nil, engineerr.New(engineerr.ValidatorNotFound, "unknown substandard id: "+id)
	}
}

// parameterizeValidator resolves title from blueprint b and applies params,
// going through the shared memoizer (spec §4.2/§4.3).
func (p *Planner) parameterizeValidator(b *blueprint.Blueprint, title string, params []plutus.Data, version cardano.ScriptVersion) (cardano.Script, error) {
	v, err := b.Find(title)
	if err != nil {
		return cardano.Script{}, err
	}
	return p.Memo.ApplyParams(v.CompiledCode, params, version)
}

// loadRegistry fetches the registry-spend UTxO set from the provider and
// parses it into a registry.View (spec §4.6 "Load registry from provider").
func (p *Planner) loadRegistry(ctx context.Context, registrySpendAddr cardano.Address) (*registry.View, error) {
	utxos, err := p.Provider.UtxosAtAddress(ctx, registrySpendAddr)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.UtxoNotFound, "load registry utxos", err)
	}
	nodes := make([]registry.Node, 0, len(utxos))
	for _, u := range utxos {
		n, ok := decodeRegistryDatum(u)
		if !ok {
			continue
		}
		nodes = append(nodes, n)
	}
	return registry.Load(nodes)
}

// loadBlacklist mirrors loadRegistry for the blacklist-spend address.
func (p *Planner) loadBlacklist(ctx context.Context, blacklistSpendAddr cardano.Address) (*blacklist.View, error) {
	utxos, err := p.Provider.UtxosAtAddress(ctx, blacklistSpendAddr)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.UtxoNotFound, "load blacklist utxos", err)
	}
	nodes := make([]blacklist.Node, 0, len(utxos))
	for _, u := range utxos {
		n, ok := decodeBlacklistDatum(u)
		if !ok {
			continue
		}
		nodes = append(nodes, n)
	}
	return blacklist.Load(nodes)
}

// decodeRegistryDatum parses a registry node datum: Constr(0, [key, next,
// transfer_script_hash, third_party_script_hash, metadata]) (spec §3
// "Fields in order").
func decodeRegistryDatum(u cardano.Utxo) (registry.Node, bool) {
	if u.Datum == nil || u.Datum.Inline == nil {
		return registry.Node{}, false
	}
	d, _, err := plutus.DecodeDatum(u.Datum.Inline)
	if err != nil || d.Kind() != plutus.KindConstr {
		return registry.Node{}, false
	}
	fields := d.Fields()
	if len(fields) != 5 {
		return registry.Node{}, false
	}
	return registry.Node{
		Key:                  fields[0].Bytes(),
		Next:                 fields[1].Bytes(),
		TransferScriptHash:   fields[2].Bytes(),
		ThirdPartyScriptHash: fields[3].Bytes(),
		Metadata:             fields[4].Bytes(),
		Outpoint:             u.Outpoint,
	}, true
}

// decodeBlacklistDatum parses a blacklist node datum: Constr(0, [key, next]).
func decodeBlacklistDatum(u cardano.Utxo) (blacklist.Node, bool) {
	if u.Datum == nil || u.Datum.Inline == nil {
		return blacklist.Node{}, false
	}
	d, _, err := plutus.DecodeDatum(u.Datum.Inline)
	if err != nil || d.Kind() != plutus.KindConstr {
		return blacklist.Node{}, false
	}
	fields := d.Fields()
	if len(fields) != 2 {
		return blacklist.Node{}, false
	}
	return blacklist.Node{
		Key:      fields[0].Bytes(),
		Next:     fields[1].Bytes(),
		Outpoint: u.Outpoint,
	}, true
}

// encodeRegistryDatum builds the Constr(0, [...]) PlutusData for a registry
// node (the inverse of decodeRegistryDatum).
func encodeRegistryDatum(n registry.Node) plutus.Data {
	return plutus.NewConstr(0,
		plutus.NewBytes(n.Key),
		plutus.NewBytes(n.Next),
		plutus.NewBytes(n.TransferScriptHash),
		plutus.NewBytes(n.ThirdPartyScriptHash),
		plutus.NewBytes(n.Metadata),
	)
}

// encodeBlacklistDatum builds the Constr(0, [key, next]) PlutusData for a
// blacklist node.
func encodeBlacklistDatum(n blacklist.Node) plutus.Data {
	return plutus.NewConstr(0, plutus.NewBytes(n.Key), plutus.NewBytes(n.Next))
}

// sortedOutpoints returns a canonically (lexicographic-on-outpoint) sorted
// copy of refs, as required whenever a planner must compute an index
// against "the sorted reference-input list" (spec §4.4, §4.6.3, §4.6.4).
func sortedOutpoints(refs []cardano.Outpoint) []cardano.Outpoint {
	out := append([]cardano.Outpoint(nil), refs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && cardano.Compare(out[j-1], out[j]) > 0; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
