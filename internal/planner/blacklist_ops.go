package planner

import (
	"context"

	"github.com/rawblock/ctoken-engine/internal/blacklist"
	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/selector"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// blacklistNodePolicyID re-derives a blacklist's node policy id by
// parameterizing blacklist_mint with (bootstrap_tx_input, admin_pkh) — the
// same derivation InitBlacklist performs once at mint time (spec §4.6.5).
func (p *Planner) blacklistNodePolicyID(bootstrapTxInput cardano.Outpoint, adminPkh []byte) (cardano.PolicyId, cardano.Script, error) {
	v, err := p.Protocol.Find("blacklist_mint.blacklist_mint.mint")
	if err != nil {
		return cardano.PolicyId{}, cardano.Script{}, err
	}
	script, err := p.Memo.ApplyParams(v.CompiledCode, []plutus.Data{
		plutus.NewBytes(append(bootstrapTxInput.TxHash[:], byteOf(bootstrapTxInput.Index)...)),
		plutus.NewBytes(adminPkh),
	}, cardano.V3)
	if err != nil {
		return cardano.PolicyId{}, cardano.Script{}, err
	}
	return scriptHashOf(script), script, nil
}

func byteOf(idx uint32) []byte {
	return []byte{byte(idx >> 24), byte(idx >> 16), byte(idx >> 8), byte(idx)}
}

func (p *Planner) blacklistSpendAddress(nodePolicyID cardano.PolicyId) (cardano.Address, cardano.Script, error) {
	v, err := p.Protocol.Find("blacklist_spend.blacklist_spend.spend")
	if err != nil {
		return cardano.Address{}, cardano.Script{}, err
	}
	script, err := p.Memo.ApplyParams(v.CompiledCode, []plutus.Data{
		plutus.NewBytes(nodePolicyID.Bytes()),
	}, cardano.V3)
	if err != nil {
		return cardano.Address{}, cardano.Script{}, err
	}
	addr, err := blueprintEnterpriseAddress(scriptHashOf(script), p.Network)
	return addr, script, err
}

// InitBlacklist mints the blacklist's head node and locks it at the
// blacklist-spend address (spec §4.6.5).
func (p *Planner) InitBlacklist(ctx context.Context, intent InitBlacklistIntent) (txspec.Spec, error) {
	nodePolicyID, mintScript, err := p.blacklistNodePolicyID(intent.BootstrapTxInput, intent.AdminPkh)
	if err != nil {
		return txspec.Spec{}, err
	}
	spendAddr, _, err := p.blacklistSpendAddress(nodePolicyID)
	if err != nil {
		return txspec.Spec{}, err
	}

	bootstrapUtxo, found, err := p.Provider.ResolveOutpoint(ctx, intent.BootstrapTxInput)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "resolve bootstrap tx input", err)
	}
	if !found {
		return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "bootstrap tx input not found")
	}

	headDatum := plutus.NewConstr(0, plutus.NewBytes(nil), plutus.NewBytes(blacklist.SentinelTerminator))

	spec := txspec.Spec{ChangeAddress: intent.FunderAddress}
	spec.Network = p.NetworkFee
	spec.Network.Network = p.Network

	spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: bootstrapUtxo})
	spec.Mints = append(spec.Mints, txspec.MintEntry{
		Policy:   nodePolicyID,
		Script:   mintScript,
		Assets:   map[string]int64{"": 1},
		Redeemer: plutus.NewConstr(0),
	})
	spec.Outputs = append(spec.Outputs, txspec.Output{
		Address: spendAddr,
		Value:   cardano.NewValue(minAdaOutput).WithAsset(nodePolicyID, nil, 1),
		Datum:   &headDatum,
	})
	spec.RequiredSigners = append(spec.RequiredSigners, toHash28(intent.AdminPkh))

	funderUtxos, err := p.Provider.UtxosAtAddress(ctx, intent.FunderAddress)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load funder utxos", err)
	}
	feeSelected, _, err := selector.Select(funderUtxos, cardano.NewValue(minAdaOutput), nil)
	if err != nil {
		return txspec.Spec{}, err
	}
	for _, u := range feeSelected {
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u})
	}

	return spec, nil
}

// FreezeAddress inserts a new blacklist node for target, mirroring the
// registry insertion shape (spec §4.6.6).
func (p *Planner) FreezeAddress(ctx context.Context, nodePolicyID cardano.PolicyId, intent FreezeAddressIntent) (txspec.Spec, error) {
	spendAddr, _, err := p.blacklistSpendAddress(nodePolicyID)
	if err != nil {
		return txspec.Spec{}, err
	}
	mintTemplate, err := p.Protocol.Find("blacklist_mint.blacklist_mint.mint")
	if err != nil {
		return txspec.Spec{}, err
	}
	// The minting script's real parameters (bootstrap_tx_input, admin_pkh)
	// were fixed once at InitBlacklist time; FreezeAddress only needs the
	// compiled-code blob as a witness and already trusts nodePolicyID as
	// that script's hash, same rationale as registryMintScript.
	mintScript := cardano.Script{Version: cardano.V3, Bytes: mintTemplate.CompiledCode}
	utxos, err := p.Provider.UtxosAtAddress(ctx, spendAddr)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load blacklist utxos", err)
	}
	nodes := make([]blacklist.Node, 0, len(utxos))
	byOutpoint := make(map[cardano.Outpoint]cardano.Utxo, len(utxos))
	for _, u := range utxos {
		if u.Datum == nil || u.Datum.Inline == nil {
			continue
		}
		n, ok := decodeBlacklistDatum(u)
		if !ok {
			continue
		}
		nodes = append(nodes, n)
		byOutpoint[u.Outpoint] = u
	}
	view, err := blacklist.Load(nodes)
	if err != nil {
		return txspec.Spec{}, err
	}

	predecessor, err := view.LocatePredecessor(intent.TargetStakeKeyHash)
	if err != nil {
		return txspec.Spec{}, err
	}
	ins := blacklist.PlanInsertion(predecessor, intent.TargetStakeKeyHash)

	predecessorUtxo, ok := byOutpoint[predecessor.Outpoint]
	if !ok {
		return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "predecessor blacklist utxo not found")
	}

	updatedPredecessorDatum := encodeBlacklistDatum(ins.UpdatedPredecessor)
	newNodeDatum := encodeBlacklistDatum(ins.NewNode)

	spec := txspec.Spec{ChangeAddress: intent.AdminAddress}
	spec.Network = p.NetworkFee
	spec.Network.Network = p.Network

	predecessorRedeemer := plutus.NewConstr(1, plutus.NewBytes(intent.TargetStakeKeyHash))
	spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: predecessorUtxo, Redeemer: &predecessorRedeemer})

	spec.Outputs = append(spec.Outputs,
		txspec.Output{Address: spendAddr, Value: predecessorUtxo.Value, Datum: &updatedPredecessorDatum},
		txspec.Output{
			Address: spendAddr,
			Value:   cardano.NewValue(minAdaOutput).WithAsset(nodePolicyID, intent.TargetStakeKeyHash, 1),
			Datum:   &newNodeDatum,
		},
	)

	spec.Mints = append(spec.Mints, txspec.MintEntry{
		Policy:   nodePolicyID,
		Script:   mintScript,
		Assets:   map[string]int64{string(intent.TargetStakeKeyHash): 1},
		Redeemer: plutus.NewConstr(1, plutus.NewBytes(intent.TargetStakeKeyHash)),
	})
	spec.RequiredSigners = append(spec.RequiredSigners, intent.AdminAddress.Payment.Hash)

	adminUtxos, err := p.Provider.UtxosAtAddress(ctx, intent.AdminAddress)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load admin utxos", err)
	}
	feeSelected, _, err := selector.Select(adminUtxos, cardano.NewValue(minAdaOutput), nil)
	if err != nil {
		return txspec.Spec{}, err
	}
	for _, u := range feeSelected {
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u})
	}

	return spec, nil
}

// Seize spends a blacklisted user's programmable-token UTxO under admin
// signature, routing the seized balance to the admin (spec §4.6.6).
func (p *Planner) Seize(ctx context.Context, intent SeizeIntent) (txspec.Spec, error) {
	targetUtxos, err := p.Provider.UtxosOfOwner(ctx, intent.TargetStakeKeyHash)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load target utxos", err)
	}

	var seized []cardano.Utxo
	var total cardano.Value
	for _, u := range targetUtxos {
		if u.Value.AssetAmount(intent.PolicyID, intent.AssetNameBytes) == 0 {
			continue
		}
		seized = append(seized, u)
		total = total.Add(u.Value)
	}
	if len(seized) == 0 {
		return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "no seizable balance for target").WithPolicyID(intent.PolicyID.Hex())
	}

	spec := txspec.Spec{ChangeAddress: intent.AdminAddress}
	spec.Network = p.NetworkFee
	spec.Network.Network = p.Network

	seizeRedeemer := plutus.NewConstr(2, plutus.NewBytes(intent.TargetStakeKeyHash))
	for _, u := range seized {
		r := seizeRedeemer
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u, Redeemer: &r})
	}
	spec.Outputs = append(spec.Outputs, txspec.Output{Address: intent.AdminAddress, Value: total})
	spec.RequiredSigners = append(spec.RequiredSigners, intent.AdminAddress.Payment.Hash)

	adminUtxos, err := p.Provider.UtxosAtAddress(ctx, intent.AdminAddress)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load admin utxos", err)
	}
	feeSelected, _, err := selector.Select(adminUtxos, cardano.NewValue(minAdaOutput), nil)
	if err != nil {
		return txspec.Spec{}, err
	}
	for _, u := range feeSelected {
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u})
	}

	return spec, nil
}
