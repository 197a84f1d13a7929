package planner

import (
	"context"

	"github.com/rawblock/ctoken-engine/internal/blacklist"
	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/selector"
	"github.com/rawblock/ctoken-engine/internal/substandard"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// TransferToken builds the transaction spec for moving quantity units of an
// already-registered programmable token between two holders (spec §4.6.3
// dummy, §4.6.4 freeze-and-seize).
func (p *Planner) TransferToken(ctx context.Context, intent TransferTokenIntent) (txspec.Spec, error) {
	registrySpendAddr, err := blueprintEnterpriseAddress(p.Bootstrap.RegistrySpend.ScriptHash, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	reg, err := p.loadRegistry(ctx, registrySpendAddr)
	if err != nil {
		return txspec.Spec{}, err
	}
	node, ok := reg.Lookup(intent.PolicyID.Bytes())
	if !ok {
		return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "policy not registered").WithPolicyID(intent.PolicyID.Hex())
	}
	var transferScriptHash cardano.PolicyId
	copy(transferScriptHash[:], node.TransferScriptHash)

	kind, err := substandardKind(intent.SubstandardID)
	if err != nil {
		return txspec.Spec{}, err
	}

	// Step 1: derive sender/recipient programmable-token addresses sharing
	// the global payment script, discriminated by stake credential.
	senderAddr, err := programmableTokenAddress(p.Bootstrap.ProgrammableLogicBase.ScriptHash, intent.SenderBaseAddress, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	recipientAddr, err := blueprint.BaseAddress(p.Bootstrap.ProgrammableLogicBase.ScriptHash, intent.RecipientStakeKeyHash, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}

	// Step 2: select sender UTxOs covering the requested quantity.
	senderUtxos, err := p.Provider.UtxosAtAddress(ctx, senderAddr)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load sender utxos", err)
	}
	selected, returning, err := selectAssetUtxos(senderUtxos, intent.PolicyID, intent.AssetNameBytes, intent.Quantity)
	if err != nil {
		return txspec.Spec{}, err
	}

	datum := plutus.NewConstr(0)
	spec := txspec.Spec{ChangeAddress: intent.SenderBaseAddress}
	spec.Network = p.NetworkFee
	spec.Network.Network = p.Network

	spendRedeemer := plutus.NewConstr(0)
	spentOutpoints := make([]cardano.Outpoint, 0, len(selected))
	for _, u := range selected {
		r := spendRedeemer
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u, Redeemer: &r})
		spentOutpoints = append(spentOutpoints, u.Outpoint)
	}

	// Step 3: the recipient output, and, unless the transfer exactly
	// exhausts the sender's selected balance, a returning output back to
	// the sender's own programmable-token address (spec §8 boundary
	// behaviour: no sender-change output when returning is zero).
	spec.Outputs = append(spec.Outputs, txspec.Output{
		Address: recipientAddr,
		Value:   cardano.NewValue(minAdaOutput).WithAsset(intent.PolicyID, intent.AssetNameBytes, intent.Quantity),
		Datum:   &datum,
	})
	if returning > 0 {
		spec.Outputs = append(spec.Outputs, txspec.Output{
			Address: senderAddr,
			Value:   cardano.NewValue(minAdaOutput).WithAsset(intent.PolicyID, intent.AssetNameBytes, returning),
			Datum:   &datum,
		})
	}

	// Step 4: reference inputs — protocol params and the registry node are
	// always present; freeze-and-seize additionally needs the sender's
	// non-membership proof node(s) from the blacklist.
	refs := []cardano.Outpoint{p.Bootstrap.ProtocolParams.TxInput, node.Outpoint}

	var bl *blacklist.View
	if substandard.ID(intent.SubstandardID) == substandard.FreezeAndSeize {
		if intent.BlacklistNodePolicyID == nil {
			return txspec.Spec{}, engineerr.New(engineerr.ScriptParamEncodingFail, "freeze-and-seize requires a blacklist node policy id")
		}
		blacklistSpendScript, err := p.parameterizeValidator(p.Protocol, "blacklist_spend.blacklist_spend.spend", []plutus.Data{
			plutus.NewBytes(intent.BlacklistNodePolicyID.Bytes()),
		}, cardano.V3)
		if err != nil {
			return txspec.Spec{}, err
		}
		blacklistSpendAddr, err := blueprintEnterpriseAddress(scriptHashOf(blacklistSpendScript), p.Network)
		if err != nil {
			return txspec.Spec{}, err
		}
		bl, err = p.loadBlacklist(ctx, blacklistSpendAddr)
		if err != nil {
			return txspec.Spec{}, err
		}
		proof, err := bl.NonMembershipProof(intent.SenderStakeKeyHash)
		if err != nil {
			return txspec.Spec{}, err
		}
		refs = append(refs, proof.Outpoint)
	}
	sortedRefs := sortedOutpoints(refs)

	// The reference list assembled above (protocol_params, registry_node,
	// and — for freeze-and-seize — the sender's proof node) is already the
	// full sorted list spec §4.6.4 step 3 describes; the substandard's own
	// ExtraReferenceIns duplicate what refs already contains, since the
	// planner is the one that looked the proof up in the first place.
	transferPlan, err := kind.BuildTransferRedeemer(substandard.TransferContext{
		SpentOutpoints:     spentOutpoints,
		SortedRefs:         sortedRefs,
		Blacklist:          bl,
		SenderStakeKeyHash: intent.SenderStakeKeyHash,
	})
	if err != nil {
		return txspec.Spec{}, err
	}
	for _, o := range sortedRefs {
		spec.ReferenceInputs = append(spec.ReferenceInputs, txspec.ReferenceInput{Utxo: cardano.Utxo{Outpoint: o}})
	}

	// Step 5: the two withdrawals — global programmable-logic validator
	// records the registry-node index; the substandard's own transfer
	// script applies its transfer-specific compliance check.
	globalRewardAddr, err := rewardAddressFromHash(p.Bootstrap.ProgrammableLogicGlobal.ScriptHash, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	registryIdx, err := indexOfOutpointInSorted(node.Outpoint, sortedRefs)
	if err != nil {
		return txspec.Spec{}, err
	}
	globalRedeemer := plutus.NewConstr(0, plutus.NewList(plutus.NewConstr(0, plutus.NewIntegerInt64(int64(registryIdx)))))
	spec.Withdrawals = append(spec.Withdrawals, txspec.Withdrawal{
		RewardAddress: globalRewardAddr,
		Amount:        0,
		Redeemer:      globalRedeemer,
	})

	transferRewardAddr, err := rewardAddressFromHash(transferScriptHash, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	spec.Withdrawals = append(spec.Withdrawals, txspec.Withdrawal{
		RewardAddress: transferRewardAddr,
		Amount:        0,
		Redeemer:      transferPlan.Redeemer,
	})

	spec.RequiredSigners = append(spec.RequiredSigners, toHash28(intent.SenderStakeKeyHash))

	// Step 6: collateral and fee-paying UTxOs, both from the sender.
	collateral, err := selector.SelectCollateral(senderUtxos)
	if err != nil {
		return txspec.Spec{}, err
	}
	spec.Collateral = append(spec.Collateral, collateral)

	feeSelected, _, err := selector.Select(senderUtxos, cardano.NewValue(minAdaOutput), nil)
	if err != nil {
		return txspec.Spec{}, err
	}
	have := make(map[cardano.Outpoint]bool)
	for _, in := range spec.Inputs {
		have[in.Utxo.Outpoint] = true
	}
	for _, u := range feeSelected {
		if have[u.Outpoint] {
			continue
		}
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u})
		have[u.Outpoint] = true
	}

	return spec, nil
}

// selectAssetUtxos picks UTxOs from candidates carrying unit(policy, asset)
// until their combined amount covers quantity, largest-holding first, and
// reports how much of the selected amount is left over (spec §4.6.3 step 2).
func selectAssetUtxos(candidates []cardano.Utxo, policy cardano.PolicyId, asset []byte, quantity int64) ([]cardano.Utxo, int64, error) {
	filtered := make([]cardano.Utxo, 0, len(candidates))
	for _, u := range candidates {
		if u.Value.AssetAmount(policy, asset) > 0 {
			filtered = append(filtered, u)
		}
	}
	for i := 1; i < len(filtered); i++ {
		for j := i; j > 0 && filtered[j-1].Value.AssetAmount(policy, asset) < filtered[j].Value.AssetAmount(policy, asset); j-- {
			filtered[j-1], filtered[j] = filtered[j], filtered[j-1]
		}
	}

	var total int64
	var selected []cardano.Utxo
	for _, u := range filtered {
		if total >= quantity {
			break
		}
		selected = append(selected, u)
		total += u.Value.AssetAmount(policy, asset)
	}
	if total < quantity {
		return nil, 0, engineerr.New(engineerr.NotEnoughFunds, "insufficient asset balance for transfer").WithPolicyID(policy.Hex())
	}
	return selected, total - quantity, nil
}

func indexOfOutpointInSorted(target cardano.Outpoint, sorted []cardano.Outpoint) (int, error) {
	for i, o := range sorted {
		if cardano.Compare(o, target) == 0 {
			return i, nil
		}
	}
	return 0, engineerr.New(engineerr.RegistryInconsistent, "registry node outpoint missing from sorted reference list")
}

func toHash28(b []byte) [28]byte {
	var out [28]byte
	copy(out[:], b)
	return out
}
