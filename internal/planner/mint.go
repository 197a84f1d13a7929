package planner

import (
	"context"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/selector"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// MintToken builds the transaction spec for an additional mint under an
// existing, already-registered policy (spec §4.6.2).
func (p *Planner) MintToken(ctx context.Context, intent MintTokenIntent, substandardID, issueContractTitle string) (txspec.Spec, error) {
	substandardBp, err := p.substandardBlueprint(substandardID)
	if err != nil {
		return txspec.Spec{}, err
	}

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

	// Step 1-2: resolve issue_script, re-derive issuance_mint, and check
	// the policy id re-derives to the registered one.
	issueScript, err := p.parameterizeValidator(substandardBp, issueContractTitle, nil, cardano.V3)
	if err != nil {
		return txspec.Spec{}, err
	}
	issueScriptHash := scriptHashOf(issueScript)

	issuanceTemplate, err := p.Protocol.Find("issuance_mint.issuance_mint.mint")
	if err != nil {
		return txspec.Spec{}, err
	}
	issuanceScript, err := p.Memo.ApplyParams(issuanceTemplate.CompiledCode, []plutus.Data{
		plutus.NewConstr(1, plutus.NewBytes(p.Bootstrap.ProgrammableLogicBase.ScriptHash.Bytes())),
		plutus.NewConstr(1, plutus.NewBytes(issueScriptHash.Bytes())),
	}, cardano.V3)
	if err != nil {
		return txspec.Spec{}, err
	}
	rederivedPolicyID := scriptHashOf(issuanceScript)
	if rederivedPolicyID != intent.PolicyID {
		return txspec.Spec{}, engineerr.New(engineerr.PolicyMismatch, "re-derived issuance policy id does not match registered policy").WithPolicyID(intent.PolicyID.Hex())
	}

	// Step 3: invoke issue_withdraw at amount 0, mint quantity.
	issueRewardAddr, err := scriptRewardAddress(issueScript, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	kind, err := substandardKind(substandardID)
	if err != nil {
		return txspec.Spec{}, err
	}

	recipientTokenAddr, err := programmableTokenAddress(p.Bootstrap.ProgrammableLogicBase.ScriptHash, intent.RecipientAddress, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	datum := plutus.NewConstr(0)

	spec := txspec.Spec{ChangeAddress: intent.RegistrarAddress}
	spec.Network = p.NetworkFee
	spec.Network.Network = p.Network

	spec.Outputs = append(spec.Outputs, txspec.Output{
		Address: recipientTokenAddr,
		Value:   cardano.NewValue(minAdaOutput).WithAsset(intent.PolicyID, intent.AssetNameBytes, intent.Quantity),
		Datum:   &datum,
	})

	issuanceRedeemer := plutus.NewConstr(0, plutus.NewConstr(1, plutus.NewBytes(issueScriptHash.Bytes())))
	spec.Mints = append(spec.Mints, txspec.MintEntry{
		Policy:   intent.PolicyID,
		Script:   issuanceScript,
		Assets:   map[string]int64{string(intent.AssetNameBytes): intent.Quantity},
		Redeemer: issuanceRedeemer,
	})

	spec.Withdrawals = append(spec.Withdrawals, txspec.Withdrawal{
		RewardAddress: issueRewardAddr,
		Amount:        0,
		Script:        issueScript,
		Redeemer:      kind.BuildIssueRedeemer(),
	})

	spec.ReferenceInputs = append(spec.ReferenceInputs,
		txspec.ReferenceInput{Utxo: cardano.Utxo{Outpoint: node.Outpoint}},
		txspec.ReferenceInput{Utxo: cardano.Utxo{Outpoint: p.Bootstrap.ProtocolParams.TxInput}},
	)

	feeUtxos, err := p.Provider.UtxosAtAddress(ctx, intent.RegistrarAddress)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "load registrar utxos", err)
	}
	feeSelected, _, err := selector.Select(feeUtxos, cardano.NewValue(minAdaOutput), nil)
	if err != nil {
		return txspec.Spec{}, err
	}
	for _, u := range feeSelected {
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: u})
	}

	return spec, nil
}
