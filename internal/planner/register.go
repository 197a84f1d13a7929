package planner

import (
	"context"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/registry"
	"github.com/rawblock/ctoken-engine/internal/selector"
	"github.com/rawblock/ctoken-engine/internal/substandard"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

const minAdaOutput = 2_000_000 // conservative baseline; assembler patches precisely

// RegisterToken builds the transaction spec for registering a new token
// policy (spec §4.6.1).
func (p *Planner) RegisterToken(ctx context.Context, intent RegisterTokenIntent) (txspec.Spec, error) {
	substandardBp, err := p.substandardBlueprint(intent.SubstandardID)
	if err != nil {
		return txspec.Spec{}, err
	}
	kind, err := substandardKind(intent.SubstandardID)
	if err != nil {
		return txspec.Spec{}, err
	}

	// Step 1: resolve + parameterize issue/transfer/third-party scripts.
	issueScript, err := p.parameterizeValidator(substandardBp, intent.IssueContractTitle, nil, cardano.V3)
	if err != nil {
		return txspec.Spec{}, err
	}
	issueScriptHash := scriptHashOf(issueScript)

	var transferParams []plutus.Data
	if substandard.ID(intent.SubstandardID) == substandard.FreezeAndSeize {
		if intent.BlacklistNodePolicyID == nil {
			return txspec.Spec{}, engineerr.New(engineerr.ScriptParamEncodingFail, "freeze-and-seize requires a blacklist node policy id")
		}
		transferParams = []plutus.Data{
			plutus.NewBytes(p.Bootstrap.ProgrammableLogicBase.ScriptHash.Bytes()),
			plutus.NewBytes(intent.BlacklistNodePolicyID.Bytes()),
		}
	}
	transferScript, err := p.parameterizeValidator(substandardBp, intent.TransferContractTitle, transferParams, cardano.V3)
	if err != nil {
		return txspec.Spec{}, err
	}
	transferScriptHash := scriptHashOf(transferScript)

	var thirdPartyScriptHash cardano.PolicyId
	if intent.ThirdPartyTitle != "" {
		thirdPartyScript, err := p.parameterizeValidator(substandardBp, intent.ThirdPartyTitle, nil, cardano.V3)
		if err != nil {
			return txspec.Spec{}, err
		}
		thirdPartyScriptHash = scriptHashOf(thirdPartyScript)
	}

	// Step 2: issuance mint script, whose hash is the new policy id.
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
	policyID := scriptHashOf(issuanceScript)

	// Step 3-4: locate predecessor, build the two registry outputs.
	registrySpendAddr, err := blueprintEnterpriseAddress(p.Bootstrap.RegistrySpend.ScriptHash, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	reg, err := p.loadRegistry(ctx, registrySpendAddr)
	if err != nil {
		return txspec.Spec{}, err
	}
	predecessor, err := reg.LocatePredecessor(policyID.Bytes())
	if err != nil {
		return txspec.Spec{}, err
	}
	ins := registry.PlanInsertion(predecessor, policyID.Bytes(), transferScriptHash.Bytes(), thirdPartyScriptHash.Bytes())

	registryMintScr, err := registryMintScript(p)
	if err != nil {
		return txspec.Spec{}, err
	}
	registryNFTUnit := cardano.Unit{Policy: p.Bootstrap.RegistryMint.ScriptHash}

	predecessorUtxo, found, err := p.Provider.ResolveOutpoint(ctx, predecessor.Outpoint)
	if err != nil {
		return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "resolve predecessor registry utxo", err)
	}
	if !found {
		return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "predecessor registry utxo not found")
	}

	updatedPredecessorDatum := encodeRegistryDatum(ins.UpdatedPredecessor)
	newNodeDatum := encodeRegistryDatum(ins.NewNode)

	spec := txspec.Spec{
		Network:       p.NetworkFee,
		ChangeAddress: intent.RegistrarAddress,
	}
	spec.Network.Network = p.Network

	predecessorRedeemer := plutus.NewConstr(1, plutus.NewBytes(policyID.Bytes()), plutus.NewBytes(issueScriptHash.Bytes()))
	spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: predecessorUtxo, Redeemer: &predecessorRedeemer})

	if intent.ChainingInput != nil {
		chainingUtxo, found, err := p.Provider.ResolveOutpoint(ctx, *intent.ChainingInput)
		if err != nil {
			return txspec.Spec{}, engineerr.Wrap(engineerr.UtxoNotFound, "resolve chaining input", err)
		}
		if !found {
			return txspec.Spec{}, engineerr.New(engineerr.UtxoNotFound, "chaining input not found")
		}
		spec.Inputs = append(spec.Inputs, txspec.Input{Utxo: chainingUtxo})
	}

	updatedPredecessorValue := predecessorUtxo.Value
	spec.Outputs = append(spec.Outputs, txspec.Output{
		Address: registrySpendAddr,
		Value:   updatedPredecessorValue.WithAsset(registryNFTUnit.Policy, registryNFTUnit.Asset, 0),
		Datum:   &updatedPredecessorDatum,
	})
	newNodeValue := cardano.NewValue(minAdaOutput).WithAsset(registryNFTUnit.Policy, policyID.Bytes(), 1)
	spec.Outputs = append(spec.Outputs, txspec.Output{
		Address: registrySpendAddr,
		Value:   newNodeValue,
		Datum:   &newNodeDatum,
	})

	// Step 5: mint the registry NFT.
	registryMintRedeemer := plutus.NewConstr(1, plutus.NewBytes(policyID.Bytes()), plutus.NewBytes(issueScriptHash.Bytes()))
	spec.Mints = append(spec.Mints, txspec.MintEntry{
		Policy:   registryNFTUnit.Policy,
		Script:   registryMintScr,
		Assets:   map[string]int64{string(policyID.Bytes()): 1},
		Redeemer: registryMintRedeemer,
	})

	// Step 6-7: mint the programmable token and output it, unless quantity
	// is 0 (spec §8 boundary behaviour: "the output to the recipient is
	// omitted when quantity is 0").
	issuanceRedeemer := plutus.NewConstr(0, plutus.NewConstr(1, plutus.NewBytes(issueScriptHash.Bytes())))
	if intent.Quantity > 0 {
		spec.Mints = append(spec.Mints, txspec.MintEntry{
			Policy:   policyID,
			Script:   issuanceScript,
			Assets:   map[string]int64{string(intent.AssetNameBytes): intent.Quantity},
			Redeemer: issuanceRedeemer,
		})

		recipient := intent.RegistrarAddress
		if intent.RecipientAddress != nil {
			recipient = *intent.RecipientAddress
		}
		recipientTokenAddr, err := programmableTokenAddress(p.Bootstrap.ProgrammableLogicBase.ScriptHash, recipient, p.Network)
		if err != nil {
			return txspec.Spec{}, err
		}
		datum := plutus.NewConstr(0)
		spec.Outputs = append(spec.Outputs, txspec.Output{
			Address: recipientTokenAddr,
			Value:   cardano.NewValue(minAdaOutput).WithAsset(policyID, intent.AssetNameBytes, intent.Quantity),
			Datum:   &datum,
		})
	} else {
		spec.Mints = append(spec.Mints, txspec.MintEntry{
			Policy:   policyID,
			Script:   issuanceScript,
			Assets:   map[string]int64{},
			Redeemer: issuanceRedeemer,
		})
	}

	// Step 8: invoke the substandard's issue_withdraw script, amount 0.
	issueRewardAddr, err := scriptRewardAddress(issueScript, p.Network)
	if err != nil {
		return txspec.Spec{}, err
	}
	spec.Withdrawals = append(spec.Withdrawals, txspec.Withdrawal{
		RewardAddress: issueRewardAddr,
		Amount:        0,
		Script:        issueScript,
		Redeemer:      kind.BuildIssueRedeemer(),
	})

	// Step 9: reference inputs.
	spec.ReferenceInputs = append(spec.ReferenceInputs,
		txspec.ReferenceInput{Utxo: cardano.Utxo{Outpoint: p.Bootstrap.ProtocolParams.TxInput}},
		txspec.ReferenceInput{Utxo: cardano.Utxo{Outpoint: p.Bootstrap.IssuanceParams.TxInput}},
	)

	// Step 10: fee-paying UTxOs from the registrar.
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
