// Package assembler implements the transaction assembler (spec §4.7, C7):
// it takes an unordered txspec.Spec and emits a canonically sorted
// UnsignedTransaction, computing min-ada, converging fees, and calculating
// change.
package assembler

import (
	"bytes"
	"sort"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// maxFeeIterations bounds the fee-convergence loop (spec §4.7).
const maxFeeIterations = 3

// minAdaOutputOverheadBytes is the constant added to an output's serialized
// size before scaling by coins_per_utxo_byte (spec §4.7's
// "coins_per_utxo_byte * (serialized_output_size + 160)").
const minAdaOutputOverheadBytes = 160

// Redeemer is one positioned entry in the assembled redeemer list (spec
// §4.7): tag + index (after canonical sorting) + data + execution units.
type Redeemer struct {
	Tag     txspec.RedeemerTag
	Index   int
	Data    plutus.Data
	ExUnits txspec.ExUnits
}

// UnsignedTransaction is the assembler's output (spec §4.6/§4.7): a
// canonically ordered transaction body plus its hash, ready to be handed to
// an external signer.
type UnsignedTransaction struct {
	Inputs          []cardano.Outpoint
	ReferenceInputs []cardano.Outpoint
	Outputs         []txspec.Output
	Mints           []txspec.MintEntry
	Withdrawals     []txspec.Withdrawal
	Collateral      []cardano.Outpoint
	RequiredSigners [][28]byte
	Redeemers       []Redeemer
	Datums          []plutus.Data

	Fee      int64
	BodyCBOR []byte
	BodyHash [32]byte
}

// Assemble canonicalizes spec into an UnsignedTransaction (spec §4.7).
func Assemble(spec txspec.Spec) (UnsignedTransaction, error) {
	inputOrder := sortedInputOrder(spec.Inputs)
	refOrder := sortedReferenceOrder(spec.ReferenceInputs)
	mintOrder := sortedMintOrder(spec.Mints)
	withdrawalOrder := sortedWithdrawalOrder(spec.Withdrawals)

	outputs, err := patchMinAda(spec.Outputs, spec.Network)
	if err != nil {
		return UnsignedTransaction{}, err
	}

	redeemers := buildRedeemers(inputOrder, mintOrder, withdrawalOrder)

	fee, err := convergeFee(spec, outputs, redeemers)
	if err != nil {
		return UnsignedTransaction{}, err
	}

	change, err := computeChange(spec, outputs, fee)
	if err != nil {
		return UnsignedTransaction{}, err
	}
	if !change.IsZero() {
		outputs = append(outputs, txspec.Output{Address: spec.ChangeAddress, Value: change})
	}

	collateralOutpoints := make([]cardano.Outpoint, len(spec.Collateral))
	for i, u := range spec.Collateral {
		collateralOutpoints[i] = u.Outpoint
	}

	tx := UnsignedTransaction{
		Inputs:          toOutpoints(inputOrder),
		ReferenceInputs: toReferenceOutpoints(refOrder),
		Outputs:         outputs,
		Mints:           mintOrder,
		Withdrawals:     withdrawalOrder,
		Collateral:      collateralOutpoints,
		RequiredSigners: spec.RequiredSigners,
		Redeemers:       redeemers,
		Datums:          collectDatums(outputs),
		Fee:             fee,
	}

	body, err := encodeBody(tx)
	if err != nil {
		return UnsignedTransaction{}, err
	}
	tx.BodyCBOR = body
	tx.BodyHash = plutus.Hash(body)

	return tx, nil
}

func sortedInputOrder(inputs []txspec.Input) []txspec.Input {
	out := append([]txspec.Input(nil), inputs...)
	sort.Slice(out, func(i, j int) bool {
		return cardano.Compare(out[i].Utxo.Outpoint, out[j].Utxo.Outpoint) < 0
	})
	return out
}

func sortedReferenceOrder(refs []txspec.ReferenceInput) []txspec.ReferenceInput {
	out := append([]txspec.ReferenceInput(nil), refs...)
	sort.Slice(out, func(i, j int) bool {
		return cardano.Compare(out[i].Utxo.Outpoint, out[j].Utxo.Outpoint) < 0
	})
	return out
}

func sortedMintOrder(mints []txspec.MintEntry) []txspec.MintEntry {
	out := append([]txspec.MintEntry(nil), mints...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Policy.Bytes(), out[j].Policy.Bytes()) < 0
	})
	return out
}

func sortedWithdrawalOrder(ws []txspec.Withdrawal) []txspec.Withdrawal {
	out := append([]txspec.Withdrawal(nil), ws...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].RewardAddress.Bytes(), out[j].RewardAddress.Bytes()) < 0
	})
	return out
}

func toOutpoints(inputs []txspec.Input) []cardano.Outpoint {
	out := make([]cardano.Outpoint, len(inputs))
	for i, in := range inputs {
		out[i] = in.Utxo.Outpoint
	}
	return out
}

func toReferenceOutpoints(refs []txspec.ReferenceInput) []cardano.Outpoint {
	out := make([]cardano.Outpoint, len(refs))
	for i, r := range refs {
		out[i] = r.Utxo.Outpoint
	}
	return out
}

// buildRedeemers assigns one redeemer per (tag, index) pair where index is
// the item's position in the already-canonically-sorted slice (spec §4.7).
func buildRedeemers(inputs []txspec.Input, mints []txspec.MintEntry, withdrawals []txspec.Withdrawal) []Redeemer {
	var out []Redeemer
	for i, in := range inputs {
		if in.Redeemer == nil {
			continue
		}
		eu := in.ExUnits
		if eu == (txspec.ExUnits{}) {
			eu = txspec.DefaultExUnits
		}
		out = append(out, Redeemer{Tag: txspec.TagSpend, Index: i, Data: *in.Redeemer, ExUnits: eu})
	}
	for i, m := range mints {
		eu := m.ExUnits
		if eu == (txspec.ExUnits{}) {
			eu = txspec.DefaultExUnits
		}
		out = append(out, Redeemer{Tag: txspec.TagMint, Index: i, Data: m.Redeemer, ExUnits: eu})
	}
	for i, w := range withdrawals {
		eu := w.ExUnits
		if eu == (txspec.ExUnits{}) {
			eu = txspec.DefaultExUnits
		}
		out = append(out, Redeemer{Tag: txspec.TagReward, Index: i, Data: w.Redeemer, ExUnits: eu})
	}
	return out
}

// minAda computes coins_per_utxo_byte * (serialized_output_size + 160)
// (spec §4.7).
func minAda(out txspec.Output, params txspec.NetworkParams) (int64, error) {
	size, err := estimateOutputSize(out)
	if err != nil {
		return 0, err
	}
	return params.CoinsPerUtxoByte * int64(size+minAdaOutputOverheadBytes), nil
}

func estimateOutputSize(out txspec.Output) (int, error) {
	size := len(out.Address.Bytes()) + 8 // address + coin
	for _, a := range out.Value.Assets() {
		size += len(a.Policy.Bytes()) + len(a.Asset) + 8
	}
	if out.Datum != nil {
		enc, err := plutus.Encode(*out.Datum)
		if err != nil {
			return 0, err
		}
		size += len(enc)
	}
	return size, nil
}

// patchMinAda raises any output's coin amount up to its computed minimum
// (spec §4.7: "outputs that carry tokens and the spec-supplied coin amount
// below this minimum are patched up").
func patchMinAda(outs []txspec.Output, params txspec.NetworkParams) ([]txspec.Output, error) {
	patched := make([]txspec.Output, len(outs))
	for i, o := range outs {
		min, err := minAda(o, params)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.ScriptParamEncodingFail, "compute min-ada", err)
		}
		if o.Value.Coin < min {
			v := o.Value.Clone()
			v.Coin = min
			o.Value = v
		}
		patched[i] = o
	}
	return patched, nil
}

func collectDatums(outs []txspec.Output) []plutus.Data {
	var out []plutus.Data
	for _, o := range outs {
		if o.Datum != nil {
			out = append(out, *o.Datum)
		}
	}
	return out
}

// txSizeEstimate is a rough, deterministic stand-in for the serialized
// transaction size used during fee convergence: real byte-for-byte size
// depends on the final CBOR body, which itself depends on the fee (a
// circular dependency every Cardano tx builder resolves the same way --
// iterate with an estimate until the fee stabilizes).
func txSizeEstimate(tx UnsignedTransaction) int {
	size := 16 // fixed overhead: version tags, maps, etc
	size += len(tx.Inputs)*40 + len(tx.ReferenceInputs)*40 + len(tx.Collateral)*40
	for _, o := range tx.Outputs {
		s, _ := estimateOutputSize(o)
		size += s
	}
	for _, m := range tx.Mints {
		size += len(m.Policy.Bytes()) + len(m.Assets)*16
	}
	size += len(tx.Withdrawals) * 40
	size += len(tx.RequiredSigners) * 28
	for _, r := range tx.Redeemers {
		enc, err := plutus.Encode(r.Data)
		if err == nil {
			size += len(enc) + 16
		}
	}
	return size
}

// convergeFee iterates fee = base_fee + per_byte_fee*size + sum(script_eval_fee)
// until stable, bounded by maxFeeIterations (spec §4.7).
func convergeFee(spec txspec.Spec, outputs []txspec.Output, redeemers []Redeemer) (int64, error) {
	var scriptFee int64
	for _, r := range redeemers {
		scriptFee += spec.Network.ScriptEvalFee(r.ExUnits)
	}

	fee := spec.Network.BaseFee + scriptFee
	for i := 0; i < maxFeeIterations; i++ {
		draft := UnsignedTransaction{
			Inputs:          toOutpoints(sortedInputOrder(spec.Inputs)),
			ReferenceInputs: toReferenceOutpoints(sortedReferenceOrder(spec.ReferenceInputs)),
			Outputs:         outputs,
			Mints:           sortedMintOrder(spec.Mints),
			Withdrawals:     sortedWithdrawalOrder(spec.Withdrawals),
			RequiredSigners: spec.RequiredSigners,
			Redeemers:       redeemers,
			Fee:             fee,
		}
		size := txSizeEstimate(draft)
		next := spec.Network.BaseFee + spec.Network.PerByteFee*int64(size) + scriptFee
		if next == fee {
			return fee, nil
		}
		fee = next
	}
	return 0, engineerr.New(engineerr.FeeConvergenceFailed, "fee did not stabilize within iteration budget")
}

// computeChange returns input_value + mint - output_value - fee, where
// burns are mint entries with negative quantities (spec §4.7).
func computeChange(spec txspec.Spec, outputs []txspec.Output, fee int64) (cardano.Value, error) {
	var inputValue, outputValue, mintValue cardano.Value
	for _, in := range spec.Inputs {
		inputValue = inputValue.Add(in.Utxo.Value)
	}
	for _, o := range outputs {
		outputValue = outputValue.Add(o.Value)
	}
	for _, m := range spec.Mints {
		for assetName, qty := range m.Assets {
			mintValue = mintValue.WithAsset(m.Policy, []byte(assetName), qty)
		}
	}

	total := inputValue.Add(mintValue)
	total.Coin -= fee
	change, err := total.Sub(outputValue)
	if err != nil {
		return cardano.Value{}, engineerr.Wrap(engineerr.ValueNotConserved, "inputs+mint-outputs-fee underflowed", err)
	}
	return change, nil
}
