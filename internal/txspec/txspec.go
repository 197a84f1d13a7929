// Package txspec defines the intermediate representation planners (C6)
// build and the assembler (C7) consumes (spec §4.6, §4.7): an unordered,
// pre-canonicalization description of a transaction's inputs, outputs,
// mints, withdrawals, datums, redeemers and collateral.
package txspec

import (
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// RedeemerTag discriminates which part of the transaction a redeemer
// applies to (spec §4.7): Spend=0, Mint=1, Cert=2, Reward=3.
type RedeemerTag int

const (
	TagSpend RedeemerTag = iota
	TagMint
	TagCert
	TagReward
)

// ExUnits is the execution-budget estimate carried alongside a redeemer
// (spec §4.7). The assembler replaces a zero ExUnits with DefaultExUnits,
// {steps: 10^9, mem: 10^7}.
type ExUnits struct {
	Steps int64
	Mem   int64
}

// DefaultExUnits is the fallback estimate used when no evaluator result is
// available (spec §4.7).
var DefaultExUnits = ExUnits{Steps: 1_000_000_000, Mem: 10_000_000}

// Input is a spent UTxO plus, for script-locked inputs, its spending
// redeemer. Redeemer is nil for key-locked inputs.
type Input struct {
	Utxo     cardano.Utxo
	Redeemer *plutus.Data
	ExUnits  ExUnits
}

// ReferenceInput is read, not spent.
type ReferenceInput struct {
	Utxo cardano.Utxo
}

// Output describes a transaction output before min-ada patching (spec
// §4.7). Datum, when non-nil, is attached inline.
type Output struct {
	Address cardano.Address
	Value   cardano.Value
	Datum   *plutus.Data
}

// MintEntry is one policy's worth of minted/burned assets under a single
// minting script, with its redeemer (spec §4.6, §4.7).
type MintEntry struct {
	Policy   cardano.PolicyId
	Script   cardano.Script
	Assets   map[string]int64 // asset name (raw bytes as string key) -> signed quantity
	Redeemer plutus.Data
	ExUnits  ExUnits
}

// Withdrawal is a zero-or-more-amount reward withdrawal, used generically
// as an "invoke this script once" mechanism (spec glossary, §4.7).
type Withdrawal struct {
	RewardAddress cardano.Address
	Amount        int64
	Script        cardano.Script
	Redeemer      plutus.Data
	ExUnits       ExUnits
}

// Spec is the unordered transaction description a planner returns; the
// assembler canonicalizes it into an UnsignedTransaction (spec §4.6, §4.7).
type Spec struct {
	Network NetworkParams

	Inputs          []Input
	ReferenceInputs []ReferenceInput
	Outputs         []Output
	Mints           []MintEntry
	Withdrawals     []Withdrawal

	Collateral      []cardano.Utxo
	RequiredSigners [][28]byte

	ChangeAddress cardano.Address
}

// NetworkParams carries the protocol parameters the assembler needs for
// min-ada and fee calculation (spec §4.7).
type NetworkParams struct {
	Network          cardano.NetworkId
	CoinsPerUtxoByte int64
	BaseFee          int64
	PerByteFee       int64
	PriceSteps       float64 // lovelace per execution step
	PriceMem         float64 // lovelace per execution memory unit
}

// ScriptEvalFee computes script_eval_fee(ex_units) (spec §4.7).
func (p NetworkParams) ScriptEvalFee(u ExUnits) int64 {
	return int64(float64(u.Steps)*p.PriceSteps) + int64(float64(u.Mem)*p.PriceMem)
}
