// Package substandard implements the capability-based dispatch called for
// in spec §9: rather than a single handler branching on a substandard id
// string, each substandard is a Kind value supplying the three operations a
// planner needs — building the issue redeemer, building the transfer
// redeemer, and listing the extra reference inputs the substandard
// requires. Adding a new substandard means adding a new Kind value and a
// case in the planner package's substandardKind lookup; the planners also
// check the freeze-and-seize id directly for its blacklist parameters.
package substandard

import (
	"github.com/rawblock/ctoken-engine/internal/blacklist"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// ID names a substandard (spec glossary: "a named bundle of validator
// scripts defining a particular programmable-behaviour policy").
type ID string

const (
	Dummy          ID = "dummy"
	FreezeAndSeize ID = "freeze-and-seize"
)

// TransferContext carries everything a substandard's redeemer builders need
// about one TransferToken call (spec §4.6.3, §4.6.4).
type TransferContext struct {
	// SpentOutpoints are the sender's UTxOs being spent, in selection order.
	SpentOutpoints []cardano.Outpoint
	// SortedRefs is the canonically sorted reference-input list the
	// planner is assembling (used to compute proof/registry indices).
	SortedRefs []cardano.Outpoint
	// Blacklist is present only for substandards that consult one.
	Blacklist *blacklist.View
	// SenderStakeKeyHash identifies the sender for non-membership checks.
	SenderStakeKeyHash []byte
}

// TransferPlan is the result of building a substandard's transfer redeemer:
// the redeemer PlutusData plus any additional reference inputs (e.g. unique
// non-membership proof nodes) the substandard requires.
type TransferPlan struct {
	Redeemer          plutus.Data
	ExtraReferenceIns []cardano.Outpoint
}

// Kind is the capability interface every substandard implements (spec §9's
// "variant over the set of substandard kinds").
type Kind interface {
	ID() ID

	// BuildIssueRedeemer returns the redeemer for invoking this
	// substandard's issue_withdraw script during RegisterToken/MintToken.
	BuildIssueRedeemer() plutus.Data

	// BuildTransferRedeemer returns this substandard's transfer-withdrawal
	// redeemer plus any reference inputs it needs beyond protocol_params
	// and the registry node.
	BuildTransferRedeemer(ctx TransferContext) (TransferPlan, error)

	// RequiredReferenceInputs lists any reference inputs this substandard
	// always needs, independent of a specific transfer's proof lookups.
	RequiredReferenceInputs() []cardano.Outpoint
}

// dummyKind implements the open/no-compliance substandard (spec §8 scenario
// 1 and §4.6.3): fixed integer redeemers, no extra reference inputs.
type dummyKind struct{}

// NewDummy returns the "dummy" substandard: no compliance checks, fixed
// sentinel-integer redeemers (spec §4.6.1 step 8, §4.6.3 step 4).
func NewDummy() Kind { return dummyKind{} }

func (dummyKind) ID() ID { return Dummy }

func (dummyKind) BuildIssueRedeemer() plutus.Data {
	return plutus.NewIntegerInt64(100)
}

func (dummyKind) BuildTransferRedeemer(TransferContext) (TransferPlan, error) {
	return TransferPlan{Redeemer: plutus.NewIntegerInt64(200)}, nil
}

func (dummyKind) RequiredReferenceInputs() []cardano.Outpoint { return nil }

// freezeAndSeizeKind implements the compliance substandard (spec §4.6.4):
// every spent UTxO's redeemer carries the index of its non-membership
// proof node within the canonically sorted reference-input list.
type freezeAndSeizeKind struct{}

// NewFreezeAndSeize returns the "freeze-and-seize" substandard.
func NewFreezeAndSeize() Kind { return freezeAndSeizeKind{} }

func (freezeAndSeizeKind) ID() ID { return FreezeAndSeize }

func (freezeAndSeizeKind) BuildIssueRedeemer() plutus.Data {
	return plutus.NewConstr(0)
}

// BuildTransferRedeemer implements spec §4.6.4 steps 1-4: for each spent
// outpoint, find its non-membership proof, deduplicate proof nodes, then
// build one Constr(0, [proof_index]) per spent input (in input order)
// against the caller's already-sorted reference list.
func (freezeAndSeizeKind) BuildTransferRedeemer(ctx TransferContext) (TransferPlan, error) {
	proofNodes := make([]blacklist.Node, 0, len(ctx.SpentOutpoints))
	seen := make(map[string]bool)

	proof, err := ctx.Blacklist.NonMembershipProof(ctx.SenderStakeKeyHash)
	if err != nil {
		return TransferPlan{}, err
	}
	key := string(proof.Key)
	if !seen[key] {
		seen[key] = true
		proofNodes = append(proofNodes, proof)
	}

	entries := make([]plutus.Data, 0, len(ctx.SpentOutpoints))
	for range ctx.SpentOutpoints {
		idx, err := indexOfOutpoint(proof.Outpoint, ctx.SortedRefs)
		if err != nil {
			return TransferPlan{}, err
		}
		entries = append(entries, plutus.NewConstr(0, plutus.NewIntegerInt64(int64(idx))))
	}

	extra := make([]cardano.Outpoint, 0, len(proofNodes))
	for _, n := range proofNodes {
		extra = append(extra, n.Outpoint)
	}

	return TransferPlan{
		Redeemer:          plutus.NewList(entries...),
		ExtraReferenceIns: extra,
	}, nil
}

func (freezeAndSeizeKind) RequiredReferenceInputs() []cardano.Outpoint { return nil }

func indexOfOutpoint(target cardano.Outpoint, sorted []cardano.Outpoint) (int, error) {
	for i, o := range sorted {
		if cardano.Compare(o, target) == 0 {
			return i, nil
		}
	}
	return 0, errOutpointNotInRefs
}

var errOutpointNotInRefs = errOutpointNotFound("substandard: outpoint not present in sorted reference list")

type errOutpointNotFound string

func (e errOutpointNotFound) Error() string { return string(e) }
