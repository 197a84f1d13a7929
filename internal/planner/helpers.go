package planner

import (
	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/scripthash"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// scriptHashOf is a thin wrapper around scripthash.ScriptHash kept local to
// this package for call-site brevity.
func scriptHashOf(s cardano.Script) cardano.PolicyId {
	return scripthash.ScriptHash(s)
}

// scriptRewardAddress derives the withdrawal (reward) address for a
// parameterized script (spec §4.2 reward_address).
func scriptRewardAddress(s cardano.Script, network cardano.NetworkId) (cardano.Address, error) {
	return scripthash.RewardAddress(s, network)
}

// blueprintEnterpriseAddress derives the payment-script-only address of a
// resolved script hash (spec §4.3 enterprise_address).
func blueprintEnterpriseAddress(scriptHash cardano.PolicyId, network cardano.NetworkId) (cardano.Address, error) {
	return blueprint.EnterpriseAddress(scriptHash, network)
}

// programmableTokenAddress derives the base address of a specific holder
// of a programmable token: the shared programmable-logic-base payment
// script combined with the holder's own stake credential (spec §3
// "programmable-token address", §4.3 base_address).
func programmableTokenAddress(paymentScriptHash cardano.PolicyId, holder cardano.Address, network cardano.NetworkId) (cardano.Address, error) {
	stakeCred, err := holder.StakeCredential()
	if err != nil {
		return cardano.Address{}, err
	}
	return blueprint.BaseAddress(paymentScriptHash, stakeCred.Hash[:], network)
}

// rewardAddressFromHash derives a stake-script reward address directly from
// an already-known script hash, without needing the script's compiled bytes.
// A reward address only ever encodes the credential hash (spec §4.2), so
// this is exact — not an approximation — for scripts whose hash the planner
// learned from a registry/blacklist node or a bootstrap snapshot rather than
// by re-parameterizing the template itself.
func rewardAddressFromHash(hash cardano.PolicyId, network cardano.NetworkId) (cardano.Address, error) {
	cred, err := cardano.NewScriptHashCredential(hash[:])
	if err != nil {
		return cardano.Address{}, err
	}
	return cardano.NewEnterpriseAddress(network, cred), nil
}

// registryMintScript resolves the registry_mint validator's compiled code.
// Its real parameterization (tx_input, issuance_script_hash) happened once
// at deployment time when ProtocolBootstrap was produced (out of scope,
// spec §3's "Lifecycles"); planners trust the bootstrap's already-snapshotted
// script_hash rather than re-deriving parameters they were never given, and
// only need the compiled-code blob here as the minting witness script.
func registryMintScript(p *Planner) (cardano.Script, error) {
	v, err := p.Protocol.Find("registry_mint.registry_mint.mint")
	if err != nil {
		return cardano.Script{}, err
	}
	return cardano.Script{Version: cardano.V3, Bytes: v.CompiledCode}, nil
}
