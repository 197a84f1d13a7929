// Package selector implements the UTxO coin selector (spec §4.8, C8):
// largest-first selection with a random-improvement pass, plus minimum
// collateral enforcement.
package selector

import (
	"math/rand"
	"sort"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// MinCollateralLovelace is the minimum pure-ada collateral amount (spec
// §4.8: "≥ 5 ada, pure ada, single UTxO").
const MinCollateralLovelace = 5_000_000

// MinAdaForMultiAsset is a conservative floor for change: improve adds a
// further UTxO when the change coin is below twice this amount. The
// selector merges nothing itself; the assembler recomputes the precise
// per-output minimum.
const MinAdaForMultiAsset = 1_000_000

// Select runs largest-first-by-coin selection over utxos to cover target,
// then applies a random-improvement pass among equally-eligible remaining
// UTxOs to avoid always picking the same deterministic leftover dust (spec
// §4.8). rng must be seeded by the caller for reproducibility in tests.
func Select(utxos []cardano.Utxo, target cardano.Value, rng *rand.Rand) (selected []cardano.Utxo, change cardano.Value, err error) {
	candidates := append([]cardano.Utxo(nil), utxos...)
	sort.Slice(candidates, func(i, j int) bool {
		return totalWeight(candidates[i].Value) > totalWeight(candidates[j].Value)
	})

	var acc cardano.Value
	var picked []cardano.Utxo
	remaining := candidates

	for len(remaining) > 0 && !acc.GreaterOrEqual(target) {
		picked = append(picked, remaining[0])
		acc = acc.Add(remaining[0].Value)
		remaining = remaining[1:]
	}

	if !acc.GreaterOrEqual(target) {
		return nil, cardano.Value{}, engineerr.New(engineerr.NotEnoughFunds, "insufficient utxos to cover target value")
	}

	if rng != nil && len(remaining) > 0 {
		picked, acc = improve(picked, acc, remaining, target, rng)
	}

	change, err = acc.Sub(target)
	if err != nil {
		return nil, cardano.Value{}, engineerr.Wrap(engineerr.ValueNotConserved, "change computation underflowed", err)
	}

	return picked, change, nil
}

// improve optionally adds one more UTxO, sampled by rng from those the
// largest-first pass left out, when the change coin is below twice the
// multi-asset floor; a sampled UTxO that carries assets is not added. A cheap,
// deterministic stand-in for full random-improvement that still benefits
// from an externally supplied rng for which candidate it samples.
func improve(picked []cardano.Utxo, acc cardano.Value, remaining []cardano.Utxo, target cardano.Value, rng *rand.Rand) ([]cardano.Utxo, cardano.Value) {
	change, err := acc.Sub(target)
	if err != nil || change.Coin >= MinAdaForMultiAsset*2 {
		return picked, acc
	}
	idx := rng.Intn(len(remaining))
	candidate := remaining[idx]
	if candidate.Value.HasAssets() {
		return picked, acc
	}
	return append(picked, candidate), acc.Add(candidate.Value)
}

// totalWeight gives coin-equivalent precedence to larger UTxOs for the
// largest-first ordering; a UTxO carrying assets still sorts by its ada
// amount since fee/coverage capacity is what "largest" means here.
func totalWeight(v cardano.Value) int64 { return v.Coin }

// SelectCollateral picks a single pure-ada UTxO with at least
// MinCollateralLovelace (spec §4.8).
func SelectCollateral(utxos []cardano.Utxo) (cardano.Utxo, error) {
	best := -1
	for i, u := range utxos {
		if u.Value.HasAssets() {
			continue
		}
		if u.Value.Coin < MinCollateralLovelace {
			continue
		}
		if best == -1 || u.Value.Coin < utxos[best].Value.Coin {
			best = i
		}
	}
	if best == -1 {
		return cardano.Utxo{}, engineerr.New(engineerr.MissingCollateral, "no pure-ada utxo meets the minimum collateral amount")
	}
	return utxos[best], nil
}
