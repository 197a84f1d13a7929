package selector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

func utxoWithCoin(idx uint32, coin int64) cardano.Utxo {
	var op cardano.Outpoint
	op.Index = idx
	return cardano.Utxo{Outpoint: op, Value: cardano.NewValue(coin)}
}

func TestSelectLargestFirstCovers(t *testing.T) {
	utxos := []cardano.Utxo{
		utxoWithCoin(1, 1_000_000),
		utxoWithCoin(2, 10_000_000),
		utxoWithCoin(3, 2_000_000),
	}
	target := cardano.NewValue(5_000_000)
	selected, change, err := Select(utxos, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(selected) != 1 {
		t.Fatalf("expected a single largest utxo to cover target, got %d", len(selected))
	}
	if change.Coin != 5_000_000 {
		t.Fatalf("expected change 5000000, got %d", change.Coin)
	}
}

func TestSelectInsufficientFunds(t *testing.T) {
	utxos := []cardano.Utxo{utxoWithCoin(1, 1_000_000)}
	target := cardano.NewValue(5_000_000)
	_, _, err := Select(utxos, target, nil)
	var e *engineerr.Error
	if !errors.As(err, &e) || e.Kind != engineerr.NotEnoughFunds {
		t.Fatalf("expected NotEnoughFunds, got %v", err)
	}
}

func TestSelectDeterministicWithSeededRand(t *testing.T) {
	utxos := []cardano.Utxo{
		utxoWithCoin(1, 3_000_000),
		utxoWithCoin(2, 3_000_000),
		utxoWithCoin(3, 3_000_000),
	}
	target := cardano.NewValue(2_000_000)
	a, _, err := Select(utxos, target, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Select(utxos, target, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatal("expected identical seed to produce identical selection size")
	}
}

func TestSelectCollateralRejectsAssetBearingUtxo(t *testing.T) {
	u := utxoWithCoin(1, 10_000_000)
	u.Value = u.Value.WithAsset(cardano.PolicyId{0x01}, []byte("tok"), 1)
	_, err := SelectCollateral([]cardano.Utxo{u})
	var e *engineerr.Error
	if !errors.As(err, &e) || e.Kind != engineerr.MissingCollateral {
		t.Fatalf("expected MissingCollateral, got %v", err)
	}
}

func TestSelectCollateralPicksSmallestSufficientPureAda(t *testing.T) {
	utxos := []cardano.Utxo{
		utxoWithCoin(1, 20_000_000),
		utxoWithCoin(2, 5_000_000),
		utxoWithCoin(3, 4_000_000), // below minimum, excluded
	}
	got, err := SelectCollateral(utxos)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value.Coin != 5_000_000 {
		t.Fatalf("expected the smallest sufficient utxo (5000000), got %d", got.Value.Coin)
	}
}
