package planner

import (
	"context"
	"testing"

	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/chainprovider"
	"github.com/rawblock/ctoken-engine/internal/scripthash"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// blacklistFixture wires a Planner for the blacklist operations (spec
// §4.6.5, §4.6.6), built fresh per test over a given UTxO snapshot since
// MemoryProvider is an immutable fake.
type blacklistFixture struct {
	planner      *Planner
	nodePolicyID cardano.PolicyId
	spendAddr    cardano.Address
	adminAddr    cardano.Address
	adminPkh     cardano.PolicyId
	bootstrapTx  cardano.Outpoint
}

func blacklistBootstrap() ProtocolBootstrap {
	var bootstrap ProtocolBootstrap
	bootstrap.RegistrySpend.ScriptHash = testHash(0x11)
	bootstrap.RegistryMint.ScriptHash = testHash(0x22)
	bootstrap.ProgrammableLogicBase.ScriptHash = testHash(0x33)
	bootstrap.ProtocolParams.TxInput = testOutpoint(0x01)
	bootstrap.IssuanceParams.TxInput = testOutpoint(0x02)
	bootstrap.ProgrammableLogicGlobal.ScriptHash = testHash(0x44)
	return bootstrap
}

// newBlacklistFixture builds a Planner over extraUtxos plus the admin's
// bootstrap/funding UTxOs, and re-derives the blacklist's node policy id and
// spend address (pure given the fixed bootstrap tx input and admin pkh).
func newBlacklistFixture(t *testing.T, extraUtxos ...cardano.Utxo) *blacklistFixture {
	t.Helper()
	network := cardano.Testnet

	protocol := fakeBlueprint(
		"issuance_mint.issuance_mint.mint",
		"registry_mint.registry_mint.mint",
		"blacklist_mint.blacklist_mint.mint",
		"blacklist_spend.blacklist_spend.spend",
	)
	substandards := map[string]*blueprint.Blueprint{
		"freeze-and-seize": fakeBlueprint("freeze_and_seize.issue_withdraw", "freeze_and_seize.transfer_withdraw"),
	}

	fee := txspec.NetworkParams{
		Network:          network,
		CoinsPerUtxoByte: 4310,
		BaseFee:          155381,
		PerByteFee:       44,
		PriceSteps:       0.0000721,
		PriceMem:         0.0577,
	}

	adminPkh := testHash(0x99)
	adminAddr := keyAddr(adminPkh, network)
	bootstrapTx := testOutpoint(0x40)

	bootstrapUtxo := cardano.Utxo{Outpoint: bootstrapTx, Address: adminAddr, Value: cardano.NewValue(5_000_000)}
	adminFundingUtxo := cardano.Utxo{Outpoint: testOutpoint(0x41), Address: adminAddr, Value: cardano.NewValue(500_000_000)}

	utxos := append([]cardano.Utxo{bootstrapUtxo, adminFundingUtxo}, extraUtxos...)
	provider := chainprovider.NewMemoryProvider(utxos)
	p := New(blacklistBootstrap(), protocol, substandards, provider, network, fee, scripthash.NewMemoizer())

	nodePolicyID, _, err := p.blacklistNodePolicyID(bootstrapTx, adminPkh.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	spendAddr, _, err := p.blacklistSpendAddress(nodePolicyID)
	if err != nil {
		t.Fatal(err)
	}

	return &blacklistFixture{
		planner:      p,
		nodePolicyID: nodePolicyID,
		spendAddr:    spendAddr,
		adminAddr:    adminAddr,
		adminPkh:     adminPkh,
		bootstrapTx:  bootstrapTx,
	}
}

func TestInitBlacklistMintsHeadNode(t *testing.T) {
	fx := newBlacklistFixture(t)
	spec, err := fx.planner.InitBlacklist(context.Background(), InitBlacklistIntent{
		BootstrapTxInput: fx.bootstrapTx,
		AdminPkh:         fx.adminPkh.Bytes(),
		FunderAddress:    fx.adminAddr,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Mints) != 1 || len(spec.Outputs) != 1 {
		t.Fatalf("expected a single head-node mint and output, got mints=%d outputs=%d", len(spec.Mints), len(spec.Outputs))
	}
	if spec.Mints[0].Policy != fx.nodePolicyID {
		t.Fatal("expected the minted policy to match the re-derivable node policy id")
	}
}

// headNodeUtxo builds the single {Key:nil, Next:SentinelTerminator} blacklist
// UTxO that InitBlacklist would have produced, so FreezeAddress/Seize tests
// can seed an already-initialized blacklist without re-running InitBlacklist.
func headNodeUtxo(t *testing.T, nodePolicyID cardano.PolicyId, spendAddr cardano.Address) cardano.Utxo {
	t.Helper()
	headDatum := plutus.NewConstr(0, plutus.NewBytes(nil), plutus.NewBytes(thirtyFF()))
	headEnc, err := plutus.Encode(headDatum)
	if err != nil {
		t.Fatal(err)
	}
	return cardano.Utxo{
		Outpoint: testOutpoint(0x50),
		Address:  spendAddr,
		Value:    cardano.NewValue(2_000_000).WithAsset(nodePolicyID, nil, 1),
		Datum:    &cardano.DatumRef{Inline: headEnc},
	}
}

func thirtyFF() []byte {
	s := make([]byte, 30)
	for i := range s {
		s[i] = 0xFF
	}
	return s
}

func TestFreezeAddressInsertsNode(t *testing.T) {
	probe := newBlacklistFixture(t)
	head := headNodeUtxo(t, probe.nodePolicyID, probe.spendAddr)
	fx := newBlacklistFixture(t, head)

	target := testHash(0xAA).Bytes()
	spec, err := fx.planner.FreezeAddress(context.Background(), fx.nodePolicyID, FreezeAddressIntent{
		TargetStakeKeyHash: target,
		AdminAddress:       fx.adminAddr,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Outputs) != 2 {
		t.Fatalf("expected updated predecessor + new node outputs, got %d", len(spec.Outputs))
	}
	if len(spec.Mints) != 1 || spec.Mints[0].Assets[string(target)] != 1 {
		t.Fatal("expected a single mint entry for the frozen address's node token")
	}
}

func TestSeizeFailsWithoutBalance(t *testing.T) {
	fx := newBlacklistFixture(t)
	_, err := fx.planner.Seize(context.Background(), SeizeIntent{
		TargetStakeKeyHash: testHash(0xAA).Bytes(),
		PolicyID:           testHash(0x66),
		AssetNameBytes:     []byte("tok"),
		AdminAddress:       fx.adminAddr,
	})
	if err == nil {
		t.Fatal("expected UtxoNotFound when the target holds no seizable balance")
	}
}
