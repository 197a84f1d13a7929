package planner

import (
	"context"
	"testing"

	"github.com/rawblock/ctoken-engine/internal/blueprint"
	"github.com/rawblock/ctoken-engine/internal/chainprovider"
	"github.com/rawblock/ctoken-engine/internal/registry"
	"github.com/rawblock/ctoken-engine/internal/scripthash"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// mintFixture wires a Planner over a registry that already holds one
// registered policy, whose actual policy id is re-derived the same way
// MintToken re-derives it, so the happy path matches the registered entry.
type mintFixture struct {
	planner        *Planner
	policyID       cardano.PolicyId
	registrarAddr  cardano.Address
	recipientAddr  cardano.Address
	assetNameBytes []byte
}

func newMintFixture(t *testing.T) *mintFixture {
	t.Helper()
	network := cardano.Testnet

	protocol := fakeBlueprint(
		"issuance_mint.issuance_mint.mint",
		"registry_mint.registry_mint.mint",
		"blacklist_mint.blacklist_mint.mint",
		"blacklist_spend.blacklist_spend.spend",
	)
	substandards := map[string]*blueprint.Blueprint{
		"dummy": fakeBlueprint("dummy.issue_withdraw", "dummy.transfer_withdraw"),
	}

	registrySpendHash := testHash(0x11)
	registrySpendAddr, err := blueprint.EnterpriseAddress(registrySpendHash, network)
	if err != nil {
		t.Fatal(err)
	}
	registryMintHash := testHash(0x22)
	programmableLogicBaseHash := testHash(0x33)

	var bootstrap ProtocolBootstrap
	bootstrap.RegistrySpend.ScriptHash = registrySpendHash
	bootstrap.RegistryMint.ScriptHash = registryMintHash
	bootstrap.ProgrammableLogicBase.ScriptHash = programmableLogicBaseHash
	bootstrap.ProtocolParams.TxInput = testOutpoint(0x01)
	bootstrap.IssuanceParams.TxInput = testOutpoint(0x02)
	bootstrap.ProgrammableLogicGlobal.ScriptHash = testHash(0x44)

	fee := txspec.NetworkParams{
		Network:          network,
		CoinsPerUtxoByte: 4310,
		BaseFee:          155381,
		PerByteFee:       44,
		PriceSteps:       0.0000721,
		PriceMem:         0.0577,
	}

	registrarPkh := testHash(0x55)
	registrarAddr := keyAddr(registrarPkh, network)
	recipientAddr := keyAddr(testHash(0x66), network)
	fundingUtxo := cardano.Utxo{Outpoint: testOutpoint(0x90), Address: registrarAddr, Value: cardano.NewValue(1_000_000_000)}

	// Build a provisional planner (no registry utxo yet) purely to
	// re-derive the issuance policy id the same way MintToken will,
	// so the registry seed below names the correct key.
	probe := New(bootstrap, protocol, substandards, chainprovider.NewMemoryProvider(nil), network, fee, scripthash.NewMemoizer())
	issueScript, err := probe.parameterizeValidator(substandards["dummy"], "dummy.issue_withdraw", nil, cardano.V3)
	if err != nil {
		t.Fatal(err)
	}
	issuanceTemplate, err := protocol.Find("issuance_mint.issuance_mint.mint")
	if err != nil {
		t.Fatal(err)
	}
	issuanceScript, err := probe.Memo.ApplyParams(issuanceTemplate.CompiledCode, []plutus.Data{
		plutus.NewConstr(1, plutus.NewBytes(programmableLogicBaseHash.Bytes())),
		plutus.NewConstr(1, plutus.NewBytes(scriptHashOf(issueScript).Bytes())),
	}, cardano.V3)
	if err != nil {
		t.Fatal(err)
	}
	policyID := scriptHashOf(issuanceScript)

	registeredNode := registry.Node{
		Key:                policyID.Bytes(),
		Next:               registry.SentinelTerminator,
		TransferScriptHash: testHash(0x77).Bytes(),
		Outpoint:           testOutpoint(0x20),
	}
	headNode := registry.Node{Key: nil, Next: policyID.Bytes(), Outpoint: testOutpoint(0x10)}

	headEnc, err := plutus.Encode(encodeRegistryDatum(headNode))
	if err != nil {
		t.Fatal(err)
	}
	registeredEnc, err := plutus.Encode(encodeRegistryDatum(registeredNode))
	if err != nil {
		t.Fatal(err)
	}
	headUtxo := cardano.Utxo{
		Outpoint: headNode.Outpoint,
		Address:  registrySpendAddr,
		Value:    cardano.NewValue(2_000_000).WithAsset(registryMintHash, nil, 1),
		Datum:    &cardano.DatumRef{Inline: headEnc},
	}
	registeredUtxo := cardano.Utxo{
		Outpoint: registeredNode.Outpoint,
		Address:  registrySpendAddr,
		Value:    cardano.NewValue(2_000_000).WithAsset(registryMintHash, policyID.Bytes(), 1),
		Datum:    &cardano.DatumRef{Inline: registeredEnc},
	}

	provider := chainprovider.NewMemoryProvider([]cardano.Utxo{headUtxo, registeredUtxo, fundingUtxo})
	p := New(bootstrap, protocol, substandards, provider, network, fee, scripthash.NewMemoizer())

	return &mintFixture{
		planner:        p,
		policyID:       policyID,
		registrarAddr:  registrarAddr,
		recipientAddr:  recipientAddr,
		assetNameBytes: []byte("tok"),
	}
}

func TestMintTokenHappyPath(t *testing.T) {
	fx := newMintFixture(t)
	spec, err := fx.planner.MintToken(context.Background(), MintTokenIntent{
		PolicyID:         fx.policyID,
		AssetNameBytes:   fx.assetNameBytes,
		Quantity:         500,
		RecipientAddress: fx.recipientAddr,
		RegistrarAddress: fx.registrarAddr,
	}, "dummy", "dummy.issue_withdraw")
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Mints) != 1 || spec.Mints[0].Assets[string(fx.assetNameBytes)] != 500 {
		t.Fatal("expected a single mint entry for 500 additional units")
	}
	if len(spec.Outputs) != 1 {
		t.Fatalf("expected exactly the recipient output, got %d", len(spec.Outputs))
	}
}

func TestMintTokenRejectsUnregisteredPolicy(t *testing.T) {
	fx := newMintFixture(t)
	var unknown cardano.PolicyId
	copy(unknown[:], testHash(0xEE).Bytes())
	_, err := fx.planner.MintToken(context.Background(), MintTokenIntent{
		PolicyID:         unknown,
		AssetNameBytes:   fx.assetNameBytes,
		Quantity:         500,
		RecipientAddress: fx.recipientAddr,
		RegistrarAddress: fx.registrarAddr,
	}, "dummy", "dummy.issue_withdraw")
	if err == nil {
		t.Fatal("expected UtxoNotFound for a policy id absent from the registry")
	}
}
