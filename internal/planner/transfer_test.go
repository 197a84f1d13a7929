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

// transferFixture wires a registered dummy-substandard policy with a single
// sender UTxO holding 250 units, for the "transfer 100 out of 250" scenario
// (spec §8 scenario 4).
type transferFixture struct {
	planner        *Planner
	policyID       cardano.PolicyId
	senderBaseAddr cardano.Address
	senderStakePkh cardano.PolicyId
	recipientStake cardano.PolicyId
	tokenAssetName []byte
}

func newTransferFixture(t *testing.T, senderBalance int64) *transferFixture {
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
	policyID := testHash(0x66)
	transferScriptHash := testHash(0x77)

	var bootstrap ProtocolBootstrap
	bootstrap.RegistrySpend.ScriptHash = registrySpendHash
	bootstrap.RegistryMint.ScriptHash = registryMintHash
	bootstrap.ProgrammableLogicBase.ScriptHash = programmableLogicBaseHash
	bootstrap.ProtocolParams.TxInput = testOutpoint(0x01)
	bootstrap.IssuanceParams.TxInput = testOutpoint(0x02)
	bootstrap.ProgrammableLogicGlobal.ScriptHash = testHash(0x44)

	registeredNode := registry.Node{
		Key:                policyID.Bytes(),
		Next:               registry.SentinelTerminator,
		TransferScriptHash: transferScriptHash.Bytes(),
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

	senderStakePkh := testHash(0x55)
	senderBaseAddr, err := blueprint.BaseAddress(programmableLogicBaseHash, senderStakePkh.Bytes(), network)
	if err != nil {
		t.Fatal(err)
	}
	assetName := []byte("tok")
	senderUtxo := cardano.Utxo{
		Outpoint: testOutpoint(0x30),
		Address:  senderBaseAddr,
		Value:    cardano.NewValue(2_000_000).WithAsset(policyID, assetName, senderBalance),
		Datum:    &cardano.DatumRef{Inline: mustEncodeConstr0(t)},
	}
	collateralUtxo := cardano.Utxo{
		Outpoint: testOutpoint(0x31),
		Address:  senderBaseAddr,
		Value:    cardano.NewValue(10_000_000),
	}
	feeUtxo := cardano.Utxo{
		Outpoint: testOutpoint(0x32),
		Address:  senderBaseAddr,
		Value:    cardano.NewValue(50_000_000),
	}

	provider := chainprovider.NewMemoryProvider([]cardano.Utxo{headUtxo, registeredUtxo, senderUtxo, collateralUtxo, feeUtxo})

	fee := txspec.NetworkParams{
		Network:          network,
		CoinsPerUtxoByte: 4310,
		BaseFee:          155381,
		PerByteFee:       44,
		PriceSteps:       0.0000721,
		PriceMem:         0.0577,
	}

	p := New(bootstrap, protocol, substandards, provider, network, fee, scripthash.NewMemoizer())
	return &transferFixture{
		planner:        p,
		policyID:       policyID,
		senderBaseAddr: senderBaseAddr,
		senderStakePkh: senderStakePkh,
		recipientStake: testHash(0x88),
		tokenAssetName: assetName,
	}
}

func mustEncodeConstr0(t *testing.T) []byte {
	t.Helper()
	enc, err := plutus.Encode(plutus.NewConstr(0))
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

func TestTransferTokenPartialLeavesSenderChange(t *testing.T) {
	fx := newTransferFixture(t, 250)
	intent := TransferTokenIntent{
		SubstandardID:         "dummy",
		PolicyID:              fx.policyID,
		AssetNameBytes:        fx.tokenAssetName,
		Quantity:              100,
		SenderStakeKeyHash:    fx.senderStakePkh.Bytes(),
		RecipientStakeKeyHash: fx.recipientStake.Bytes(),
		SenderBaseAddress:     fx.senderBaseAddr,
	}

	spec, err := fx.planner.TransferToken(context.Background(), intent)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Outputs) != 2 {
		t.Fatalf("expected recipient output + sender change output, got %d", len(spec.Outputs))
	}
	foundChange := false
	for _, o := range spec.Outputs {
		if o.Value.AssetAmount(fx.policyID, fx.tokenAssetName) == 150 {
			foundChange = true
		}
	}
	if !foundChange {
		t.Fatal("expected a 150-unit change output (250 selected - 100 transferred)")
	}
	if len(spec.Withdrawals) != 2 {
		t.Fatalf("expected global + substandard transfer withdrawals, got %d", len(spec.Withdrawals))
	}
}

func TestTransferTokenExactBalanceOmitsChange(t *testing.T) {
	fx := newTransferFixture(t, 100)
	intent := TransferTokenIntent{
		SubstandardID:         "dummy",
		PolicyID:              fx.policyID,
		AssetNameBytes:        fx.tokenAssetName,
		Quantity:              100,
		SenderStakeKeyHash:    fx.senderStakePkh.Bytes(),
		RecipientStakeKeyHash: fx.recipientStake.Bytes(),
		SenderBaseAddress:     fx.senderBaseAddr,
	}

	spec, err := fx.planner.TransferToken(context.Background(), intent)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Outputs) != 1 {
		t.Fatalf("expected exactly the recipient output with no sender change, got %d", len(spec.Outputs))
	}
}

func TestTransferTokenInsufficientBalance(t *testing.T) {
	fx := newTransferFixture(t, 50)
	intent := TransferTokenIntent{
		SubstandardID:         "dummy",
		PolicyID:              fx.policyID,
		AssetNameBytes:        fx.tokenAssetName,
		Quantity:              100,
		SenderStakeKeyHash:    fx.senderStakePkh.Bytes(),
		RecipientStakeKeyHash: fx.recipientStake.Bytes(),
		SenderBaseAddress:     fx.senderBaseAddr,
	}
	if _, err := fx.planner.TransferToken(context.Background(), intent); err == nil {
		t.Fatal("expected NotEnoughFunds for a sender balance below the requested quantity")
	}
}
