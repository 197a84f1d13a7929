package planner

import (
	"bytes"
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

// testHash produces a distinct, deterministic 28-byte value per label, used
// wherever a test needs a stand-in script or key hash.
func testHash(label byte) cardano.PolicyId {
	var h cardano.PolicyId
	for i := range h {
		h[i] = label
	}
	return h
}

func testOutpoint(label byte) cardano.Outpoint {
	var o cardano.Outpoint
	o.TxHash[0] = label
	return o
}

func keyAddr(pkh cardano.PolicyId, network cardano.NetworkId) cardano.Address {
	cred, err := cardano.NewKeyHashCredential(pkh.Bytes())
	if err != nil {
		panic(err)
	}
	return cardano.NewEnterpriseAddress(network, cred)
}

// fakeBlueprint builds a Blueprint whose validators carry distinguishable
// (but otherwise arbitrary) compiled-code bytes, keyed by title.
func fakeBlueprint(titles ...string) *blueprint.Blueprint {
	raw := buildBlueprintJSON(titles)
	b, err := blueprint.Load(raw)
	if err != nil {
		panic(err)
	}
	return b
}

func buildBlueprintJSON(titles []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"preamble":{"title":"test","version":"1"},"validators":[`)
	for i, title := range titles {
		if i > 0 {
			buf.WriteString(",")
		}
		code := make([]byte, 8)
		copy(code, title)
		buf.WriteString(`{"title":"` + title + `","compiled_code":"` + hexEncode(code) + `","hash":"` + hexEncode(bytes.Repeat([]byte{byte(i + 1)}, 28)) + `"}`)
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0F]
	}
	return string(out)
}

// testFixture wires a Planner over a protocol blueprint, a dummy substandard
// blueprint, and a fresh MemoryProvider seeded with a one-node registry.
type testFixture struct {
	planner       *Planner
	provider      *chainprovider.MemoryProvider
	registrySpend cardano.Address
	registrarPkh  cardano.PolicyId
}

func newTestFixture(t *testing.T, extraUtxos ...cardano.Utxo) *testFixture {
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

	headNode := registry.Node{Key: nil, Next: registry.SentinelTerminator, Outpoint: testOutpoint(0x10)}
	headDatum := encodeRegistryDatum(headNode)
	headEnc, err := plutus.Encode(headDatum)
	if err != nil {
		t.Fatal(err)
	}
	headUtxo := cardano.Utxo{
		Outpoint: headNode.Outpoint,
		Address:  registrySpendAddr,
		Value:    cardano.NewValue(2_000_000).WithAsset(registryMintHash, nil, 1),
		Datum:    &cardano.DatumRef{Inline: headEnc},
	}

	registrarPkh := testHash(0x55)
	registrarAddr := keyAddr(registrarPkh, network)
	fundingUtxo := cardano.Utxo{
		Outpoint: testOutpoint(0x90),
		Address:  registrarAddr,
		Value:    cardano.NewValue(1_000_000_000),
	}

	utxos := append([]cardano.Utxo{headUtxo, fundingUtxo}, extraUtxos...)
	provider := chainprovider.NewMemoryProvider(utxos)

	fee := txspec.NetworkParams{
		Network:          network,
		CoinsPerUtxoByte: 4310,
		BaseFee:          155381,
		PerByteFee:       44,
		PriceSteps:       0.0000721,
		PriceMem:         0.0577,
	}

	p := New(bootstrap, protocol, substandards, provider, network, fee, scripthash.NewMemoizer())
	return &testFixture{planner: p, provider: provider, registrySpend: registrySpendAddr, registrarPkh: registrarPkh}
}

func TestRegisterTokenThenLookup(t *testing.T) {
	fx := newTestFixture(t)
	network := cardano.Testnet

	intent := RegisterTokenIntent{
		RegistrarAddress:      keyAddr(fx.registrarPkh, network),
		SubstandardID:         "dummy",
		IssueContractTitle:    "dummy.issue_withdraw",
		TransferContractTitle: "dummy.transfer_withdraw",
		AssetNameBytes:        []byte("tok"),
		Quantity:              1000,
	}

	spec, err := fx.planner.RegisterToken(context.Background(), intent)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Outputs) < 3 {
		t.Fatalf("expected at least 3 outputs (updated predecessor, new node, recipient), got %d", len(spec.Outputs))
	}
	if len(spec.Mints) != 2 {
		t.Fatalf("expected 2 mint entries (registry NFT + issuance), got %d", len(spec.Mints))
	}

	// Simulate the new registry state and confirm lookup succeeds, mirroring
	// the "register then lookup" scenario.
	var newPolicyID cardano.PolicyId
	for _, m := range spec.Mints {
		if m.Policy != fx.planner.Bootstrap.RegistryMint.ScriptHash {
			copy(newPolicyID[:], m.Policy.Bytes())
		}
	}
	updatedNodes := []registry.Node{
		{Key: nil, Next: newPolicyID.Bytes(), Outpoint: testOutpoint(0x10)},
		{Key: newPolicyID.Bytes(), Next: registry.SentinelTerminator, Outpoint: testOutpoint(0x11)},
	}
	view, err := registry.Load(updatedNodes)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := view.Lookup(newPolicyID.Bytes()); !ok {
		t.Fatal("expected the newly registered policy to be present after lookup")
	}
	if head, _ := view.Lookup(nil); !bytes.Equal(head.Next, newPolicyID.Bytes()) {
		t.Fatal("expected head's next pointer to now reference the new policy")
	}
}

func TestRegisterTokenRejectsUnknownSubstandard(t *testing.T) {
	fx := newTestFixture(t)
	intent := RegisterTokenIntent{
		RegistrarAddress: keyAddr(fx.registrarPkh, cardano.Testnet),
		SubstandardID:    "nonexistent",
	}
	if _, err := fx.planner.RegisterToken(context.Background(), intent); err == nil {
		t.Fatal("expected an error for an unknown substandard id")
	}
}
