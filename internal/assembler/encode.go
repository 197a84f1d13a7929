package assembler

import (
	gcbor "github.com/blinklabs-io/gouroboros/cbor"

	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
	"github.com/rawblock/ctoken-engine/pkg/plutus"
)

// bodyInput mirrors the two-element [tx_hash, index] array the ledger uses
// for a transaction input (Cardano CDDL transaction_input).
type bodyInput struct {
	_         struct{} `cbor:",toarray"`
	TxHash    []byte
	OutputIdx uint32
}

// encodeBody renders the already-canonically-ordered UnsignedTransaction as
// a CBOR map keyed by the standard Cardano transaction-body field numbers
// (spec §6 "On-chain wire"). Field numbering follows the Alonzo/Babbage
// transaction_body CDDL (0=inputs, 1=outputs, 2=fee, 5=withdrawals,
// 9=mint, 13=collateral, 14=required_signers, 18=reference_inputs).
func encodeBody(tx UnsignedTransaction) ([]byte, error) {
	outputs, err := encodeOutputs(tx.Outputs)
	if err != nil {
		return nil, err
	}

	fields := map[uint64]any{
		0: encodeInputs(tx.Inputs),
		1: outputs,
		2: uint64(tx.Fee),
	}
	if len(tx.Withdrawals) > 0 {
		fields[5] = encodeWithdrawals(tx.Withdrawals)
	}
	if len(tx.Mints) > 0 {
		fields[9] = encodeMints(tx.Mints)
	}
	if len(tx.Collateral) > 0 {
		fields[13] = encodeInputs(tx.Collateral)
	}
	if len(tx.RequiredSigners) > 0 {
		fields[14] = encodeRequiredSigners(tx.RequiredSigners)
	}
	if len(tx.ReferenceInputs) > 0 {
		fields[18] = encodeInputs(tx.ReferenceInputs)
	}

	return gcbor.Encode(fields)
}

func encodeInputs(outpoints []cardano.Outpoint) []bodyInput {
	out := make([]bodyInput, len(outpoints))
	for i, o := range outpoints {
		out[i] = bodyInput{TxHash: append([]byte(nil), o.TxHash[:]...), OutputIdx: o.Index}
	}
	return out
}

// encodeOutputs renders each output as an int-keyed map matching the
// post-Alonzo transaction_output CDDL (0=address, 1=value, 2=datum_option),
// so that an inline datum (unavailable in the legacy array format) still
// has a wire representation.
func encodeOutputs(outs []txspec.Output) ([]map[uint64]any, error) {
	out := make([]map[uint64]any, len(outs))
	for i, o := range outs {
		fields := map[uint64]any{
			0: o.Address.Bytes(),
			1: encodeValue(o.Value),
		}
		if o.Datum != nil {
			datumBytes, err := plutus.Encode(*o.Datum)
			if err != nil {
				return nil, err
			}
			// datum_option = [0, $hash32] / [1, data]; data = #6.24(bstr .cbor plutus_data)
			fields[2] = []any{1, gcbor.Tag{Number: 24, Content: datumBytes}}
		}
		out[i] = fields
	}
	return out, nil
}

// encodeValue renders value = coin / [coin, multiasset<uint>], keying the
// multiasset map's policy ids and asset names as CBOR byte strings (never
// Go strings, which a generic CBOR encoder renders as CBOR text strings —
// see _examples/other_examples/.../ledger-utxo.go.go's cbor.ByteString
// map-key convention).
func encodeValue(v cardano.Value) any {
	assets := v.Assets()
	if len(assets) == 0 {
		return uint64(v.Coin)
	}
	multiasset := make(map[gcbor.ByteString]map[gcbor.ByteString]uint64)
	for _, a := range assets {
		policyKey := gcbor.NewByteString(a.Policy.Bytes())
		if multiasset[policyKey] == nil {
			multiasset[policyKey] = make(map[gcbor.ByteString]uint64)
		}
		multiasset[policyKey][gcbor.NewByteString(a.Asset)] = uint64(a.Amount)
	}
	return []any{uint64(v.Coin), multiasset}
}

func encodeWithdrawals(ws []txspec.Withdrawal) map[gcbor.ByteString]uint64 {
	out := make(map[gcbor.ByteString]uint64, len(ws))
	for _, w := range ws {
		out[gcbor.NewByteString(w.RewardAddress.Bytes())] = uint64(w.Amount)
	}
	return out
}

func encodeMints(mints []txspec.MintEntry) map[gcbor.ByteString]map[gcbor.ByteString]int64 {
	out := make(map[gcbor.ByteString]map[gcbor.ByteString]int64, len(mints))
	for _, m := range mints {
		policyKey := gcbor.NewByteString(m.Policy.Bytes())
		assets := make(map[gcbor.ByteString]int64, len(m.Assets))
		for name, qty := range m.Assets {
			assets[gcbor.NewByteString([]byte(name))] = qty
		}
		out[policyKey] = assets
	}
	return out
}

func encodeRequiredSigners(signers [][28]byte) [][]byte {
	out := make([][]byte, len(signers))
	for i, s := range signers {
		out[i] = append([]byte(nil), s[:]...)
	}
	return out
}
