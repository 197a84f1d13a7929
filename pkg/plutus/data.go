// Package plutus implements the canonical PlutusData tree and its binary
// encoding — the wire format the Cardano ledger uses for datums and
// redeemers. Two structurally equal values must serialize identically, and
// the encoding must match what an on-chain Plutus script sees bit-for-bit.
package plutus

import "math/big"

// Kind discriminates the PlutusData variants.
type Kind int

const (
	KindConstr Kind = iota
	KindInteger
	KindBytes
	KindList
	KindMap
)

// Pair is a key/value entry of a Map, order-preserving.
type Pair struct {
	Key   Data
	Value Data
}

// Data is the recursive tagged-union described by spec §3: Constr, Integer,
// Bytes, List, Map. The zero value is not meaningful; always construct via
// the New* functions.
type Data struct {
	kind   Kind
	tag    uint64
	fields []Data
	pairs  []Pair
	i      *big.Int
	bytes  []byte
}

// NewConstr builds a constructor value. tag must be non-negative.
func NewConstr(tag uint64, fields ...Data) Data {
	cp := make([]Data, len(fields))
	copy(cp, fields)
	return Data{kind: KindConstr, tag: tag, fields: cp}
}

// NewInteger builds an arbitrary-precision signed integer value.
func NewInteger(v *big.Int) Data {
	return Data{kind: KindInteger, i: new(big.Int).Set(v)}
}

// NewIntegerInt64 is a convenience wrapper around NewInteger for small values.
func NewIntegerInt64(v int64) Data {
	return NewInteger(big.NewInt(v))
}

// NewBytes builds a byte-string value. The input is copied.
func NewBytes(b []byte) Data {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Data{kind: KindBytes, bytes: cp}
}

// NewList builds an ordered, finite list value.
func NewList(items ...Data) Data {
	cp := make([]Data, len(items))
	copy(cp, items)
	return Data{kind: KindList, fields: cp}
}

// NewMap builds an ordered key/value map value. Order is preserved as given;
// callers that need canonical key ordering must sort before calling.
func NewMap(pairs ...Pair) Data {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return Data{kind: KindMap, pairs: cp}
}

func (d Data) Kind() Kind { return d.kind }

// Tag returns the constructor tag. Only meaningful when Kind() == KindConstr.
func (d Data) Tag() uint64 { return d.tag }

// Fields returns the constructor's field list or a List's items.
func (d Data) Fields() []Data { return d.fields }

// Pairs returns a Map's entries.
func (d Data) Pairs() []Pair { return d.pairs }

// Int returns the wrapped integer. Only meaningful when Kind() == KindInteger.
func (d Data) Int() *big.Int { return d.i }

// Bytes returns the wrapped byte string. Only meaningful when Kind() == KindBytes.
func (d Data) Bytes() []byte { return d.bytes }

// Equal reports whether a and b serialize identically. Canonical encoding is
// injective (spec §3 invariant), so structural equality can be decided by
// comparing encoded bytes.
func Equal(a, b Data) bool {
	ea, errA := Encode(a)
	eb, errB := Encode(b)
	if errA != nil || errB != nil {
		return false
	}
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false
		}
	}
	return true
}
