package plutus

import "math/big"

// Canonical CBOR head/major-type helpers. PlutusData's wire format is a
// strict subset of CBOR (RFC 8949) with the constructor/chunking
// conventions described in spec §4.1. We hand-roll this codec rather than
// delegate to a general-purpose CBOR library because C1 is the one place
// the off-chain and on-chain implementations must agree byte-for-byte —
// generic struct-tag-driven encoders do not expose the compact-constructor
// and indefinite-length-byte-string rules Plutus requires.

const (
	majorUint    = 0
	majorNegInt  = 1
	majorBytes   = 2
	majorArray   = 4
	majorMap     = 5
	majorTag     = 6
	majorSpecial = 7

	tagBignumPos = 2
	tagBignumNeg = 3

	breakByte = 0xFF

	chunkSize = 64 // spec: byte strings >64 bytes are chunked into 64-byte pieces
)

func appendHead(buf []byte, major byte, n uint64) []byte {
	hi := major << 5
	switch {
	case n < 24:
		return append(buf, hi|byte(n))
	case n <= 0xFF:
		return append(buf, hi|24, byte(n))
	case n <= 0xFFFF:
		return append(buf, hi|25, byte(n>>8), byte(n))
	case n <= 0xFFFFFFFF:
		return append(buf, hi|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(buf, hi|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

func appendIndefHead(buf []byte, major byte) []byte {
	return append(buf, (major<<5)|31)
}

// Encode serializes a PlutusData value to its canonical binary form.
func Encode(d Data) ([]byte, error) {
	return encodeValue(nil, d, 0)
}

func encodeValue(buf []byte, d Data, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	switch d.kind {
	case KindConstr:
		return encodeConstr(buf, d, depth)
	case KindInteger:
		return encodeInteger(buf, d.i), nil
	case KindBytes:
		return encodeBytes(buf, d.bytes), nil
	case KindList:
		return encodeList(buf, d.fields, depth)
	case KindMap:
		return encodeMap(buf, d.pairs, depth)
	default:
		return nil, ErrMalformedInput
	}
}

func encodeConstr(buf []byte, d Data, depth int) ([]byte, error) {
	var err error
	if d.tag <= 6 {
		buf = append(buf, appendHead(nil, majorTag, 121+d.tag)...)
		buf, err = encodeFieldArray(buf, d.fields, depth)
		return buf, err
	}
	// Long form: CBOR tag 102 wrapping [tag, fields].
	buf = append(buf, appendHead(nil, majorTag, 102)...)
	buf = appendHead(buf, majorArray, 2)
	buf = encodeInteger(buf, new(big.Int).SetUint64(d.tag))
	buf, err = encodeFieldArray(buf, d.fields, depth)
	return buf, err
}

func encodeFieldArray(buf []byte, fields []Data, depth int) ([]byte, error) {
	var err error
	if len(fields) == 0 {
		buf = appendIndefHead(buf, majorArray)
		buf = append(buf, breakByte)
		return buf, nil
	}
	buf = appendHead(buf, majorArray, uint64(len(fields)))
	for _, f := range fields {
		buf, err = encodeValue(buf, f, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeList(buf []byte, items []Data, depth int) ([]byte, error) {
	return encodeFieldArray(buf, items, depth)
}

func encodeMap(buf []byte, pairs []Pair, depth int) ([]byte, error) {
	var err error
	if len(pairs) == 0 {
		buf = appendIndefHead(buf, majorMap)
		buf = append(buf, breakByte)
		return buf, nil
	}
	buf = appendHead(buf, majorMap, uint64(len(pairs)))
	for _, p := range pairs {
		buf, err = encodeValue(buf, p.Key, depth+1)
		if err != nil {
			return nil, err
		}
		buf, err = encodeValue(buf, p.Value, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeInteger(buf []byte, v *big.Int) []byte {
	if v.Sign() >= 0 {
		if v.IsUint64() {
			return appendHead(buf, majorUint, v.Uint64())
		}
		return encodeBignum(buf, majorTag, tagBignumPos, v)
	}
	// CBOR negative integers encode n = -(v+1).
	n := new(big.Int).Neg(v)
	n.Sub(n, big.NewInt(1))
	if n.IsUint64() {
		return appendHead(buf, majorNegInt, n.Uint64())
	}
	return encodeBignum(buf, majorTag, tagBignumNeg, n)
}

func encodeBignum(buf []byte, major byte, tag uint64, mag *big.Int) []byte {
	buf = appendHead(buf, major, tag)
	b := mag.Bytes()
	return encodeBytesRaw(buf, b)
}

func encodeBytes(buf []byte, b []byte) []byte {
	return encodeBytesRaw(buf, b)
}

func encodeBytesRaw(buf []byte, b []byte) []byte {
	if len(b) <= chunkSize {
		buf = appendHead(buf, majorBytes, uint64(len(b)))
		return append(buf, b...)
	}
	buf = appendIndefHead(buf, majorBytes)
	for off := 0; off < len(b); off += chunkSize {
		end := off + chunkSize
		if end > len(b) {
			end = len(b)
		}
		chunk := b[off:end]
		buf = appendHead(buf, majorBytes, uint64(len(chunk)))
		buf = append(buf, chunk...)
	}
	buf = append(buf, breakByte)
	return buf
}
