package plutus

import "errors"

// Sentinel decode/encode errors per spec §4.1.
var (
	// ErrMalformedInput is returned when the byte stream is not valid CBOR
	// or does not conform to the canonical PlutusData grammar.
	ErrMalformedInput = errors.New("plutus: malformed input")
	// ErrUnknownTag is returned for a CBOR major-type-6 tag this codec does
	// not understand (anything other than 121-127, 102, 2, 3).
	ErrUnknownTag = errors.New("plutus: unknown tag")
	// ErrTooDeep is returned when nesting exceeds maxDepth.
	ErrTooDeep = errors.New("plutus: nesting too deep")
	// ErrBadParameter is returned by the script parameterizer when a
	// parameter value cannot be serialized.
	ErrBadParameter = errors.New("plutus: parameter failed to serialize")
)

// maxDepth bounds recursive descent, per spec §4.1 "safety limit of 512".
const maxDepth = 512
