package plutus

import "math/big"

// decoder walks a canonical CBOR byte slice, rejecting any encoding that
// isn't the shortest/canonical form this package itself would produce.
type decoder struct {
	buf []byte
	pos int
}

// Decode parses a canonical PlutusData encoding. It rejects non-canonical
// input (e.g. a non-shortest integer head) as ErrMalformedInput.
func Decode(b []byte) (Data, error) {
	dec := &decoder{buf: b}
	v, err := dec.readValue(0)
	if err != nil {
		return Data{}, err
	}
	if dec.pos != len(dec.buf) {
		return Data{}, ErrMalformedInput
	}
	return v, nil
}

func (d *decoder) byteAt(i int) (byte, bool) {
	if i < 0 || i >= len(d.buf) {
		return 0, false
	}
	return d.buf[i], true
}

func (d *decoder) readHead() (major byte, info byte, n uint64, err error) {
	b, ok := d.byteAt(d.pos)
	if !ok {
		return 0, 0, 0, ErrMalformedInput
	}
	major = b >> 5
	info = b & 0x1F
	d.pos++
	switch {
	case info < 24:
		return major, info, uint64(info), nil
	case info == 24:
		if d.pos >= len(d.buf) {
			return 0, 0, 0, ErrMalformedInput
		}
		v := uint64(d.buf[d.pos])
		d.pos++
		if v < 24 {
			return 0, 0, 0, ErrMalformedInput // non-canonical
		}
		return major, info, v, nil
	case info == 25:
		if d.pos+2 > len(d.buf) {
			return 0, 0, 0, ErrMalformedInput
		}
		v := uint64(d.buf[d.pos])<<8 | uint64(d.buf[d.pos+1])
		d.pos += 2
		if v <= 0xFF {
			return 0, 0, 0, ErrMalformedInput
		}
		return major, info, v, nil
	case info == 26:
		if d.pos+4 > len(d.buf) {
			return 0, 0, 0, ErrMalformedInput
		}
		v := uint64(0)
		for i := 0; i < 4; i++ {
			v = v<<8 | uint64(d.buf[d.pos+i])
		}
		d.pos += 4
		if v <= 0xFFFF {
			return 0, 0, 0, ErrMalformedInput
		}
		return major, info, v, nil
	case info == 27:
		if d.pos+8 > len(d.buf) {
			return 0, 0, 0, ErrMalformedInput
		}
		v := uint64(0)
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(d.buf[d.pos+i])
		}
		d.pos += 8
		if v <= 0xFFFFFFFF {
			return 0, 0, 0, ErrMalformedInput
		}
		return major, info, v, nil
	case info == 31:
		return major, info, 0, nil // indefinite marker
	default:
		return 0, 0, 0, ErrMalformedInput
	}
}

func (d *decoder) readValue(depth int) (Data, error) {
	if depth > maxDepth {
		return Data{}, ErrTooDeep
	}
	startPos := d.pos
	major, info, n, err := d.readHead()
	if err != nil {
		return Data{}, err
	}
	switch major {
	case majorUint:
		return NewInteger(new(big.Int).SetUint64(n)), nil
	case majorNegInt:
		v := new(big.Int).SetUint64(n)
		v.Add(v, big.NewInt(1))
		v.Neg(v)
		return NewInteger(v), nil
	case majorBytes:
		return d.readBytes(info, n, startPos)
	case majorArray:
		return d.readArray(info, n, depth)
	case majorMap:
		return d.readMap(info, n, depth)
	case majorTag:
		return d.readTagged(n, depth)
	default:
		return Data{}, ErrMalformedInput
	}
}

func (d *decoder) readBytes(info byte, n uint64, _ int) (Data, error) {
	if info == 31 {
		// Indefinite-length byte string: sequence of definite chunks + break.
		var out []byte
		for {
			b, ok := d.byteAt(d.pos)
			if !ok {
				return Data{}, ErrMalformedInput
			}
			if b == breakByte {
				d.pos++
				break
			}
			major, chunkInfo, chunkN, err := d.readHead()
			if err != nil {
				return Data{}, err
			}
			if major != majorBytes || chunkInfo == 31 {
				return Data{}, ErrMalformedInput
			}
			if chunkN > chunkSize {
				return Data{}, ErrMalformedInput // non-canonical chunk size
			}
			if d.pos+int(chunkN) > len(d.buf) {
				return Data{}, ErrMalformedInput
			}
			out = append(out, d.buf[d.pos:d.pos+int(chunkN)]...)
			d.pos += int(chunkN)
		}
		if len(out) <= chunkSize {
			return Data{}, ErrMalformedInput // should have been definite-length
		}
		return NewBytes(out), nil
	}
	if n > chunkSize {
		return Data{}, ErrMalformedInput // must be chunked beyond 64 bytes
	}
	if d.pos+int(n) > len(d.buf) {
		return Data{}, ErrMalformedInput
	}
	out := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return NewBytes(out), nil
}

func (d *decoder) readArray(info byte, n uint64, depth int) (Data, error) {
	if info == 31 {
		b, ok := d.byteAt(d.pos)
		if !ok || b != breakByte {
			return Data{}, ErrMalformedInput // only empty arrays are indefinite
		}
		d.pos++
		return NewList(), nil
	}
	if n == 0 {
		return Data{}, ErrMalformedInput // empty must be indefinite-length
	}
	items := make([]Data, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := d.readValue(depth + 1)
		if err != nil {
			return Data{}, err
		}
		items = append(items, v)
	}
	return NewList(items...), nil
}

func (d *decoder) readMap(info byte, n uint64, depth int) (Data, error) {
	if info == 31 {
		b, ok := d.byteAt(d.pos)
		if !ok || b != breakByte {
			return Data{}, ErrMalformedInput
		}
		d.pos++
		return NewMap(), nil
	}
	if n == 0 {
		return Data{}, ErrMalformedInput
	}
	pairs := make([]Pair, 0, n)
	for i := uint64(0); i < n; i++ {
		k, err := d.readValue(depth + 1)
		if err != nil {
			return Data{}, err
		}
		v, err := d.readValue(depth + 1)
		if err != nil {
			return Data{}, err
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return NewMap(pairs...), nil
}

func (d *decoder) readTagged(tag uint64, depth int) (Data, error) {
	switch {
	case tag >= 121 && tag <= 127:
		fields, err := d.readFieldArray(depth)
		if err != nil {
			return Data{}, err
		}
		return NewConstr(tag-121, fields...), nil
	case tag == 102:
		major, info, n, err := d.readHead()
		if err != nil {
			return Data{}, err
		}
		if major != majorArray || info == 31 || n != 2 {
			return Data{}, ErrMalformedInput
		}
		tagVal, err := d.readValue(depth + 1)
		if err != nil {
			return Data{}, err
		}
		if tagVal.Kind() != KindInteger || !tagVal.Int().IsUint64() {
			return Data{}, ErrMalformedInput
		}
		fields, err := d.readFieldArray(depth)
		if err != nil {
			return Data{}, err
		}
		return NewConstr(tagVal.Int().Uint64(), fields...), nil
	case tag == tagBignumPos || tag == tagBignumNeg:
		byteVal, err := d.readValue(depth + 1)
		if err != nil {
			return Data{}, err
		}
		if byteVal.Kind() != KindBytes {
			return Data{}, ErrMalformedInput
		}
		mag := new(big.Int).SetBytes(byteVal.Bytes())
		if tag == tagBignumNeg {
			mag.Add(mag, big.NewInt(1))
			mag.Neg(mag)
		}
		return NewInteger(mag), nil
	default:
		return Data{}, ErrUnknownTag
	}
}

// readFieldArray reads the array immediately following a constructor tag.
func (d *decoder) readFieldArray(depth int) (fields []Data, err error) {
	major, info, n, err := d.readHead()
	if err != nil {
		return nil, err
	}
	if major != majorArray {
		return nil, ErrMalformedInput
	}
	if info == 31 {
		b, ok := d.byteAt(d.pos)
		if !ok || b != breakByte {
			return nil, ErrMalformedInput
		}
		d.pos++
		return nil, nil
	}
	if n == 0 {
		return nil, ErrMalformedInput
	}
	out := make([]Data, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := d.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
