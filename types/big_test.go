package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestBigIntMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	// 2^128 - 1, well beyond any machine word.
	v, ok := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	c.Assert(ok, qt.IsTrue)
	bi := (*BigInt)(v)

	data, err := json.Marshal(map[string]*BigInt{"max": bi})
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"max":"340282366920938463463374607431768211455"}`)

	var unmarshaled map[string]*BigInt
	c.Assert(json.Unmarshal(data, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["max"].Equal(bi), qt.IsTrue)
}

func TestBigIntUnmarshalJSONNumeric(t *testing.T) {
	c := qt.New(t)

	var fromString BigInt
	c.Assert(json.Unmarshal([]byte(`"123456789"`), &fromString), qt.IsNil)
	c.Assert(fromString.String(), qt.Equals, "123456789")

	var fromNumber BigInt
	c.Assert(json.Unmarshal([]byte(`123456789`), &fromNumber), qt.IsNil)
	c.Assert(fromNumber.String(), qt.Equals, "123456789")
}

func TestBigIntMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	bi := NewInt(1234567890)

	data, err := cbor.Marshal(map[string]*BigInt{"bi": bi})
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(cbor.Unmarshal(data, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"].Equal(bi), qt.IsTrue)
}

func TestBigIntSetString(t *testing.T) {
	c := qt.New(t)

	dec, ok := new(BigInt).SetString("255")
	c.Assert(ok, qt.IsTrue)
	c.Assert(dec.String(), qt.Equals, "255")

	hex, ok := new(BigInt).SetString("0xff")
	c.Assert(ok, qt.IsTrue)
	c.Assert(hex.String(), qt.Equals, "255")

	_, ok = new(BigInt).SetString("not a number")
	c.Assert(ok, qt.IsFalse)
}

func TestBigIntNilMarshalText(t *testing.T) {
	c := qt.New(t)
	var bi *BigInt
	txt, err := bi.MarshalText()
	c.Assert(err, qt.IsNil)
	c.Assert(string(txt), qt.Equals, "0")
}
