package keys

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPrivateKeyDerivationIsDeterministic(t *testing.T) {
	c := qt.New(t)

	priv, err := PrivateKeyFromString("123456789012345678901234567890")
	c.Assert(err, qt.IsNil)

	first := priv.Public()
	second := priv.Public()
	c.Assert(first.Equal(second), qt.IsTrue)
	c.Assert(first.Validate(), qt.IsNil)

	// Same scalar parsed again yields the same point.
	again, err := PrivateKeyFromString("123456789012345678901234567890")
	c.Assert(err, qt.IsNil)
	c.Assert(again.Public().Equal(first), qt.IsTrue)
}

func TestPrivateKeyFromString(t *testing.T) {
	c := qt.New(t)

	c.Run("hex", func(c *qt.C) {
		priv, err := PrivateKeyFromString("0xff")
		c.Assert(err, qt.IsNil)
		c.Assert(priv.String(), qt.Equals, "255")
	})

	c.Run("invalid", func(c *qt.C) {
		for _, in := range []string{"", "not a key", "-5", "0"} {
			_, err := PrivateKeyFromString(in)
			c.Assert(err, qt.IsNotNil, qt.Commentf("input %q", in))
		}
	})
}

func TestPublicKeyRoundTrip(t *testing.T) {
	c := qt.New(t)

	pub := NewRandomPrivateKey().Public()
	parsed, err := PublicKeyFromString(pub.String())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed.Equal(pub), qt.IsTrue)

	data, err := json.Marshal(pub)
	c.Assert(err, qt.IsNil)
	var decoded CoordinatorPublicKey
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Equal(pub), qt.IsTrue)
}

func TestPublicKeyCompression(t *testing.T) {
	c := qt.New(t)

	priv, err := PrivateKeyFromString("123456789012345678901234567890")
	c.Assert(err, qt.IsNil)
	pub := priv.Public()

	comp := pub.Compress()
	c.Assert(comp, qt.HasLen, 32)
	c.Assert(pub.Compress().Equal(comp), qt.IsTrue)

	decoded, err := DecompressPublicKey(comp)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Equal(pub), qt.IsTrue)

	_, err = DecompressPublicKey(comp[:8])
	c.Assert(err, qt.IsNotNil)
}

func TestPublicKeyFromStringRejectsOffCurvePoints(t *testing.T) {
	c := qt.New(t)

	_, err := PublicKeyFromString("1,1")
	c.Assert(err, qt.IsNotNil)

	_, err = PublicKeyFromString("12345")
	c.Assert(err, qt.IsNotNil)
}
