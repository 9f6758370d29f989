package deploy

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/programmerraja/maci/crypto/keys"
)

func TestDeriveCapacities(t *testing.T) {
	c := qt.New(t)

	c.Run("small depths", func(c *qt.C) {
		users, messages, err := DeriveCapacities(4, 4)
		c.Assert(err, qt.IsNil)
		c.Assert(users.String(), qt.Equals, "15")
		c.Assert(messages.String(), qt.Equals, "15")
	})

	c.Run("asymmetric depths", func(c *qt.C) {
		users, messages, err := DeriveCapacities(10, 3)
		c.Assert(err, qt.IsNil)
		c.Assert(users.String(), qt.Equals, "1023")
		c.Assert(messages.String(), qt.Equals, "7")
	})

	c.Run("word sized depth", func(c *qt.C) {
		users, _, err := DeriveCapacities(32, 32)
		c.Assert(err, qt.IsNil)
		c.Assert(users.String(), qt.Equals, "4294967295")
	})

	c.Run("beyond machine words", func(c *qt.C) {
		// 2^128 - 1 cannot fit a uint64; the derivation must stay exact.
		users, _, err := DeriveCapacities(128, 4)
		c.Assert(err, qt.IsNil)
		c.Assert(users.String(), qt.Equals, "340282366920938463463374607431768211455")
	})

	c.Run("invalid depths", func(c *qt.C) {
		for _, depth := range []int{0, -1} {
			_, _, err := DeriveCapacities(depth, 4)
			c.Assert(errors.Is(err, ErrInvalidParameter), qt.IsTrue, qt.Commentf("state depth %d", depth))
			_, _, err = DeriveCapacities(4, depth)
			c.Assert(errors.Is(err, ErrInvalidParameter), qt.IsTrue, qt.Commentf("message depth %d", depth))
		}
	})
}

func TestResolveCoordinatorKey(t *testing.T) {
	c := qt.New(t)

	priv, err := keys.PrivateKeyFromString("8657284")
	c.Assert(err, qt.IsNil)

	c.Run("derived from private key", func(c *qt.C) {
		first, err := ResolveCoordinatorKey(nil, priv)
		c.Assert(err, qt.IsNil)
		second, err := ResolveCoordinatorKey(nil, priv)
		c.Assert(err, qt.IsNil)
		c.Assert(first.Equal(second), qt.IsTrue)
	})

	c.Run("supplied key used verbatim", func(c *qt.C) {
		supplied := keys.NewRandomPrivateKey().Public()
		resolved, err := ResolveCoordinatorKey(supplied, priv)
		c.Assert(err, qt.IsNil)
		c.Assert(resolved, qt.Equals, supplied)
	})

	c.Run("no key material", func(c *qt.C) {
		_, err := ResolveCoordinatorKey(nil, nil)
		c.Assert(errors.Is(err, ErrInvalidParameter), qt.IsTrue)
	})
}
