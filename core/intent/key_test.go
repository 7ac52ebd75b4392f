// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/intent"
)

type KeySuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&KeySuite{})

var testAppID = application.NewID(42, "org.test.app")

func (s *KeySuite) TestStringKeyConstruction(c *gc.C) {
	key1 := intent.NewKey("key3", testAppID)
	key2 := intent.NewKey("key3", testAppID)
	c.Check(key1.IsZero(), jc.IsFalse)
	c.Check(key1.Hash(), gc.Equals, key2.Hash())
}

func (s *KeySuite) TestNumericKeyConstruction(c *gc.C) {
	key1 := intent.NewNumericKey(0x3333, testAppID)
	key2 := intent.NewNumericKey(0x3333, testAppID)
	c.Check(key1.Hash(), gc.Equals, key2.Hash())
}

func (s *KeySuite) TestStringKeyEquality(c *gc.C) {
	key1 := intent.NewKey("key1", testAppID)
	copyOfKey1 := intent.NewKey("key1", testAppID)
	key2 := intent.NewKey("key2", testAppID)

	c.Check(key1, gc.Equals, copyOfKey1)
	c.Check(key1, gc.Not(gc.Equals), key2)
}

func (s *KeySuite) TestNumericKeyEquality(c *gc.C) {
	key1 := intent.NewNumericKey(0x1111, testAppID)
	copyOfKey1 := intent.NewNumericKey(0x1111, testAppID)
	key2 := intent.NewNumericKey(0x2222, testAppID)

	c.Check(key1, gc.Equals, copyOfKey1)
	c.Check(key1, gc.Not(gc.Equals), key2)
}

func (s *KeySuite) TestKeysScopedByApplication(c *gc.C) {
	otherApp := application.NewID(7, "org.test.other")
	c.Check(intent.NewKey("key1", testAppID), gc.Not(gc.Equals), intent.NewKey("key1", otherApp))
	c.Check(intent.NewKey("key1", testAppID).Hash(), gc.Not(gc.Equals), intent.NewKey("key1", otherApp).Hash())
}

func (s *KeySuite) TestStringKeyCompare(c *gc.C) {
	key1 := intent.NewKey("key1", testAppID)
	key2 := intent.NewKey("key2", testAppID)
	key3 := intent.NewKey("key3", testAppID)

	c.Check(key1.Compare(intent.NewKey("key1", testAppID)), gc.Equals, 0)
	c.Check(key1.Compare(key2), gc.Equals, -1)
	c.Check(key2.Compare(key1), gc.Equals, 1)
	c.Check(key2.Compare(key3), gc.Equals, -1)
	c.Check(key3.Compare(key1), gc.Equals, 1)
}

func (s *KeySuite) TestNumericKeyCompare(c *gc.C) {
	key1 := intent.NewNumericKey(0x1111, testAppID)
	key2 := intent.NewNumericKey(0x2222, testAppID)

	c.Check(key1.Compare(intent.NewNumericKey(0x1111, testAppID)), gc.Equals, 0)
	c.Check(key1.Compare(key2), gc.Equals, -1)
	c.Check(key2.Compare(key1), gc.Equals, 1)
}

func (s *KeySuite) TestMixedKeyCompare(c *gc.C) {
	// Numeric keys render as fixed-width hex, so they order before
	// typical lowercase string keys.
	numeric := intent.NewNumericKey(0x1111, testAppID)
	str := intent.NewKey("key2", testAppID)

	c.Check(numeric.Compare(str), gc.Equals, -1)
	c.Check(str.Compare(numeric), gc.Equals, 1)
}

func (s *KeySuite) TestString(c *gc.C) {
	c.Check(intent.NewKey("a", testAppID).String(), gc.Equals, "org.test.app:a")
}
