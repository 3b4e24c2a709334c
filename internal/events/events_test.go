package events_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/storefront/internal/events"
)

func TestBus_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("published values reach every subscriber in order", func(c *qt.C) {
		b := events.New()
		var got []string
		c.Assert(b.Subscribe("t", func(v string) { got = append(got, "a:"+v) }), qt.IsNil)
		c.Assert(b.Subscribe("t", func(v string) { got = append(got, "b:"+v) }), qt.IsNil)

		b.Publish("t", "x")
		c.Assert(got, qt.DeepEquals, []string{"a:x", "b:x"})
	})

	c.Run("topics are independent", func(c *qt.C) {
		b := events.New()
		calls := 0
		c.Assert(b.Subscribe("t", func() { calls++ }), qt.IsNil)
		b.Publish("other")
		b.Publish(events.TopicCartChanged)
		c.Assert(calls, qt.Equals, 0)
		b.Publish("t")
		c.Assert(calls, qt.Equals, 1)
	})

	c.Run("a handler may publish on a different bus", func(c *qt.C) {
		first, second := events.New(), events.New()
		var relayed int
		c.Assert(second.Subscribe("n", func(n int) { relayed = n }), qt.IsNil)
		c.Assert(first.Subscribe("n", func(n int) { second.Publish("n", n*2) }), qt.IsNil)
		first.Publish("n", 21)
		c.Assert(relayed, qt.Equals, 42)
	})
}

func TestBus_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("non-func handler is rejected", func(c *qt.C) {
		b := events.New()
		c.Assert(b.Subscribe("t", 42), qt.IsNotNil)
	})
}
