package node

import (
	"testing"

	"github.com/tileforge/tilesim/core"
	"github.com/tileforge/tilesim/resource"
	"github.com/tileforge/tilesim/scheduler"
)

func newTestCore(t *testing.T, name string) *core.Core {
	t.Helper()
	return core.New(name, 0, scheduler.New(), 0, 256)
}

func TestAddCoreSetsCoreID(t *testing.T) {
	n := New(0x0100, 8)
	c := newTestCore(t, "tile[0]")
	n.AddCore(3, c)
	if c.CoreID() != 0x0103 {
		t.Errorf("CoreID() = %#x, want 0x0103", c.CoreID())
	}
}

func TestResolveLocalChanend(t *testing.T) {
	n := New(0x0100, 8)
	c := newTestCore(t, "tile[0]")
	n.AddCore(0, c)

	id, ok := c.AllocResource(resource.TypeChanend)
	if !ok {
		t.Fatalf("AllocResource(TypeChanend) failed")
	}
	id = id.WithNode(c.CoreID())

	got, ok := n.Resolve(0, id)
	if !ok {
		t.Fatalf("Resolve failed for a locally owned, in-use chanend")
	}
	if got.ID().Num() != id.Num() {
		t.Errorf("Resolve returned resource #%d, want #%d", got.ID().Num(), id.Num())
	}
}

func TestResolveAcrossTwoNodes(t *testing.T) {
	net := NewNetwork()
	a := New(0x0000, 8)
	b := New(0x0100, 8)
	a.Attach(net)
	b.Attach(net)
	a.SetLink(8, b.ID())
	b.SetLink(8, a.ID())

	cb := newTestCore(t, "tile[1][0]")
	b.AddCore(0, cb)
	id, ok := cb.AllocResource(resource.TypeChanend)
	if !ok {
		t.Fatalf("AllocResource(TypeChanend) failed")
	}
	id = id.WithNode(cb.CoreID())

	got, ok := a.Resolve(0, id)
	if !ok {
		t.Fatalf("Resolve across the XLink fabric failed")
	}
	if got.ID().Num() != id.Num() {
		t.Errorf("Resolve returned resource #%d, want #%d", got.ID().Num(), id.Num())
	}
}

func TestResolveNoRouteFails(t *testing.T) {
	net := NewNetwork()
	a := New(0x0000, 8)
	b := New(0x0100, 8)
	a.Attach(net)
	b.Attach(net)
	// No XLink wired between a and b.

	dest := resource.ChanendID(1, 0x0100)
	if _, ok := a.Resolve(0, dest); ok {
		t.Errorf("Resolve should fail with no XLink path to the destination node")
	}
}

func TestResolveCycleFails(t *testing.T) {
	net := NewNetwork()
	a := New(0, 16)
	b := New(8, 16)
	a.Attach(net)
	b.Attach(net)
	// a and b each route toward a node id (5) neither of them is, bouncing
	// the walk back and forth between them forever.
	a.SetLink(2, b.ID())
	b.SetLink(3, a.ID())

	dest := resource.ChanendID(1, 5)
	if _, ok := a.Resolve(0, dest); ok {
		t.Errorf("Resolve should fail when the XLink table cycles without reaching the destination")
	}
}

func TestReadWriteConfigAcrossNodes(t *testing.T) {
	net := NewNetwork()
	a := New(0x0000, 8)
	b := New(0x0100, 8)
	a.Attach(net)
	b.Attach(net)
	a.SetLink(8, b.ID())
	b.SetLink(8, a.ID())

	dest := resource.ID(uint32(resource.TypeConfig)).WithNode(b.ID()).WithNum(uint8(resource.ConfigSSCtrl))
	if ok := a.WriteConfig(dest, 0xabc); !ok {
		t.Fatalf("WriteConfig failed to reach node b")
	}
	v, ok := a.ReadConfig(dest)
	if !ok {
		t.Fatalf("ReadConfig failed to reach node b")
	}
	if v != 0xabc {
		t.Errorf("ReadConfig = %#x, want 0xabc", v)
	}
}
