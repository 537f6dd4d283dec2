package mobility

import (
	"errors"
	"testing"
)

func TestVectorDistance(t *testing.T) {
	a := Vector{X: 0, Y: 0, Z: 0}
	b := Vector{X: 3, Y: 4, Z: 12}
	if got := a.DistanceTo(b); got != 13 {
		t.Fatalf("distance = %f, want 13", got)
	}
	if got := b.DistanceTo(a); got != 13 {
		t.Fatalf("distance not symmetric: %f", got)
	}
	if got := a.DistanceTo(a); got != 0 {
		t.Fatalf("self distance = %f", got)
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	ap := NewEndpointID()
	sta := NewEndpointID()
	if ap == sta {
		t.Fatalf("expected unique ids")
	}
	staPos := NewConstantPosition(Vector{X: 2})
	if err := reg.Register(ap, NewConstantPosition(Vector{})); err != nil {
		t.Fatalf("register ap: %v", err)
	}
	if err := reg.Register(sta, staPos); err != nil {
		t.Fatalf("register sta: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", reg.Len())
	}
	ids := reg.IDs()
	if ids[0] != ap || ids[1] != sta {
		t.Fatalf("unexpected order %v", ids)
	}

	pos, ok := reg.Position(sta)
	if !ok || pos.X != 2 {
		t.Fatalf("unexpected position %v %v", pos, ok)
	}
	staPos.SetPosition(Vector{X: 7})
	pos, _ = reg.Position(sta)
	if pos.X != 7 {
		t.Fatalf("registry should observe provider updates, got %v", pos)
	}
	if _, ok := reg.Position("missing"); ok {
		t.Fatalf("expected missing endpoint")
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	id := EndpointID("ap")
	if err := reg.Register(id, NewConstantPosition(Vector{})); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := reg.Register(id, NewConstantPosition(Vector{}))
	if !errors.Is(err, ErrDuplicateEndpoint) {
		t.Fatalf("expected ErrDuplicateEndpoint, got %v", err)
	}
	if err := reg.Register("", NewConstantPosition(Vector{})); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatalf("expected error for nil provider")
	}
}
