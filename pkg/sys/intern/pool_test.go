package intern

import "testing"

func TestPoolRoundTrip(t *testing.T) {
	p := NewPool()

	a := p.Get("PLC")
	b := p.Get("Sensor")
	if a == b {
		t.Fatalf("distinct strings share id %d", a)
	}
	if again := p.Get("PLC"); again != a {
		t.Errorf("expected stable id %d, got %d", a, again)
	}
	if got := p.Lookup(b); got != "Sensor" {
		t.Errorf("Lookup(%d) = %q", b, got)
	}
	if p.Get("") != InvalidID {
		t.Error("empty string must map to InvalidID")
	}
	if p.Lookup(999) != "" {
		t.Error("unknown id must resolve to empty string")
	}
	if p.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", p.Len())
	}
}

func TestStringCanonical(t *testing.T) {
	p := NewPool()
	s := p.String("offline")
	if s != "offline" {
		t.Errorf("String returned %q", s)
	}
}
