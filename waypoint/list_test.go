package waypoint

import (
	"math/rand"
	"testing"
)

func assertContiguous(t *testing.T, wps []Waypoint) {
	t.Helper()
	for i, wp := range wps {
		if wp.Order != i+1 {
			t.Fatalf("waypoint %d (%s) has order %d, want %d", i, wp.ID, wp.Order, i+1)
		}
	}
}

func TestList_AddAssignsNextOrder(t *testing.T) {
	l := NewList()
	a := l.Add(Position{Lat: 30.0, Lng: -90.0}, "A")
	b := l.Add(Position{Lat: 30.5, Lng: -90.5}, "B")

	if a.Order != 1 || b.Order != 2 {
		t.Fatalf("unexpected orders %d, %d", a.Order, b.Order)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids must be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 waypoints, got %d", l.Len())
	}
}

func TestList_RemoveRenumbers(t *testing.T) {
	l := NewList()
	a := l.Add(Position{Lat: 1, Lng: 1}, "A")
	b := l.Add(Position{Lat: 2, Lng: 2}, "B")
	c := l.Add(Position{Lat: 3, Lng: 3}, "C")

	l.Remove(b.ID)

	got := l.Waypoints()
	if len(got) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(got))
	}
	if got[0].ID != a.ID || got[1].ID != c.ID {
		t.Fatalf("relative order not preserved: %+v", got)
	}
	assertContiguous(t, got)
}

func TestList_RemoveUnknownIsNoop(t *testing.T) {
	l := NewList()
	l.Add(Position{Lat: 1, Lng: 1}, "A")

	calls := 0
	l.OnChange(func([]Waypoint) { calls++ })
	l.Remove("missing")

	if l.Len() != 1 {
		t.Fatalf("expected list unchanged, got %d", l.Len())
	}
	if calls != 0 {
		t.Fatalf("no-op remove should not notify, got %d calls", calls)
	}
}

func TestList_ClearAndNotify(t *testing.T) {
	l := NewList()
	var sizes []int
	l.OnChange(func(wps []Waypoint) { sizes = append(sizes, len(wps)) })

	l.Add(Position{Lat: 1, Lng: 1}, "A")
	l.Add(Position{Lat: 2, Lng: 2}, "B")
	l.Clear()

	if l.Len() != 0 {
		t.Fatalf("expected empty list, got %d", l.Len())
	}
	want := []int{1, 2, 0}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("notification sizes = %v, want %v", sizes, want)
		}
	}
}

func TestList_SnapshotIsIndependent(t *testing.T) {
	l := NewList()
	l.Add(Position{Lat: 1, Lng: 1}, "A")
	snap := l.Waypoints()
	snap[0].Address = "changed"

	if l.Waypoints()[0].Address != "A" {
		t.Fatal("mutating a snapshot leaked into the list")
	}
}

func TestList_RenumberingInvariantRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := NewList()
	var shadow []string // expected ids in order

	for step := 0; step < 500; step++ {
		if len(shadow) == 0 || rng.Intn(3) > 0 {
			wp := l.Add(Position{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}, "x")
			shadow = append(shadow, wp.ID)
		} else {
			idx := rng.Intn(len(shadow))
			l.Remove(shadow[idx])
			shadow = append(shadow[:idx], shadow[idx+1:]...)
		}

		got := l.Waypoints()
		if len(got) != len(shadow) {
			t.Fatalf("step %d: length %d, want %d", step, len(got), len(shadow))
		}
		for i := range got {
			if got[i].ID != shadow[i] {
				t.Fatalf("step %d: relative order broken at %d", step, i)
			}
		}
		assertContiguous(t, got)
	}
}

func TestRenumberAndValid(t *testing.T) {
	in := []Waypoint{{ID: "a", Order: 7}, {ID: "b", Order: 7}, {ID: "c", Order: 0}}
	out := Renumber(in)
	assertContiguous(t, out)
	if in[0].Order != 7 {
		t.Fatal("Renumber must not modify its input")
	}

	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{Lat: 30, Lng: -90}, true},
		{Position{Lat: 89.9, Lng: 179.9}, true},
		{Position{Lat: 91, Lng: 0}, false},
		{Position{Lat: 0, Lng: -181}, false},
	}
	for _, tt := range tests {
		if got := tt.pos.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.pos, got, tt.want)
		}
	}
}
