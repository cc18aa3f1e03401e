package clock

import "testing"

func TestSignalConstant(t *testing.T) {
	s := NewConstant(0xCAFE)
	if s.IsClock() {
		t.Fatalf("constant signal reported IsClock() true")
	}
	for _, tm := range []Ticks{0, 1, 1000, 1 << 40} {
		if got := s.GetValue(tm); got != 0xCAFE {
			t.Errorf("GetValue(%d) = %#x, want 0xCAFE", tm, got)
		}
	}
}

func TestSignalClockValue(t *testing.T) {
	s := NewClock(0, 10)
	tests := []struct {
		time Ticks
		want uint32
	}{
		{0, 0}, {5, 0}, {9, 0}, {10, 1}, {15, 1}, {19, 1}, {20, 0}, {29, 0}, {30, 1},
	}
	for _, tt := range tests {
		if got := s.GetValue(tt.time); got != tt.want {
			t.Errorf("GetValue(%d) = %d, want %d", tt.time, got, tt.want)
		}
	}
}

func TestSignalPhaseAnchor(t *testing.T) {
	// Anchored at a non-zero start time.
	s := NewClock(1234, 10)
	if got := s.GetValue(1234); got != 0 {
		t.Errorf("GetValue(startTime) = %d, want 0", got)
	}
	if got := s.GetValue(1234 + 10); got != 1 {
		t.Errorf("GetValue(startTime+H) = %d, want 1", got)
	}
}

func TestGetNextEdge(t *testing.T) {
	s := NewClock(0, 10)
	e := s.GetNextEdge(0)
	if e.Time != 10 || e.Type != Rising {
		t.Fatalf("GetNextEdge(0) = %+v, want {10 RISING}", e)
	}
	e = s.GetNextEdge(10)
	if e.Time != 20 || e.Type != Falling {
		t.Fatalf("GetNextEdge(10) = %+v, want {20 FALLING}", e)
	}
}

// TestEdgeIteratorProperties verifies the §8 testable property:
// iter+n - iter == n; (iter+n).time - iter.time == n*halfPeriod;
// (iter+n).type flipped iff n is odd.
func TestEdgeIteratorProperties(t *testing.T) {
	s := NewClock(0, 7)
	it := s.GetEdgeIterator(0)
	for n := int64(0); n < 20; n++ {
		adv := it.Advance(n)
		if got := adv.Sub(it); got != n {
			t.Errorf("Advance(%d).Sub(it) = %d, want %d", n, got, n)
		}
		wantTimeDelta := n * 7
		if got := int64(adv.Edge().Time) - int64(it.Edge().Time); got != wantTimeDelta {
			t.Errorf("Advance(%d) time delta = %d, want %d", n, got, wantTimeDelta)
		}
		wantFlip := n%2 != 0
		gotFlip := adv.Edge().Type != it.Edge().Type
		if gotFlip != wantFlip {
			t.Errorf("Advance(%d) flipped=%v, want %v", n, gotFlip, wantFlip)
		}
	}
}

func TestEdgeIteratorNextAlternates(t *testing.T) {
	s := NewClock(0, 5)
	it := s.GetEdgeIterator(0)
	if it.Edge().Type != Rising {
		t.Fatalf("first edge = %v, want RISING", it.Edge().Type)
	}
	it = it.Next()
	if it.Edge().Type != Falling {
		t.Fatalf("second edge = %v, want FALLING", it.Edge().Type)
	}
	it = it.Next()
	if it.Edge().Type != Rising {
		t.Fatalf("third edge = %v, want RISING", it.Edge().Type)
	}
}

func TestEdgeIteratorEqualityIgnoresType(t *testing.T) {
	a := EdgeIterator{edge: Edge{Time: 100, Type: Rising}, halfPeriod: 5}
	b := EdgeIterator{edge: Edge{Time: 100, Type: Falling}, halfPeriod: 5}
	if !a.Equal(b) {
		t.Fatalf("iterators at same time should be equal regardless of type")
	}
}
