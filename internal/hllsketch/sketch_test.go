package hllsketch

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func encodeUint(i uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return b
}

func TestNewRejectsOutOfRangePrecision(t *testing.T) {
	if _, err := NewDefault(3); err != ErrPrecisionOutOfRange {
		t.Fatalf("expected ErrPrecisionOutOfRange, got %v", err)
	}
	if _, err := NewDefault(17); err != ErrPrecisionOutOfRange {
		t.Fatalf("expected ErrPrecisionOutOfRange, got %v", err)
	}
}

func TestCardinalityWithinBounds(t *testing.T) {
	c, err := NewDefault(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := rand.New(rand.NewSource(0xdeadbeef))
	for i := uint64(0); i < 2000; i++ {
		reps := 5 + rng.Intn(46)
		for r := 0; r < reps; r++ {
			c.Add(encodeUint(i))
		}
	}
	e := c.Estimate()
	if e < 1800 || e > 2200 {
		t.Fatalf("expected estimate in [1800,2200], got %v", e)
	}

	d, err := NewDefault(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := uint64(2000); i < 12000; i++ {
		d.Add(encodeUint(i))
	}

	changed, err := c.UnionInPlace(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected union to report changed=true")
	}
	eu := c.Estimate()
	if eu < 10800 || eu > 13200 {
		t.Fatalf("expected union estimate in [10800,13200], got %v", eu)
	}
}

func TestUnionRequiresMatchingPrecision(t *testing.T) {
	a, _ := NewDefault(10)
	b, _ := NewDefault(12)
	if _, err := a.UnionInPlace(b); err != ErrPrecisionMismatch {
		t.Fatalf("expected ErrPrecisionMismatch, got %v", err)
	}
}

func TestUnionCommutative(t *testing.T) {
	x, _ := NewDefault(8)
	y, _ := NewDefault(8)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		v := encodeUint(uint64(rng.Int63()))
		if i%2 == 0 {
			x.Add(v)
		} else {
			y.Add(v)
		}
	}
	xCopy, yCopy := x.Copy(), y.Copy()
	if _, err := xCopy.UnionInPlace(yCopy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	yCopy2, xCopy2 := y.Copy(), x.Copy()
	if _, err := yCopy2.UnionInPlace(xCopy2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for j := range xCopy.regs {
		if xCopy.regs[j] != yCopy2.regs[j] {
			t.Fatalf("union not commutative at register %d: %d vs %d", j, xCopy.regs[j], yCopy2.regs[j])
		}
	}
}

func TestUnionIdempotent(t *testing.T) {
	x, _ := NewDefault(8)
	for i := uint64(0); i < 200; i++ {
		x.Add(encodeUint(i))
	}
	changed, err := x.UnionInPlace(x.Copy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected union with a copy of self to report changed=false")
	}
}

func TestAddIdempotentOnRepeat(t *testing.T) {
	x, _ := NewDefault(8)
	v := encodeUint(42)
	x.Add(v)
	before := x.Copy()
	x.Add(v)
	for j := range x.regs {
		if x.regs[j] != before.regs[j] {
			t.Fatalf("re-adding the same element changed register %d", j)
		}
	}
}

func TestCopyIsIndependent(t *testing.T) {
	x, _ := NewDefault(8)
	x.Add(encodeUint(1))
	y := x.Copy()
	y.Add(encodeUint(2))
	if x.Estimate() == y.Estimate() && x.regs[0] == y.regs[0] {
		// not a strong assertion by itself; directly check divergence
	}
	same := true
	for j := range x.regs {
		if x.regs[j] != y.regs[j] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected copy to diverge from original after mutation")
	}
}

func TestAlphaConstants(t *testing.T) {
	if alpha(16) != 0.673 {
		t.Fatalf("alpha(16) mismatch")
	}
	if alpha(32) != 0.697 {
		t.Fatalf("alpha(32) mismatch")
	}
	if alpha(64) != 0.709 {
		t.Fatalf("alpha(64) mismatch")
	}
	if got := alpha(4096); got <= 0 || got >= 1 {
		t.Fatalf("alpha(4096) out of expected range: %v", got)
	}
}
