package domain

import "testing"

func TestNewDomainBuildsSequentialPoints(t *testing.T) {
	d := NewDomain(5)
	if d.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", d.Len())
	}
	for i := 0; i < 5; i++ {
		if d.At(i) != Point(i) {
			t.Errorf("At(%d) = %v, want %v", i, d.At(i), Point(i))
		}
	}
}

func TestPointsReturnsIndependentCopy(t *testing.T) {
	d := NewDomain(3)
	pts := d.Points()
	pts[0] = 99
	if d.At(0) != Point(0) {
		t.Errorf("mutating Points() result affected Domain: At(0) = %v", d.At(0))
	}
}

func TestEmptyDomain(t *testing.T) {
	d := NewDomain(0)
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
}
