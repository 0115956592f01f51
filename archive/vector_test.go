package archive

import "testing"

func TestVector_ScanValueRoundTrip(t *testing.T) {
	original := NewVector([]float32{0.1, 0.25, -0.5})

	val, err := original.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}

	var scanned Vector
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if scanned.Dimensions() != original.Dimensions() {
		t.Fatalf("expected %d dimensions, got %d", original.Dimensions(), scanned.Dimensions())
	}
	for i := range original {
		if scanned[i] != original[i] {
			t.Errorf("element %d: expected %v, got %v", i, original[i], scanned[i])
		}
	}
}

func TestVector_ScanNil(t *testing.T) {
	var v Vector
	if err := v.Scan(nil); err != nil {
		t.Fatalf("scan nil failed: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil vector, got %v", v)
	}
}

func TestVector_CosineSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	v := NewVector([]float32{1, 2, 3})
	sim := v.CosineSimilarity(v)
	if sim < 0.999 || sim > 1.001 {
		t.Errorf("expected similarity ~1.0, got %v", sim)
	}
}

func TestVector_CosineSimilarity_OrthogonalIsZero(t *testing.T) {
	a := NewVector([]float32{1, 0})
	b := NewVector([]float32{0, 1})
	sim := a.CosineSimilarity(b)
	if sim < -0.001 || sim > 0.001 {
		t.Errorf("expected similarity ~0.0, got %v", sim)
	}
}

func TestVector_CosineSimilarity_MismatchedLengthIsZero(t *testing.T) {
	a := NewVector([]float32{1, 2, 3})
	b := NewVector([]float32{1, 2})
	if sim := a.CosineSimilarity(b); sim != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", sim)
	}
}
