package safe

import (
	"math"
	"testing"
)

func TestDivOr(t *testing.T) {
	if got := DivOr(10, 2, -1); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	if got := DivOr(10, 0, -1); got != -1 {
		t.Errorf("expected fallback -1, got %v", got)
	}
	// Inf numerator must fall back, never leak into callers.
	if got := DivOr(math.Inf(1), 2, 0); got != 0 {
		t.Errorf("expected fallback 0, got %v", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(150, 0, 100); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	if got := Clamp(-5, 0, 100); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := Clamp(42, 0, 100); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("empty mean should be 0, got %v", got)
	}
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}

func TestStdDev(t *testing.T) {
	// Population stddev of {2,4,4,4,5,5,7,9} is exactly 2.
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("expected 2, got %v", got)
	}

	// Identical samples have zero deviation.
	if got := StdDev([]float64{7, 7, 7, 7}); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	if got := StdDev(nil); got != 0 {
		t.Errorf("empty stddev should be 0, got %v", got)
	}
}
