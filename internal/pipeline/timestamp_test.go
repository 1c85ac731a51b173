package pipeline

import (
	"errors"
	"testing"
)

func TestCalculateTimestamp(t *testing.T) {
	cases := []struct {
		n    int64
		fps  int
		want int64
	}{
		{0, 30, 0},
		{1, 30, 333333},  // (10_000_000 + 15) / 30 = 333333 (rounded)
		{1, 60, 166667},  // (10_000_000 + 30) / 60 = 166667 (rounded)
		{2, 60, 333333},
		{1, 24, 416667},
		{1, 120, 83333},
		{1, 240, 41667},
	}
	for _, c := range cases {
		got, err := CalculateTimestamp(c.n, c.fps)
		if err != nil {
			t.Fatalf("CalculateTimestamp(%d, %d): unexpected error %v", c.n, c.fps, err)
		}
		if got != c.want {
			t.Errorf("CalculateTimestamp(%d, %d) = %d, want %d", c.n, c.fps, got, c.want)
		}
	}
}

func TestCalculateTimestampRejectsBadFPS(t *testing.T) {
	if _, err := CalculateTimestamp(1, 25); err == nil {
		t.Fatal("expected error for unsupported fps 25")
	}
}

func TestCalculateTimestampRejectsNegativeN(t *testing.T) {
	_, err := CalculateTimestamp(-1, 30)
	if err == nil {
		t.Fatal("expected error for negative frame index")
	}
	if errors.Is(err, ErrHardwareUnavailable) {
		t.Fatal("unexpected sentinel")
	}
}
