package pipeline

import "testing"

func TestDiagCounterHit(t *testing.T) {
	var d diagCounter

	for i := uint64(1); i <= 250; i++ {
		n, shouldLog := d.hit()
		if n != i {
			t.Fatalf("hit() n = %d, want %d", n, i)
		}
		want := i == 1 || i%diagRateLimit == 0
		if shouldLog != want {
			t.Errorf("hit() at count %d: shouldLog = %v, want %v", i, shouldLog, want)
		}
	}
}
