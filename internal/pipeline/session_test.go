package pipeline

import (
	"testing"
	"time"
)

func testConfig() EncoderConfig {
	return EncoderConfig{
		Dimensions: Dimensions{Width: 64, Height: 64},
		FPS:        30,
		Quality:    QualityMedium,
		Async:      true,
	}
}

func newTestSession(t *testing.T) (*EncoderSession, *fakeBackend, *fakePool) {
	t.Helper()
	cfg := testConfig()
	backend := newFakeBackend()
	pool := newFakePool(PoolSize, cfg.Dimensions)

	s, err := NewSession(cfg, backend, pool)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, backend, pool
}

func TestNewSessionRejectsBadPoolSize(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend()
	pool := newFakePool(PoolSize-1, cfg.Dimensions)

	if _, err := NewSession(cfg, backend, pool); err == nil {
		t.Fatal("expected error for mismatched pool size")
	}
}

func TestNewSessionRejectsUnavailableHardware(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend()
	backend.available = false
	pool := newFakePool(PoolSize, cfg.Dimensions)

	if _, err := NewSession(cfg, backend, pool); err != ErrHardwareUnavailable {
		t.Fatalf("got %v, want ErrHardwareUnavailable", err)
	}
}

func TestSessionSubmitDeliversFramesInOrder(t *testing.T) {
	s, _, _ := newTestSession(t)

	frames := make(chan EncodedFrame, 16)
	s.SetCallback(func(f EncodedFrame) { frames <- f })

	src := newSurfaceForTest(1, Dimensions{Width: 64, Height: 64})
	const n = 5
	for i := 0; i < n; i++ {
		ts, err := CalculateTimestamp(int64(i), testConfig().FPS)
		if err != nil {
			t.Fatalf("CalculateTimestamp(%d): %v", i, err)
		}
		if ok := s.Submit(src, ts); !ok {
			t.Fatalf("Submit %d: expected success", i)
		}
	}

	var got []EncodedFrame
	for i := 0; i < n; i++ {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	if got[0].Timestamp100 != 0 {
		t.Errorf("first frame timestamp = %d, want 0", got[0].Timestamp100)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp100 <= got[i-1].Timestamp100 {
			t.Errorf("frame %d timestamp %d not increasing after %d", i, got[i].Timestamp100, got[i-1].Timestamp100)
		}
	}
	if got[0].PictureType != PictureIDR {
		t.Errorf("first frame picture type = %v, want IDR", got[0].PictureType)
	}
}

// TestSessionSubmitUsesCallerTimestamp verifies property 1 from spec
// section 8: the timestamp a caller passes to Submit is the exact value
// that comes back on the corresponding callback, with no internal
// recalculation.
func TestSessionSubmitUsesCallerTimestamp(t *testing.T) {
	s, _, _ := newTestSession(t)

	frames := make(chan EncodedFrame, 1)
	s.SetCallback(func(f EncodedFrame) { frames <- f })

	src := newSurfaceForTest(1, Dimensions{Width: 64, Height: 64})
	const want int64 = 123456
	if ok := s.Submit(src, want); !ok {
		t.Fatal("Submit: expected success")
	}

	select {
	case f := <-frames:
		if f.Timestamp100 != want {
			t.Errorf("callback timestamp = %d, want %d", f.Timestamp100, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSessionSubmitBackpressure(t *testing.T) {
	s, backend, _ := newTestSession(t)

	// Make the drain worker's completion wait always time out, so no
	// slot is ever released: submissions fill the ring and further
	// Submit calls must report backpressure (ErrPipelineFull behavior).
	backend.mu.Lock()
	backend.stuck = true
	backend.mu.Unlock()

	src := newSurfaceForTest(1, Dimensions{Width: 64, Height: 64})

	submitted := 0
	for i := 0; i < PoolSize; i++ {
		if s.Submit(src, int64(i)) {
			submitted++
		}
	}
	if submitted != PoolSize {
		t.Fatalf("expected all %d slots to accept submissions, got %d", PoolSize, submitted)
	}

	if ok := s.Submit(src, int64(PoolSize)); ok {
		t.Fatal("expected Submit to report backpressure once the ring is full")
	}

	// Unstick so Close's teardown drains promptly instead of waiting out
	// teardownCap.
	backend.mu.Lock()
	backend.stuck = false
	backend.mu.Unlock()
}

func TestSessionGetSequenceHeader(t *testing.T) {
	s, _, _ := newTestSession(t)
	hdr, err := s.GetSequenceHeader()
	if err != nil {
		t.Fatalf("GetSequenceHeader: %v", err)
	}
	if len(hdr) == 0 {
		t.Fatal("expected non-empty sequence header")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s, backend, pool := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !backend.closed {
		t.Error("backend was not closed")
	}
	if !pool.closed {
		t.Error("pool was not closed")
	}
}

func TestSessionSubmitAfterCloseFails(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.Close()

	src := newSurfaceForTest(1, Dimensions{Width: 64, Height: 64})
	if ok := s.Submit(src, 0); ok {
		t.Fatal("Submit after Close should fail")
	}
}

// newSurfaceForTest builds an NV12Surface for tests without depending
// on any platform-specific constructor.
func newSurfaceForTest(handle uintptr, dims Dimensions) NV12Surface {
	return fakeSurface{handle: handle, dims: dims}
}
