package pipeline

import (
	"errors"
	"sync"
	"time"
)

var errFakeConvertFailed = errors.New("fake convert failed")

// Fakes for the hardware interfaces, standing in for GPU/NVENC
// collaborators so the session/drain state machine can be exercised
// without Windows or a GPU, mirroring the teacher's own
// registerHardwareFactory-style swap point for encoderBackend.

type fakeSurface struct {
	handle uintptr
	dims   Dimensions
}

func (f fakeSurface) Handle() uintptr        { return f.handle }
func (f fakeSurface) Dimensions() Dimensions { return f.dims }

type fakeMutex struct {
	mu    sync.Mutex
	state MutexKey
}

func (m *fakeMutex) Acquire(key MutexKey, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = key
	return nil
}

func (m *fakeMutex) Release(key MutexKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = key
	return nil
}

type fakeConverter struct {
	mu     sync.Mutex
	calls  int
	fail   bool
	output fakeSurface
}

func (c *fakeConverter) Convert(src BGRASurface) (NV12Surface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return nil, errFakeConvertFailed
	}
	return c.output, nil
}

func (c *fakeConverter) Close() error { return nil }

type fakeBackendSlot struct {
	forceIDR  bool
	timestamp int64
	submitted bool
}

// fakeBackend implements EncoderBackend entirely in memory:
// WaitCompletion reports done immediately, LockBitstream returns a
// fixed payload tagged IDR/non-IDR from whatever SubmitPicture recorded.
type fakeBackend struct {
	mu        sync.Mutex
	available bool
	slots     map[int]*fakeBackendSlot
	closed    bool

	submitErr error
	stuck     bool // when true, WaitCompletion always times out instead of succeeding
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{available: true, slots: make(map[int]*fakeBackendSlot)}
}

func (b *fakeBackend) IsHardwareAvailable() bool { return b.available }

func (b *fakeBackend) Initialize(cfg EncoderConfig) error { return nil }

func (b *fakeBackend) SubmitPicture(nv12 NV12Surface, slot int, timestamp100 int64, forceIDR bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.slots[slot] = &fakeBackendSlot{forceIDR: forceIDR, timestamp: timestamp100, submitted: true}
	return nil
}

func (b *fakeBackend) WaitCompletion(slot int, timeout time.Duration) (bool, error) {
	b.mu.Lock()
	stuck := b.stuck
	b.mu.Unlock()
	if stuck {
		time.Sleep(timeout)
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.slots[slot]
	return ok, nil
}

func (b *fakeBackend) LockBitstream(slot int) ([]byte, PictureType, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[slot]
	if !ok {
		return nil, PictureNonIDR, ErrLockBitstreamFailed
	}
	ptype := PictureNonIDR
	if s.forceIDR {
		ptype = PictureIDR
	}
	return []byte{byte(slot), byte(s.timestamp)}, ptype, nil
}

func (b *fakeBackend) UnlockBitstream(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.slots, slot)
	return nil
}

func (b *fakeBackend) GetSequenceHeader() ([]byte, error) {
	return []byte{0xAA, 0xBB}, nil
}

func (b *fakeBackend) Flush() error { return nil }

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakePoolSlot struct {
	mu         sync.Mutex
	capture    fakeSurface
	encoder    fakeSurface
	mutex      *fakeMutex
	copiedFrom []NV12Surface
	copyErr    error
}

func (s *fakePoolSlot) CaptureView() NV12Surface { return s.capture }
func (s *fakePoolSlot) EncoderView() NV12Surface { return s.encoder }
func (s *fakePoolSlot) Mutex() KeyedMutex        { return s.mutex }

func (s *fakePoolSlot) CopyInput(src NV12Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyErr != nil {
		return s.copyErr
	}
	s.copiedFrom = append(s.copiedFrom, src)
	return nil
}

type fakePool struct {
	slots  []*fakePoolSlot
	closed bool
}

func newFakePool(n int, dims Dimensions) *fakePool {
	p := &fakePool{slots: make([]*fakePoolSlot, n)}
	for i := 0; i < n; i++ {
		p.slots[i] = &fakePoolSlot{
			capture: fakeSurface{handle: uintptr(1000 + i), dims: dims},
			encoder: fakeSurface{handle: uintptr(2000 + i), dims: dims},
			mutex:   &fakeMutex{},
		}
	}
	return p
}

func (p *fakePool) Slot(i int) PoolSlot { return p.slots[i] }
func (p *fakePool) Size() int           { return len(p.slots) }
func (p *fakePool) Close() error        { p.closed = true; return nil }
