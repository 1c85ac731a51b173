package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// mutexWaitTimeout bounds every keyed-mutex acquire and completion-event
// wait in the pipeline, per spec section 5 ("100ms timeouts on all
// mutex/event waits with rate-limited diagnostics").
const mutexWaitTimeout = 100 * time.Millisecond

// teardownCap bounds Close's total wait for the drain worker to finish
// processing whatever was already submitted.
const teardownCap = 5 * time.Second

// EncoderSession is the platform-independent orchestration of the
// shared surface pool and encoder backend described in spec section
// 4.3. The GPU color converter is a standalone collaborator (spec
// section 6's separate Converter API surface) — callers run it
// themselves and hand Submit the resulting NV12Surface plus the
// timestamp they want attached to it. Submit performs the capture-side
// half of the keyed mutex handshake, the same-device copy into the pool
// slot, and the encoder-side acquire; the companion drain worker
// (drain.go) retrieves the bitstream and then releases the slot's mutex
// back to the capture side.
type EncoderSession struct {
	cfg     EncoderConfig
	backend EncoderBackend
	pool    SharedSurfacePool
	ring    *ring
	bufPool *bitstreamPool

	mu       sync.Mutex
	callback FrameCallback
	closed   bool

	// submitMu serializes the full Submit critical section (mutex
	// handshake, copy, encode submit, ring commit) end to end, per spec
	// section 4.3's "Submission operation" being a single atomic
	// sequence from the caller's point of view. It is distinct from mu,
	// which only guards the closed flag/callback and submitWG
	// bookkeeping.
	submitMu sync.Mutex

	frameIdx   atomic.Int64
	timestamps []int64 // per-slot timestamp, set by Submit, read by drainLoop

	submitted chan int
	submitWG  sync.WaitGroup // in-flight Submit calls; Close waits on this before closing submitted
	stopCtx   context.Context
	stopFunc  context.CancelFunc
	drainWG   sync.WaitGroup
	closeOnce sync.Once

	mutexTimeoutDiag diagCounter
	waitTimeoutDiag  diagCounter
}

// NewSession wires an encoder backend and shared surface pool into a
// running session. It is the platform-independent half of Create();
// session_windows.go's NewNVENCSession constructs the concrete Windows
// collaborators (including the standalone converter) and calls this.
func NewSession(cfg EncoderConfig, backend EncoderBackend, pool SharedSurfacePool) (*EncoderSession, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if pool.Size() != PoolSize {
		return nil, fmt.Errorf("%w: pool size %d, want %d", ErrConfigRejected, pool.Size(), PoolSize)
	}
	if !backend.IsHardwareAvailable() {
		return nil, ErrHardwareUnavailable
	}
	if err := backend.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigRejected, err)
	}

	stopCtx, stopFunc := context.WithCancel(context.Background())
	s := &EncoderSession{
		cfg:        cfg,
		backend:    backend,
		pool:       pool,
		ring:       newRing(PoolSize),
		bufPool:    newBitstreamPool(),
		timestamps: make([]int64, PoolSize),
		submitted:  make(chan int, PoolSize),
		stopCtx:    stopCtx,
		stopFunc:   stopFunc,
	}

	s.drainWG.Add(1)
	go s.drainLoop()

	return s, nil
}

// SetCallback installs the frame-delivery callback. It may be called at
// any time; a nil callback silently drops completed frames.
func (s *EncoderSession) SetCallback(fn FrameCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

func (s *EncoderSession) getCallback() FrameCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callback
}

// Submit copies nv12 (the caller's own converter output) into a free
// pool slot and hands it to the encoder backend, tagged with the
// caller-supplied timestamp100ns. It returns false (without error
// detail — see ErrPipelineFull in logs) when the pipeline is full;
// Submit never blocks waiting for a free slot.
//
// Per spec section 4.3's Submission operation, the ring slot is only
// committed — and the force-IDR frame counter only advanced — after
// every step below has succeeded. Every earlier return path (pipeline
// full, mutex timeout, copy/encode failure) leaves ring state
// untouched: nothing was ever committed, so there is nothing to undo
// and no out-of-order release is possible.
func (s *EncoderSession) Submit(nv12 NV12Surface, timestamp100ns int64) bool {
	// Add to submitWG before the closed check is released, under the
	// same lock Close uses to flip closed — this is what guarantees a
	// Submit that decides to proceed never races Close's channel
	// close. Mirrors workerpool.Pool.Submit's wg.Add-before-enqueue
	// technique.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Warn("submit after close")
		return false
	}
	s.submitWG.Add(1)
	s.mu.Unlock()
	defer s.submitWG.Done()

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	slot, ok := s.ring.peek()
	if !ok {
		log.Debug(ErrPipelineFull.Error(), "pending", s.ring.pendingCount())
		return false
	}

	poolSlot := s.pool.Slot(slot)
	mutex := poolSlot.Mutex()

	if err := mutex.Acquire(KeyCapture, mutexWaitTimeout); err != nil {
		s.mutexTimeoutDiag.log(log, "keyed mutex acquire (capture) timed out", "slot", slot)
		return false
	}

	if err := poolSlot.CopyInput(nv12); err != nil {
		_ = mutex.Release(KeyCapture)
		log.Error("copy into pool slot failed", "slot", slot, "error", err)
		return false
	}

	if err := mutex.Release(KeyEncoder); err != nil {
		log.Error("keyed mutex release (to encoder) failed", "slot", slot, "error", err)
		return false
	}

	if err := mutex.Acquire(KeyEncoder, mutexWaitTimeout); err != nil {
		s.mutexTimeoutDiag.log(log, "keyed mutex acquire (encoder) timed out", "slot", slot)
		return false
	}

	// frameIdx is read before increment, so frame 0 is naturally a
	// multiple of ForceIDRInterval without a special case.
	frameIdx := s.frameIdx.Load()
	forceIDR := frameIdx%int64(s.cfg.ForceIDRInterval()) == 0
	s.timestamps[slot] = timestamp100ns

	if err := s.backend.SubmitPicture(poolSlot.EncoderView(), slot, timestamp100ns, forceIDR); err != nil {
		// Best effort: hand the slot back to capture so a stuck slot
		// doesn't wedge the ring.
		_ = mutex.Release(KeyCapture)
		log.Error("submit picture failed", "slot", slot, "error", err)
		return false
	}

	s.ring.commit(slot)
	s.frameIdx.Add(1)
	s.submitted <- slot
	return true
}

// ReleaseEncodedFrame returns frame.Data to the internal bitstream
// buffer pool. Callers that keep the frame only for the duration of
// their FrameCallback never need this; it exists for callers that
// queue frames for later (async write, batching) and want to avoid an
// allocation per frame once they are done with the data.
func (s *EncoderSession) ReleaseEncodedFrame(frame EncodedFrame) {
	s.bufPool.put(frame.Data)
}

// GetSequenceHeader returns the VPS/SPS/PPS NAL units for the current
// encoder configuration.
func (s *EncoderSession) GetSequenceHeader() ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrNotInitialized
	}
	return s.backend.GetSequenceHeader()
}

// Flush requests an end-of-stream picture. Per design note (Open
// Question 2), Flush returns as soon as the signal is submitted; the
// drain worker keeps delivering any frames still in flight, and Flush
// does not stop the session — only Close does.
func (s *EncoderSession) Flush() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrNotInitialized
	}
	return s.backend.Flush()
}

// Close stops accepting submissions, waits up to teardownCap for the
// drain worker to finish processing everything already in flight, then
// releases the backend and pool. The caller owns closing any converter
// it constructed separately. Close is idempotent.
func (s *EncoderSession) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		// Wait for any Submit calls already past the closed check to
		// finish sending before the channel is closed under them.
		s.submitWG.Wait()
		close(s.submitted)

		// Force the drain loop to abandon any in-progress retry wait
		// once the teardown cap elapses, then block until it has
		// actually returned — this is what makes it safe to release
		// the backend/pool right after.
		timer := time.AfterFunc(teardownCap, func() {
			log.Warn("drain worker teardown timed out", "cap", teardownCap)
			s.stopFunc()
		})
		s.drainWG.Wait()
		timer.Stop()
		s.stopFunc()

		if err := s.backend.Close(); err != nil {
			closeErr = fmt.Errorf("backend close: %w", err)
		}
		if err := s.pool.Close(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("pool close: %w", err)
		}
	})
	return closeErr
}
