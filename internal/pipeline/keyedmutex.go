package pipeline

import "time"

// KeyedMutex is the cross-device synchronization primitive guarding one
// shared-surface-pool slot's NV12 texture (an IDXGIKeyedMutex pair on
// Windows — one COM object per device view of the same shared handle).
// Ownership cycles KeyCapture -> KeyEncoder -> KeyCapture: the
// capture/converter device acquires KeyCapture, writes the surface,
// releases KeyEncoder; the encoder device acquires KeyEncoder, reads the
// surface for as long as the async encode needs it, then the drain
// worker releases KeyCapture once the encode has completed.
type KeyedMutex interface {
	// Acquire blocks until the mutex is owned under key, or returns
	// ErrMutexTimeout if timeout elapses first.
	Acquire(key MutexKey, timeout time.Duration) error
	// Release hands ownership to the given key value.
	Release(key MutexKey) error
}
