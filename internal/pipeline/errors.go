package pipeline

import "errors"

// Sentinel errors returned by session and pool operations. Wrap with
// fmt.Errorf("...: %w", err) at call sites that add context.
var (
	// ErrHardwareUnavailable is returned by Init/NewSession when no
	// usable video processor or hardware encoder is present.
	ErrHardwareUnavailable = errors.New("pipeline: hardware unavailable")

	// ErrConfigRejected is returned when the requested encoder
	// configuration cannot be satisfied, including synchronous-mode
	// requests (see design note on Open Question 1).
	ErrConfigRejected = errors.New("pipeline: configuration rejected")

	// ErrInvalidDimensions is returned for odd width/height at session
	// creation.
	ErrInvalidDimensions = errors.New("pipeline: width and height must be even")

	// ErrPipelineFull names the condition where the shared-surface pool
	// has no free slot (pending_count == ring size). Submit reports it by
	// returning false and logging this error's text.
	ErrPipelineFull = errors.New("pipeline: pipeline full, backpressure")

	// ErrMutexTimeout is returned when a keyed-mutex acquire exceeds
	// its wait timeout.
	ErrMutexTimeout = errors.New("pipeline: keyed mutex acquire timed out")

	// ErrEncodePictureFailed is returned when the encoder backend
	// rejects a submitted picture.
	ErrEncodePictureFailed = errors.New("pipeline: encode picture failed")

	// ErrLockBitstreamFailed is returned when the drain worker cannot
	// lock the completed bitstream buffer.
	ErrLockBitstreamFailed = errors.New("pipeline: lock bitstream failed")

	// ErrNotInitialized is returned by Flush/GetSequenceHeader when
	// called after Close.
	ErrNotInitialized = errors.New("pipeline: session not initialized")
)
