package pipeline

import "time"

// EncoderBackend wraps the hardware HEVC encoder (an NVENC-style
// function-table API on Windows, reached via a hand-rolled
// syscall-based function-pointer call much like the teacher's COM
// vtable calls in comutil_windows.go, except NVENC exposes a flat
// function-pointer struct rather than a vtable reached through
// QueryInterface).
//
// Submit/Wait/Lock/Unlock map directly to spec section 4.3's
// EncodePicture(async) / completion event / LockBitstream / UnlockBitstream
// sequence. Slot indices passed here are ring slot indices, reused by
// the drain worker to correlate a completion event back to the surface
// it came from.
type EncoderBackend interface {
	// Initialize configures the fixed encoder parameters (preset, GOP,
	// P-frame interval, CQP QP table, async mode) for cfg. The NVENC
	// backend sets no tuning mode and no maximum reference-frame count.
	// Returns ErrHardwareUnavailable or ErrConfigRejected.
	Initialize(cfg EncoderConfig) error

	// SubmitPicture hands an encoder-device NV12 view to the hardware
	// encoder for asynchronous encode. forceIDR requests a keyframe
	// regardless of GOP cadence.
	SubmitPicture(nv12 NV12Surface, slot int, timestamp100 int64, forceIDR bool) error

	// WaitCompletion blocks on the completion event for slot, up to
	// timeout. ok is false on timeout (caller should retry).
	WaitCompletion(slot int, timeout time.Duration) (ok bool, err error)

	// LockBitstream returns the encoded bytes and picture type for a
	// slot whose completion event has already fired. The returned
	// slice is only valid until UnlockBitstream.
	LockBitstream(slot int) ([]byte, PictureType, error)

	// UnlockBitstream releases the bitstream buffer locked by
	// LockBitstream.
	UnlockBitstream(slot int) error

	// GetSequenceHeader returns the VPS/SPS/PPS NAL units needed by a
	// muxer to start a new HEVC stream.
	GetSequenceHeader() ([]byte, error)

	// Flush submits an end-of-stream signal. It does not stop the
	// drain worker; any in-flight slots still complete normally.
	Flush() error

	// Close releases the encoder session. Safe to call once; callers
	// own ensuring drain has stopped pulling from this backend first.
	Close() error

	// IsHardwareAvailable reports whether the concrete backend found
	// usable hardware at construction time.
	IsHardwareAvailable() bool
}
