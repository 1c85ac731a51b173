package pipeline

// PoolSlot is one shared-surface-pool ring entry: a single NV12 texture
// shared across the capture/converter device and the encoder device via
// two distinct views of the same handle, guarded by a keyed mutex.
type PoolSlot interface {
	// CaptureView is the capture-device view the color converter
	// writes into.
	CaptureView() NV12Surface
	// EncoderView is the encoder-device view the encoder backend reads
	// from.
	EncoderView() NV12Surface
	// Mutex is the keyed mutex synchronizing the two views.
	Mutex() KeyedMutex
	// CopyInput copies src, the converter's persistent output surface,
	// into this slot's capture view via a same-device CopyResource
	// (spec section 4.3 step 5). src must be on the same device as
	// CaptureView.
	CopyInput(src NV12Surface) error
}

// SharedSurfacePool is the fixed ring of PoolSize NV12 surfaces with
// dual-device views.
type SharedSurfacePool interface {
	Slot(i int) PoolSlot
	Size() int
	Close() error
}
