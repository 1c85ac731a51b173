//go:build !windows

package pipeline

import "fmt"

// This package's GPU pipeline is Windows/NVIDIA only (DXGI keyed mutex
// handshake, D3D11 video processor, NVENC). On other platforms every
// constructor reports unavailable, matching the teacher's
// desktop_other.go convention for remote-control features gated on an
// OS-specific capture backend.

// NewNVENCSession is unavailable outside Windows.
func NewNVENCSession(captureDevice, captureContext uintptr, cfg EncoderConfig) (*EncoderSession, ColorConverter, error) {
	return nil, nil, fmt.Errorf("%w: gpu encode pipeline requires Windows", ErrHardwareUnavailable)
}

// NewConverter is unavailable outside Windows.
func NewConverter(device, context uintptr, dims Dimensions) (ColorConverter, error) {
	return nil, fmt.Errorf("%w: gpu encode pipeline requires Windows", ErrHardwareUnavailable)
}

// IsAvailable always reports false outside Windows.
func IsAvailable() bool { return false }

// NewBGRASurface is unavailable outside Windows; there is no GPU
// texture handle to wrap.
func NewBGRASurface(handle uintptr, dims Dimensions) BGRASurface {
	return unsupportedSurface{dims: dims}
}

type unsupportedSurface struct {
	dims Dimensions
}

func (unsupportedSurface) Handle() uintptr        { return 0 }
func (u unsupportedSurface) Dimensions() Dimensions { return u.dims }
