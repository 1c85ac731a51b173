//go:build windows

package pipeline

import "fmt"

// NewNVENCSession builds the concrete Windows collaborators (shared
// surface pool, GPU color converter, NVENC backend) and wires the pool
// and backend into NewSession. captureDevice is owned by the caller's
// capture source (e.g. desktop duplication); this package creates its
// own encoder-side device so the keyed-mutex handshake has two distinct
// D3D11 devices to hand the texture between, per spec section 4.2.
//
// The returned ColorConverter is a standalone collaborator (spec
// section 6's separate Converter API surface) — it is not owned by the
// session. Callers run Convert themselves and pass the result to
// Submit; they are responsible for calling its Close once done,
// independently of session.Close.
func NewNVENCSession(captureDevice, captureContext uintptr, cfg EncoderConfig) (*EncoderSession, ColorConverter, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	encoderDevice, _, err := createD3D11Device()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoder device: %v", ErrHardwareUnavailable, err)
	}

	pool, err := newSharedSurfacePool(captureDevice, captureContext, encoderDevice, cfg.Dimensions)
	if err != nil {
		comRelease(encoderDevice)
		return nil, nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}

	conv, err := NewConverter(captureDevice, captureContext, cfg.Dimensions)
	if err != nil {
		pool.Close()
		comRelease(encoderDevice)
		return nil, nil, fmt.Errorf("%w: converter: %v", ErrHardwareUnavailable, err)
	}

	backend, err := newNVENCBackend(pool)
	if err != nil {
		conv.Close()
		pool.Close()
		comRelease(encoderDevice)
		return nil, nil, err
	}

	session, err := NewSession(cfg, backend, pool)
	if err != nil {
		backend.Close()
		conv.Close()
		pool.Close()
		comRelease(encoderDevice)
		return nil, nil, err
	}
	return session, conv, nil
}

// IsAvailable reports whether the NVENC library loads and a hardware
// D3D11 device can be created, without creating a session. It does not
// check for a D3D11 video processor.
func IsAvailable() bool {
	if !nvencAvailable() {
		return false
	}
	device, context, err := createD3D11Device()
	if err != nil {
		return false
	}
	defer comRelease(context)
	defer comRelease(device)
	return true
}
