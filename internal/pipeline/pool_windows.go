//go:build windows

package pipeline

import (
	"fmt"
	"syscall"
	"unsafe"
)

// texSurface is a thin handle+dimensions wrapper satisfying both
// BGRASurface and NV12Surface. The shared-surface pool and the caller's
// capture source both construct these around their own D3D11 texture
// pointers; texSurface itself owns nothing and releases nothing.
type texSurface struct {
	handle uintptr
	dims   Dimensions
}

func (t texSurface) Handle() uintptr       { return t.handle }
func (t texSurface) Dimensions() Dimensions { return t.dims }

// NewBGRASurface wraps a capture-side BGRA texture handle for Convert.
func NewBGRASurface(handle uintptr, dims Dimensions) BGRASurface {
	return texSurface{handle: handle, dims: dims}
}

// sharedPoolSlot is one ring entry: an NV12 texture shared between the
// capture device (captureTex) and the encoder device (encoderTex) via
// OpenSharedResource, guarded by a keyed mutex.
type sharedPoolSlot struct {
	captureContext uintptr // ID3D11DeviceContext, not owned, for CopyInput
	captureTex     uintptr
	encoderTex     uintptr
	captureView    texSurface
	encoderView    texSurface
	mutex          *dxgiKeyedMutex
}

func (s *sharedPoolSlot) CaptureView() NV12Surface { return s.captureView }
func (s *sharedPoolSlot) EncoderView() NV12Surface { return s.encoderView }
func (s *sharedPoolSlot) Mutex() KeyedMutex        { return s.mutex }

// CopyInput copies the converter's persistent output surface into this
// slot's capture view with CopyResource, same device, no format
// conversion — grounded on dxgi_capture_windows.go's staging-texture
// CopyResource call.
func (s *sharedPoolSlot) CopyInput(src NV12Surface) error {
	ret, _, _ := syscall.SyscallN(
		comVtblFn(s.captureContext, vtblCtxCopyResource),
		s.captureContext,
		s.captureTex,
		src.Handle(),
	)
	_ = ret // CopyResource is void; errors surface via later Map/encode calls
	return nil
}

func (s *sharedPoolSlot) close() {
	if s.mutex != nil {
		s.mutex.close()
	}
	if s.encoderTex != 0 {
		comRelease(s.encoderTex)
	}
	if s.captureTex != 0 {
		comRelease(s.captureTex)
	}
}

// sharedSurfacePool is the Windows SharedSurfacePool: a fixed ring of
// PoolSize dual-device NV12 surfaces. Construction order and the
// release order in Close follow gpu_convert_windows.go's resource
// teardown convention, generalized from one texture to N slots.
type sharedSurfacePool struct {
	slots []*sharedPoolSlot
}

// newSharedSurfacePool creates PoolSize NV12 textures on captureDevice,
// each opened a second time on encoderDevice via the Windows handle
// shared-resource mechanism, and pairs each with a keyed mutex view.
// captureContext is the capture device's immediate context, used only
// for each slot's CopyInput.
func newSharedSurfacePool(captureDevice, captureContext, encoderDevice uintptr, dims Dimensions) (*sharedSurfacePool, error) {
	p := &sharedSurfacePool{slots: make([]*sharedPoolSlot, 0, PoolSize)}

	for i := 0; i < PoolSize; i++ {
		captureTex, err := createSharedNV12Texture(captureDevice, dims.Width, dims.Height)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		handle, err := sharedHandle(captureTex)
		if err != nil {
			comRelease(captureTex)
			p.Close()
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		encoderTex, err := openSharedTexture(encoderDevice, handle)
		if err != nil {
			comRelease(captureTex)
			p.Close()
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		mutex, err := newDXGIKeyedMutex(captureTex)
		if err != nil {
			comRelease(encoderTex)
			comRelease(captureTex)
			p.Close()
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		p.slots = append(p.slots, &sharedPoolSlot{
			captureContext: captureContext,
			captureTex:     captureTex,
			encoderTex:     encoderTex,
			captureView:    texSurface{handle: captureTex, dims: dims},
			encoderView:    texSurface{handle: encoderTex, dims: dims},
			mutex:          mutex,
		})
	}

	return p, nil
}

func (p *sharedSurfacePool) Slot(i int) PoolSlot { return p.slots[i] }
func (p *sharedSurfacePool) Size() int           { return len(p.slots) }

func (p *sharedSurfacePool) Close() error {
	for _, s := range p.slots {
		if s != nil {
			s.close()
		}
	}
	p.slots = nil
	return nil
}
