//go:build windows

package pipeline

import (
	"fmt"
	"syscall"
	"unsafe"
)

// converter converts BGRA to NV12 with the D3D11 video processor. It
// owns exactly one persistent NV12 output surface and output view,
// created once at construction — matching spec section 3's "Converter
// owns exactly one persistent NV12 output surface" invariant and the
// teacher's gpuConverter, which likewise keeps a persistent nv12Texture
// rather than allocating one per call. Only the input view (wrapping
// whatever BGRA surface the caller passes to Convert) is transient,
// recreated each call. Grounded on gpu_convert_windows.go.
type converter struct {
	device       uintptr // ID3D11Device (capture/converter device)
	videoDevice  uintptr // ID3D11VideoDevice
	videoContext uintptr // ID3D11VideoContext
	processor    uintptr // ID3D11VideoProcessor
	enumerator   uintptr // ID3D11VideoProcessorEnumerator
	outputTex    uintptr // ID3D11Texture2D (NV12, persistent)
	outputView   uintptr // ID3D11VideoProcessorOutputView (persistent)
	out          texSurface
	width        int
	height       int
}

// NewConverter creates a GPU BGRA->NV12 converter bound to the given
// capture device/context pair. It is the standalone constructor for
// spec section 6's Converter API surface (Init/Convert/Shutdown),
// independent of EncoderSession — callers may Convert frames and pass
// the resulting NV12Surface into Submit without the two components
// sharing a lifecycle.
func NewConverter(device, context uintptr, dims Dimensions) (ColorConverter, error) {
	c := &converter{device: device, width: dims.Width, height: dims.Height}

	var videoDevice uintptr
	if _, err := comCall(device, vtblDevQueryInterface,
		uintptr(unsafe.Pointer(&iidID3D11VideoDevice)),
		uintptr(unsafe.Pointer(&videoDevice)),
	); err != nil {
		return nil, fmt.Errorf("QueryInterface ID3D11VideoDevice: %w", err)
	}
	c.videoDevice = videoDevice

	var videoContext uintptr
	if _, err := comCall(context, vtblDevQueryInterface,
		uintptr(unsafe.Pointer(&iidID3D11VideoContext)),
		uintptr(unsafe.Pointer(&videoContext)),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("QueryInterface ID3D11VideoContext: %w", err)
	}
	c.videoContext = videoContext

	desc := d3d11VideoProcessorContentDesc{
		InputFrameFormat: 0,
		InputWidth:       uint32(dims.Width),
		InputHeight:      uint32(dims.Height),
		OutputWidth:      uint32(dims.Width),
		OutputHeight:     uint32(dims.Height),
	}
	var enumerator uintptr
	if _, err := comCall(videoDevice, vtblVidDevCreateVideoProcessorEnumerator,
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&enumerator)),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("CreateVideoProcessorEnumerator: %w", err)
	}
	c.enumerator = enumerator

	var processor uintptr
	if _, err := comCall(videoDevice, vtblVidDevCreateVideoProcessor,
		enumerator, 0,
		uintptr(unsafe.Pointer(&processor)),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("CreateVideoProcessor: %w", err)
	}
	c.processor = processor

	// Persistent NV12 output surface (spec section 3's Converter
	// invariant) plus the single output view wrapping it, both created
	// once here and reused by every Convert call.
	outputDesc := d3d11Texture2DDesc{
		Width:         uint32(dims.Width),
		Height:        uint32(dims.Height),
		MipLevels:     1,
		ArraySize:     1,
		Format:        dxgiFormatNV12,
		SampleCount:   1,
		SampleQuality: 0,
		Usage:         0, // DEFAULT
		BindFlags:     d3d11BindRenderTarget,
	}
	var outputTex uintptr
	if _, err := comCall(device, vtblDevCreateTexture2D,
		uintptr(unsafe.Pointer(&outputDesc)),
		0,
		uintptr(unsafe.Pointer(&outputTex)),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("CreateTexture2D NV12 output: %w", err)
	}
	c.outputTex = outputTex
	c.out = texSurface{handle: outputTex, dims: dims}

	outputViewDesc := [4]uint32{1, 0, 0, 0}
	var outputView uintptr
	if _, err := comCall(videoDevice, vtblVidDevCreateVideoProcessorOutputView,
		outputTex, enumerator,
		uintptr(unsafe.Pointer(&outputViewDesc)),
		uintptr(unsafe.Pointer(&outputView)),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("CreateVideoProcessorOutputView: %w", err)
	}
	c.outputView = outputView

	return c, nil
}

// Convert blits src (BGRA) into the converter's persistent NV12 output
// surface on the GPU and returns that surface. The returned surface is
// reused on every call — callers must finish consuming one frame's
// result (typically by copying it into a pool slot via Submit) before
// calling Convert again.
func (c *converter) Convert(src BGRASurface) (NV12Surface, error) {
	inputViewDesc := [5]uint32{0, 1, 0, 0, 0}
	var inputView uintptr
	if _, err := comCall(c.videoDevice, vtblVidDevCreateVideoProcessorInputView,
		src.Handle(), c.enumerator,
		uintptr(unsafe.Pointer(&inputViewDesc)),
		uintptr(unsafe.Pointer(&inputView)),
	); err != nil {
		return nil, fmt.Errorf("CreateVideoProcessorInputView: %w", err)
	}
	defer comRelease(inputView)

	stream := d3d11VideoProcessorStream{Enable: 1, PInputSurface: inputView}
	ret, _, _ := syscall.SyscallN(
		comVtblFn(c.videoContext, vtblVidCtxVideoProcessorBlt),
		c.videoContext,
		c.processor,
		c.outputView,
		0, 1,
		uintptr(unsafe.Pointer(&stream)),
	)
	if int32(ret) < 0 {
		return nil, fmt.Errorf("VideoProcessorBlt: HRESULT 0x%08X", uint32(ret))
	}
	return c.out, nil
}

func (c *converter) Close() error {
	if c.outputView != 0 {
		comRelease(c.outputView)
		c.outputView = 0
	}
	if c.outputTex != 0 {
		comRelease(c.outputTex)
		c.outputTex = 0
	}
	if c.processor != 0 {
		comRelease(c.processor)
		c.processor = 0
	}
	if c.enumerator != 0 {
		comRelease(c.enumerator)
		c.enumerator = 0
	}
	if c.videoContext != 0 {
		comRelease(c.videoContext)
		c.videoContext = 0
	}
	if c.videoDevice != 0 {
		comRelease(c.videoDevice)
		c.videoDevice = 0
	}
	return nil
}
