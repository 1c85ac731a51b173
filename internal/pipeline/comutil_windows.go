//go:build windows

package pipeline

import (
	"fmt"
	"syscall"
	"unsafe"
)

// COM vtable calling infrastructure for the D3D11/DXGI interfaces this
// package needs. Same pure-Go syscall technique the teacher uses for
// Media Foundation in comutil_windows.go — no cgo, no go-ole.

// comGUID is a COM GUID (128-bit).
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// comCall invokes a COM vtable method at the given index. obj is a
// pointer to a COM interface (pointer to pointer to vtable). Calls with
// up to 3 args are passed to SyscallN directly; longer calls build an
// argument slice.
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))

	var ret uintptr
	switch len(args) {
	case 0:
		ret, _, _ = syscall.SyscallN(fnPtr, obj)
	case 1:
		ret, _, _ = syscall.SyscallN(fnPtr, obj, args[0])
	case 2:
		ret, _, _ = syscall.SyscallN(fnPtr, obj, args[0], args[1])
	case 3:
		ret, _, _ = syscall.SyscallN(fnPtr, obj, args[0], args[1], args[2])
	default:
		allArgs := make([]uintptr, 0, 1+len(args))
		allArgs = append(allArgs, obj)
		allArgs = append(allArgs, args...)
		ret, _, _ = syscall.SyscallN(fnPtr, allArgs...)
	}

	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comRelease calls IUnknown::Release (vtable index 2).
func comRelease(obj uintptr) {
	if obj != 0 {
		vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
		fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + 2*unsafe.Sizeof(uintptr(0))))
		syscall.SyscallN(fnPtr, obj)
	}
}

// comVtblFn resolves a COM vtable function pointer by index, for call
// sites that need to pass more arguments than comCall's variadic
// uintptr list can express cleanly (e.g. raw syscall.SyscallN calls
// with output-param pointers).
func comVtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// --- DLL procs ---

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

// --- constants ---

const (
	d3d11SdkVersion = 7

	d3d11CreateDeviceBGRASupport  = 0x20
	d3d11CreateDeviceVideoSupport = 0x800

	d3d11DriverTypeHardware = 1

	dxgiFormatB8G8R8A8Unorm = 87
	dxgiFormatNV12          = 103

	d3d11BindRenderTarget    = 0x20
	d3d11BindDecoder         = 0x200
	d3d11ResourceMiscShared  = 0x2
	d3d11ResourceMiscSharedKeyedMutex = 0x10

	// ID3D11Device vtable offsets (IUnknown 0-2)
	vtblDevCreateTexture2D    = 5
	vtblDevOpenSharedResource = 28
	vtblDevQueryInterface     = 0

	// ID3D11DeviceContext vtable offset (IUnknown 0-2)
	vtblCtxCopyResource = 47

	// ID3D11VideoDevice vtable offsets (IUnknown base 0-2, then methods)
	vtblVidDevCreateVideoProcessor           = 4
	vtblVidDevCreateVideoProcessorEnumerator = 10
	vtblVidDevCreateVideoProcessorInputView  = 8
	vtblVidDevCreateVideoProcessorOutputView = 9

	// ID3D11VideoContext vtable offsets (IUnknown 0-2, ID3D11DeviceChild 3-6,
	// decoder methods 7-12, output set 13-19, output get 20-26,
	// stream set 27-39, stream get 40-52, VideoProcessorBlt=53)
	vtblVidCtxVideoProcessorBlt = 53

	// IDXGIKeyedMutex vtable offsets (IUnknown 0-2, IDXGIObject 3-6,
	// IDXGIDeviceSubObject 7)
	vtblKeyedMutexAcquireSync = 8
	vtblKeyedMutexReleaseSync = 9

	// IDXGIResource vtable offsets (IUnknown 0-2, IDXGIObject 3-6,
	// IDXGIDeviceSubObject 7)
	vtblDXGIResourceGetSharedHandle = 8

	// DXGI_ERROR_WAIT_TIMEOUT — returned by AcquireSync when the
	// timeout elapses without the mutex becoming available.
	dxgiErrWaitTimeout = 0x887A0027
)

var (
	iidID3D11VideoDevice  = comGUID{0x10ec4d5b, 0x975a, 0x4689, [8]byte{0xb9, 0xe4, 0xd0, 0xaa, 0xc3, 0x0f, 0xe3, 0x33}}
	iidID3D11VideoContext = comGUID{0x61f21c45, 0x3c0e, 0x4a74, [8]byte{0x9c, 0xea, 0x67, 0x10, 0x0d, 0x9a, 0xd5, 0xe4}}
	iidIDXGIKeyedMutex    = comGUID{0x9d8e1289, 0xd7b3, 0x465f, [8]byte{0x81, 0x26, 0x25, 0x0e, 0x34, 0x9a, 0xf8, 0x5d}}
	iidIDXGIResource      = comGUID{0x035f3ab4, 0x482e, 0x4e50, [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
)

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// d3d11VideoProcessorContentDesc matches D3D11_VIDEO_PROCESSOR_CONTENT_DESC.
type d3d11VideoProcessorContentDesc struct {
	InputFrameFormat uint32
	InputFrameRateN  uint32
	InputFrameRateD  uint32
	InputWidth       uint32
	InputHeight      uint32
	OutputFrameRateN uint32
	OutputFrameRateD uint32
	OutputWidth      uint32
	OutputHeight     uint32
	Usage            uint32
}

// d3d11VideoProcessorStream matches D3D11_VIDEO_PROCESSOR_STREAM.
type d3d11VideoProcessorStream struct {
	Enable                int32
	OutputIndex           uint32
	InputFrameOrField     uint32
	PastFrames            uint32
	FutureFrames          uint32
	PPastSurfaces         uintptr
	PInputSurface         uintptr
	PPFutureSurfaces      uintptr
	PPPastSurfacesRight   uintptr
	PInputSurfaceRight    uintptr
	PPFutureSurfacesRight uintptr
}
