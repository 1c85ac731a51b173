//go:build windows

package pipeline

import (
	"fmt"
	"unsafe"
)

// createD3D11Device creates a hardware D3D11 device with BGRA and video
// support, used as the encoder-side device for the shared surface pool.
// The capture-side device is supplied by the caller (the desktop
// duplication collaborator owns it); this package never creates that
// one itself. Grounded on dxgi_windows.go's initDXGI device-creation
// call, including its fallback when VIDEO_SUPPORT is rejected by the
// driver.
func createD3D11Device() (device, context uintptr, err error) {
	flags := uintptr(d3d11CreateDeviceBGRASupport | d3d11CreateDeviceVideoSupport)
	hr, _, _ := procD3D11CreateDevice.Call(
		0,
		uintptr(d3d11DriverTypeHardware),
		0,
		flags,
		0, 0, // default feature levels
		uintptr(d3d11SdkVersion),
		uintptr(unsafe.Pointer(&device)),
		0,
		uintptr(unsafe.Pointer(&context)),
	)
	if int32(hr) < 0 {
		hr, _, _ = procD3D11CreateDevice.Call(
			0,
			uintptr(d3d11DriverTypeHardware),
			0,
			0,
			0, 0,
			uintptr(d3d11SdkVersion),
			uintptr(unsafe.Pointer(&device)),
			0,
			uintptr(unsafe.Pointer(&context)),
		)
	}
	if int32(hr) < 0 {
		return 0, 0, fmt.Errorf("D3D11CreateDevice failed: 0x%08X", uint32(hr))
	}
	return device, context, nil
}

// createSharedNV12Texture creates an NV12 texture on device, bound as a
// video processor render target and flagged shared + keyed-mutex so a
// second device can open the same underlying surface.
func createSharedNV12Texture(device uintptr, width, height int) (texture uintptr, err error) {
	desc := d3d11Texture2DDesc{
		Width:         uint32(width),
		Height:        uint32(height),
		MipLevels:     1,
		ArraySize:     1,
		Format:        dxgiFormatNV12,
		SampleCount:   1,
		SampleQuality: 0,
		Usage:         0, // DEFAULT
		BindFlags:     d3d11BindRenderTarget,
		MiscFlags:     d3d11ResourceMiscShared | d3d11ResourceMiscSharedKeyedMutex,
	}
	_, err = comCall(device, vtblDevCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)),
		0,
		uintptr(unsafe.Pointer(&texture)),
	)
	if err != nil {
		return 0, fmt.Errorf("CreateTexture2D NV12 shared: %w", err)
	}
	return texture, nil
}

// sharedHandle returns the NT/Win32 shared handle for a cross-device
// resource via IDXGIResource::GetSharedHandle.
func sharedHandle(texture uintptr) (uintptr, error) {
	var resource uintptr
	if _, err := comCall(texture, vtblDevQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIResource)),
		uintptr(unsafe.Pointer(&resource)),
	); err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIResource: %w", err)
	}
	defer comRelease(resource)

	var handle uintptr
	if _, err := comCall(resource, vtblDXGIResourceGetSharedHandle, uintptr(unsafe.Pointer(&handle))); err != nil {
		return 0, fmt.Errorf("GetSharedHandle: %w", err)
	}
	return handle, nil
}

// openSharedTexture opens another device's shared texture handle for
// use on device, giving the encoder device its own view of the capture
// device's NV12 surface.
func openSharedTexture(device uintptr, handle uintptr) (uintptr, error) {
	var texture uintptr
	if _, err := comCall(device, vtblDevOpenSharedResource,
		handle,
		uintptr(unsafe.Pointer(&iidIDXGIResource)),
		uintptr(unsafe.Pointer(&texture)),
	); err != nil {
		return 0, fmt.Errorf("OpenSharedResource: %w", err)
	}
	return texture, nil
}

// keyedMutexFrom obtains the IDXGIKeyedMutex for a shared texture view.
func keyedMutexFrom(texture uintptr) (uintptr, error) {
	var mutex uintptr
	if _, err := comCall(texture, vtblDevQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIKeyedMutex)),
		uintptr(unsafe.Pointer(&mutex)),
	); err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIKeyedMutex: %w", err)
	}
	return mutex, nil
}
