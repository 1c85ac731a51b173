//go:build windows

package pipeline

import (
	"fmt"
	"syscall"
	"time"
)

// dxgiKeyedMutex adapts an IDXGIKeyedMutex COM object to the KeyedMutex
// interface. AcquireSync/ReleaseSync take the key value and a
// millisecond timeout directly, so no separate Win32 event/handle is
// involved here (unlike the completion-event wait in backend_nvenc_windows.go,
// which does use golang.org/x/sys/windows — see that file).
type dxgiKeyedMutex struct {
	obj uintptr
}

func newDXGIKeyedMutex(textureView uintptr) (*dxgiKeyedMutex, error) {
	mutex, err := keyedMutexFrom(textureView)
	if err != nil {
		return nil, err
	}
	return &dxgiKeyedMutex{obj: mutex}, nil
}

func (m *dxgiKeyedMutex) Acquire(key MutexKey, timeout time.Duration) error {
	ms := uint32(timeout / time.Millisecond)
	ret, _, _ := syscall.SyscallN(comVtblFn(m.obj, vtblKeyedMutexAcquireSync), m.obj, uintptr(key), uintptr(ms))
	if ret == dxgiErrWaitTimeout {
		return ErrMutexTimeout
	}
	if int32(ret) < 0 {
		return fmt.Errorf("AcquireSync(key=%d): HRESULT 0x%08X", key, uint32(ret))
	}
	return nil
}

func (m *dxgiKeyedMutex) Release(key MutexKey) error {
	if _, err := comCall(m.obj, vtblKeyedMutexReleaseSync, uintptr(key)); err != nil {
		return fmt.Errorf("ReleaseSync(key=%d): %w", key, err)
	}
	return nil
}

func (m *dxgiKeyedMutex) close() {
	comRelease(m.obj)
}
