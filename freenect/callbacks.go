package freenect

/*
#include <libfreenect/libfreenect.h>
*/
import "C"

import "unsafe"

// libfreenect reuses its frame buffers, so frames are copied before they
// reach Go callbacks.

//export depthCallbackTrampoline
func depthCallbackTrampoline(dev *C.freenect_device, depth unsafe.Pointer, timestamp C.uint32_t) {
	d, ok := lookupDevice(dev)
	if !ok {
		return
	}

	d.state.mu.RLock()
	cb, mode := d.state.depthCallback, d.state.depthMode
	d.state.mu.RUnlock()

	if cb == nil || depth == nil {
		return
	}

	n := mode.Bytes / 2
	frame := make([]uint16, n)
	copy(frame, unsafe.Slice((*uint16)(depth), n))

	cb(d, frame, uint32(timestamp))
}

//export videoCallbackTrampoline
func videoCallbackTrampoline(dev *C.freenect_device, video unsafe.Pointer, timestamp C.uint32_t) {
	d, ok := lookupDevice(dev)
	if !ok {
		return
	}

	d.state.mu.RLock()
	cb, mode := d.state.videoCallback, d.state.videoMode
	d.state.mu.RUnlock()

	if cb == nil || video == nil {
		return
	}

	frame := make([]byte, mode.Bytes)
	copy(frame, unsafe.Slice((*byte)(video), mode.Bytes))

	cb(d, frame, uint32(timestamp))
}
