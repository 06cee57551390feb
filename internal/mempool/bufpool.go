// Package mempool provides sized buffer pools for hot-path allocation
// reduction, adapted from the teacher's internal/mempool float32 tensor pool
// (originally sized for ONNX NCHW input buffers) into a []byte pool for the
// crop engine's JPEG-encode scratch buffers.
package mempool

import "sync"

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next 32KiB bucket to limit pool churn across
// the range of JPEG output sizes a crop engine produces.
func sizeClass(n int) int {
	const step = 32 * 1024
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

// GetBytes retrieves a []byte buffer of at least n bytes from the pool. The
// returned slice has length 0 and capacity >= n; the caller appends into it.
// Return it via PutBytes when done.
func GetBytes(n int) []byte {
	cls := sizeClass(n)
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]byte, 0, cls)
		return &buf
	}})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		buf := make([]byte, 0, cls)
		return buf
	}
	bufPtr, ok := p.Get().(*[]byte)
	if !ok || cap(*bufPtr) < cls {
		buf := make([]byte, 0, cls)
		return buf
	}
	return (*bufPtr)[:0]
}

// PutBytes returns a buffer to the pool. Safe to call with nil.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any {
		b := make([]byte, 0, cls)
		return &b
	}})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	reset := buf[:0]
	p.Put(&reset)
}
