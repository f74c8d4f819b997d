package binfmt

import "unsafe"

// Uint32View reinterprets a byte slice as a []uint32 without copying. b's
// length must be a multiple of 4; the returned slice aliases b's backing
// array, so it is only valid as long as b (and whatever mapping backs it,
// e.g. an mmap region) stays alive.
func Uint32View(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
}

// Uint64View reinterprets a byte slice as a []uint64 without copying. See
// Uint32View for the aliasing caveat.
func Uint64View(b []byte) []uint64 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 8
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), n)
}

// Int64View reinterprets a byte slice as a []int64 without copying. See
// Uint32View for the aliasing caveat.
func Int64View(b []byte) []int64 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 8
	return unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), n)
}
