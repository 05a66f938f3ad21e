//go:build linux

package numa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const mpolPreferred = 1

// bindToNode asks the kernel to place b's pages on node. Must run before
// the pages are first touched.
func bindToNode(b []byte, node int) error {
	if len(b) == 0 {
		return nil
	}
	mask := uint64(1) << uint(node)
	_, _, errno := unix.Syscall6(unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)),
		mpolPreferred, uintptr(unsafe.Pointer(&mask)), 64, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func adviseHugePages(b []byte) error {
	return unix.Madvise(b, unix.MADV_HUGEPAGE)
}
