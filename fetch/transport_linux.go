//go:build linux

package fetch

import "syscall"

// bindToDevice issues SO_BINDTODEVICE so outbound connections leave through
// the named interface, the Linux equivalent of the local_address binding.
func bindToDevice(fd uintptr, iface string) error {
	return syscall.SetsockoptString(int(fd), syscall.SOL_SOCKET, syscall.SO_BINDTODEVICE, iface)
}
