//go:build !linux

package fetch

// bindToDevice is a no-op outside Linux: SO_BINDTODEVICE has no portable
// equivalent, so interface binding is best-effort here.
func bindToDevice(_ uintptr, _ string) error {
	return nil
}
