package fetch

import (
	"net"
	"net/http"
	"syscall"
	"time"
)

// bindToDevice is implemented per-platform in transport_linux.go /
// transport_other.go.

// newTransport builds an *http.Transport honoring the origin's optional
// local_address/interface binding (address wins when both are set;
// config.OriginConfig.Validate rejects a config that sets both). Binding by interface name uses
// SO_BINDTODEVICE and is therefore Linux-only; on other platforms it is a
// silent no-op.
func newTransport(connectTimeout time.Duration, localAddress, iface string) *http.Transport {
	dialer := &net.Dialer{Timeout: connectTimeout}

	if localAddress != "" {
		if addr, err := net.ResolveTCPAddr("tcp", localAddress+":0"); err == nil {
			dialer.LocalAddr = addr
		}
	} else if iface != "" {
		dialer.Control = func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = bindToDevice(fd, iface)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		}
	}

	return &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
}
