// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"net"

	"code.hybscloud.com/iox"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// rawConn is the interface abstraction FramedStream drives its non-blocking
// I/O through. Today the only implementation is a raw TCP socket fd
// (tcpConn); a TLS-wrapped stream could satisfy the same interface without
// touching FramedStream or the reactor.
type rawConn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Fd() int
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
}

// tcpConn wraps a non-blocking raw TCP socket file descriptor obtained via
// golang.org/x/sys/unix. netcore bypasses net.Conn for the socket data path
// deliberately: registering a net.Conn's fd with an independent epoll
// instance would race Go's runtime network poller, which already owns that
// fd's readiness. Read and Write translate EAGAIN/EWOULDBLOCK into
// iox.ErrWouldBlock, the same transient-I/O sentinel the pack's framer
// package re-exports, so the rest of netcore never matches on a raw
// syscall errno.
type tcpConn struct {
	fd     int
	remote net.Addr
	local  net.Addr
}

func (c *tcpConn) Fd() int              { return c.fd }
func (c *tcpConn) RemoteAddr() net.Addr { return c.remote }
func (c *tcpConn) LocalAddr() net.Addr  { return c.local }

func (c *tcpConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if isWouldBlock(err) {
			return 0, iox.ErrWouldBlock
		}
		return n, errors.Wrap(err, "netcore: read")
	}
	return n, nil
}

func (c *tcpConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		if isWouldBlock(err) {
			return n, iox.ErrWouldBlock
		}
		return n, errors.Wrap(err, "netcore: write")
	}
	return n, nil
}

func (c *tcpConn) Close() error {
	return unix.Close(c.fd)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// resolveTCPAddr parses "host:port" into a *net.TCPAddr, surfacing any
// failure as ErrAddressParse.
func resolveTCPAddr(addr string) (*net.TCPAddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(ErrAddressParse, "%q: %v", addr, err)
	}
	return tcpAddr, nil
}

// sockaddr builds the golang.org/x/sys/unix domain and Sockaddr for a
// resolved TCP address, choosing AF_INET or AF_INET6 per the address
// family actually returned by the resolver.
func sockaddr(addr *net.TCPAddr) (domain int, sa unix.Sockaddr, err error) {
	ip4 := addr.IP.To4()
	if ip4 != nil {
		var a unix.SockaddrInet4
		a.Port = addr.Port
		copy(a.Addr[:], ip4)
		return unix.AF_INET, &a, nil
	}
	ip16 := addr.IP.To16()
	if ip16 == nil {
		return 0, nil, errors.Errorf("netcore: unsupported address %v", addr)
	}
	var a unix.SockaddrInet6
	a.Port = addr.Port
	copy(a.Addr[:], ip16)
	return unix.AF_INET6, &a, nil
}

func sockaddrToTCPAddr(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, s.Addr[:])
		return &net.TCPAddr{IP: ip, Port: s.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, s.Addr[:])
		return &net.TCPAddr{IP: ip, Port: s.Port}
	default:
		return nil
	}
}

// listenTCP binds and listens on addr, returning a non-blocking listener fd.
func listenTCP(addr string) (fd int, local net.Addr, err error) {
	tcpAddr, err := resolveTCPAddr(addr)
	if err != nil {
		return -1, nil, err
	}
	domain, sa, err := sockaddr(tcpAddr)
	if err != nil {
		return -1, nil, err
	}
	fd, err = unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, nil, errors.Wrap(err, "netcore: socket")
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: setsockopt(SO_REUSEADDR)")
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: set nonblocking")
	}
	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: bind")
	}
	if err = unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: listen")
	}
	boundSA, err := unix.Getsockname(fd)
	if err == nil {
		local = sockaddrToTCPAddr(boundSA)
	} else {
		local = tcpAddr
	}
	return fd, local, nil
}

const listenBacklog = 1024

// dialTCP initiates a non-blocking connect and returns its fd immediately.
// Completion (success or failure) is observed later via writable readiness
// plus a SO_ERROR check.
func dialTCP(addr string) (fd int, remote net.Addr, err error) {
	tcpAddr, err := resolveTCPAddr(addr)
	if err != nil {
		return -1, nil, err
	}
	domain, sa, err := sockaddr(tcpAddr)
	if err != nil {
		return -1, nil, err
	}
	fd, err = unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, nil, errors.Wrap(err, "netcore: socket")
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: set nonblocking")
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "netcore: connect")
	}
	return fd, tcpAddr, nil
}

// connectError returns the pending socket error recorded by the kernel for
// a non-blocking connect, nil when the handshake succeeded.
func connectError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "netcore: getsockopt(SO_ERROR)")
	}
	if errno != 0 {
		return errors.Wrap(unix.Errno(errno), "netcore: connect")
	}
	return nil
}

// acceptOne accepts at most one pending connection from a listener fd.
// ok is false (with a nil error) when the accept queue is drained
// (EAGAIN/EWOULDBLOCK).
func acceptOne(listenFd int) (conn *tcpConn, ok bool, err error) {
	nfd, sa, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK)
	if err != nil {
		if isWouldBlock(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "netcore: accept")
	}
	local, _ := unix.Getsockname(nfd)
	return &tcpConn{
		fd:     nfd,
		remote: sockaddrToTCPAddr(sa),
		local:  sockaddrToTCPAddr(local),
	}, true, nil
}
