package aio

import (
	"net"
	"time"

	"github.com/ikilobyte/aio/util"
	"golang.org/x/sys/unix"
)

//SockOptions socket的可调参数，零值表示保持系统默认
type SockOptions struct {
	Rcvbuf      int           // SO_RCVBUF
	Sndbuf      int           // SO_SNDBUF
	Nodelay     bool          // TCP_NODELAY
	Keepalive   time.Duration // 按整秒截断，不足1秒不开启
	UserTimeout time.Duration // TCP_USER_TIMEOUT，仅linux生效
	ReuseAddr   bool          // SO_REUSEADDR
	ReusePort   bool          // SO_REUSEPORT，多个循环各自监听同一端口做负载均衡
}

//OpenSocketTCP 创建非阻塞的TCP socket并应用参数，fd归调用方所有
func OpenSocketTCP(family int, opts SockOptions) (int, error) {

	fd, err := sysSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, mapError(err)
	}

	if err := applySockOptions(fd, opts, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

//OpenSocketUDP 创建非阻塞的UDP socket并应用参数，fd归调用方所有
func OpenSocketUDP(family int, opts SockOptions) (int, error) {

	fd, err := sysSocket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return -1, mapError(err)
	}

	if err := applySockOptions(fd, opts, false); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

//CloseSocket 关闭socket
func CloseSocket(fd int) error {
	if err := unix.Close(fd); err != nil {
		return mapError(err)
	}
	return nil
}

//Listen 绑定地址并监听，backlog取自somaxconn
func Listen(fd int, address string) error {

	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return err
	}

	sa, err := addrToSockaddr(tcpAddr)
	if err != nil {
		return err
	}

	if err := unix.Bind(fd, sa); err != nil {
		return mapError(err)
	}

	if err := unix.Listen(fd, util.MaxListenerBacklog()); err != nil {
		return mapError(err)
	}

	return nil
}

//TCPAddr 把地址解析成unix.Sockaddr，给Connect用
func TCPAddr(address string) (unix.Sockaddr, error) {

	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}

	return addrToSockaddr(tcpAddr)
}

//addrToSockaddr v4优先，不是v4再按v6处理
func addrToSockaddr(addr *net.TCPAddr) (unix.Sockaddr, error) {

	if ip4 := addr.IP.To4(); ip4 != nil || addr.IP == nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}

	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		return sa, nil
	}

	return nil, ErrInvalidArgument
}

//applySockOptions 依次应用socket参数，任何一步失败就整体失败
func applySockOptions(fd int, opts SockOptions, stream bool) error {

	if opts.Rcvbuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, opts.Rcvbuf); err != nil {
			return mapError(err)
		}
	}

	if opts.Sndbuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, opts.Sndbuf); err != nil {
			return mapError(err)
		}
	}

	if opts.ReuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return mapError(err)
		}
	}

	if opts.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return mapError(err)
		}
	}

	if !stream {
		return nil
	}

	if opts.Nodelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return mapError(err)
		}
	}

	if secs := int(opts.Keepalive / time.Second); secs >= 1 {
		if err := setKeepAlive(fd, secs); err != nil {
			return mapError(err)
		}
	}

	if opts.UserTimeout > 0 {
		if err := setUserTimeout(fd, int(opts.UserTimeout/time.Millisecond)); err != nil {
			return mapError(err)
		}
	}

	return nil
}
