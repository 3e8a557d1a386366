// +build linux

package aio

import (
	"golang.org/x/sys/unix"
)

//sysSocket 创建socket，非阻塞和CLOEXEC在创建时一并设置
func sysSocket(family, sotype, proto int) (int, error) {
	return unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}

//setKeepAlive 给这个fd开启keepalive
func setKeepAlive(fd, secs int) error {

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}

	// 发送keepalive探测包的频率，单位是秒，
	// see /proc/sys/net/ipv4/tcp_keepalive_intvl
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs); err != nil {
		return err
	}

	// 多少秒后发送第一次keepalive探测包，默认是7200秒，
	// see /proc/sys/net/ipv4/tcp_keepalive_time
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs); err != nil {
		return err
	}

	// 连续多少次对方没有回复ACK的话，会被断开连接
	// see /proc/sys/net/ipv4/tcp_keepalive_probes
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
}

//setUserTimeout 已发送数据多久没被确认后放弃这条连接，单位毫秒
func setUserTimeout(fd, msecs int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, msecs)
}
