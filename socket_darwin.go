// +build darwin

package aio

import (
	"golang.org/x/sys/unix"
)

//sysSocket 创建socket，darwin没有SOCK_NONBLOCK，创建后补设置
func sysSocket(family, sotype, proto int) (int, error) {

	fd, err := unix.Socket(family, sotype, proto)
	if err != nil {
		return -1, err
	}

	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

//setKeepAlive 给这个fd开启keepalive
func setKeepAlive(fd, secs int) error {

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}

	switch err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs); err {
	case nil, unix.ENOPROTOOPT: // OS X 10.7 and earlier don't support this option
	default:
		return err
	}

	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, secs)
}

//setUserTimeout darwin没有TCP_USER_TIMEOUT，静默忽略
func setUserTimeout(fd, msecs int) error {
	return nil
}
