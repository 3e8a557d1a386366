// +build linux

package aio

import (
	"golang.org/x/sys/unix"
)

//sysAccept accept4一步到位设置非阻塞和CLOEXEC
func sysAccept(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}
