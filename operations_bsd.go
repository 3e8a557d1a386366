// +build darwin freebsd dragonfly

package aio

import (
	"golang.org/x/sys/unix"
)

//sysAccept 没有accept4，接受之后再补非阻塞和CLOEXEC
func sysAccept(fd int) (int, unix.Sockaddr, error) {

	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}

	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}

	return nfd, sa, nil
}
