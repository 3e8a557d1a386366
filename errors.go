package aio

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

//回调中可能出现的错误种类，EAGAIN和EINTR永远不会出现在这里，
//它们由事件循环内部消化
var (
	ErrCanceled          = errors.New("operation canceled")
	ErrConnectionRefused = errors.New("connection refused")
	ErrConnectionReset   = errors.New("connection reset by peer")
	ErrConnectionAborted = errors.New("connection aborted")
	ErrTimedOut          = errors.New("operation timed out")
	ErrBrokenPipe        = errors.New("broken pipe")
	ErrNotConnected      = errors.New("socket is not connected")
	ErrBadFileDescriptor = errors.New("bad file descriptor")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoMemory          = errors.New("cannot allocate memory")
	ErrTooManyOpenFiles  = errors.New("too many open files")
	ErrNoBufferSpace     = errors.New("no buffer space available")
)

//提交阶段的错误，直接由提交方法返回；唯一的例外是同一个fd同一个方向
//已有等待者时，后来者在注册就绪通知时以ErrMisuse经回调完成
var (
	ErrMisuse   = errors.New("completion is still in use")
	ErrShutdown = errors.New("event loop was shut down")
)

//mapErrno 将errno归类为粗粒度的错误种类，未知的errno原样包一层
func mapErrno(errno syscall.Errno) error {
	switch errno {
	case unix.ECANCELED:
		return ErrCanceled
	case unix.ECONNREFUSED:
		return ErrConnectionRefused
	case unix.ECONNRESET:
		return ErrConnectionReset
	case unix.ECONNABORTED:
		return ErrConnectionAborted
	case unix.ETIMEDOUT:
		return ErrTimedOut
	case unix.EPIPE:
		return ErrBrokenPipe
	case unix.ENOTCONN:
		return ErrNotConnected
	case unix.EBADF:
		return ErrBadFileDescriptor
	case unix.EINVAL:
		return ErrInvalidArgument
	case unix.ENOMEM:
		return ErrNoMemory
	case unix.EMFILE, unix.ENFILE:
		return ErrTooManyOpenFiles
	case unix.ENOBUFS:
		return ErrNoBufferSpace
	default:
		return fmt.Errorf("io error: %w", errno)
	}
}

//mapError 系统调用返回的error转为错误种类
func mapError(err error) error {
	if errno, ok := err.(syscall.Errno); ok {
		return mapErrno(errno)
	}
	return err
}
