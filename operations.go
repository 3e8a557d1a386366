package aio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

//attempt 对一个completion执行一次系统调用，
//EAGAIN转入内核等待，EINTR排到下一轮重试，其余结果直接完成
func (l *Loop) attempt(c *Completion) {
	switch c.op {
	case OpAccept:
		l.performAccept(c)
	case OpConnect:
		l.performConnect(c)
	case OpRecv:
		l.performRecv(c)
	case OpSend:
		l.performSend(c)
	case OpRead:
		l.performRead(c)
	case OpWrite:
		l.performWrite(c)
	case OpClose:
		l.performClose(c)
	case OpTimeout:
		c.state = stateTimeout
		l.timeouts.push(c)
	default:
		l.complete(c, 0, ErrInvalidArgument)
	}
}

//performAccept 新连接的fd设置为非阻塞并带CLOEXEC
func (l *Loop) performAccept(c *Completion) {

	nfd, sa, err := sysAccept(c.fd)
	if err == nil {
		c.sa = sa
		l.complete(c, nfd, nil)
		return
	}

	switch err {
	case unix.EAGAIN:
		l.waitFor(c, readable)
	case unix.EINTR:
		l.requeue(c)
	default:
		l.complete(c, 0, mapError(err))
	}
}

//performConnect 第一次调用发出connect，EINPROGRESS之后等可写，
//就绪后用SO_ERROR拿到最终结果
func (l *Loop) performConnect(c *Completion) {

	if !c.started {
		err := unix.Connect(c.fd, c.sa)
		if err == nil {
			l.complete(c, 0, nil)
			return
		}

		switch err {
		case unix.EINPROGRESS, unix.EAGAIN, unix.EINTR:
			// EINTR的connect在内核里已经发出，同样等待可写
			c.started = true
			l.waitFor(c, writable)
		default:
			l.complete(c, 0, mapError(err))
		}
		return
	}

	v, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		l.complete(c, 0, mapError(err))
		return
	}
	if v != 0 {
		l.complete(c, 0, mapErrno(syscall.Errno(v)))
		return
	}

	l.complete(c, 0, nil)
}

//performRecv 读到0表示对端关闭，以成功0字节上报
func (l *Loop) performRecv(c *Completion) {

	n, err := unix.Read(c.fd, c.buf)
	if err == nil {
		l.complete(c, n, nil)
		return
	}

	switch err {
	case unix.EAGAIN:
		l.waitFor(c, readable)
	case unix.EINTR:
		l.requeue(c)
	default:
		l.complete(c, 0, mapError(err))
	}
}

//performSend 短写按实际字节数上报，剩余部分由调用方重新提交
func (l *Loop) performSend(c *Completion) {

	n, err := unix.Write(c.fd, c.buf)
	if err == nil {
		l.complete(c, n, nil)
		return
	}

	switch err {
	case unix.EAGAIN:
		l.waitFor(c, writable)
	case unix.EINTR:
		l.requeue(c)
	default:
		l.complete(c, 0, mapError(err))
	}
}

//performRead 带偏移量的pread
func (l *Loop) performRead(c *Completion) {

	n, err := unix.Pread(c.fd, c.buf, c.offset)
	if err == nil {
		l.complete(c, n, nil)
		return
	}

	switch err {
	case unix.EAGAIN:
		l.waitFor(c, readable)
	case unix.EINTR:
		l.requeue(c)
	default:
		l.complete(c, 0, mapError(err))
	}
}

//performWrite 带偏移量的pwrite，短写同send
func (l *Loop) performWrite(c *Completion) {

	n, err := unix.Pwrite(c.fd, c.buf, c.offset)
	if err == nil {
		l.complete(c, n, nil)
		return
	}

	switch err {
	case unix.EAGAIN:
		l.waitFor(c, writable)
	case unix.EINTR:
		l.requeue(c)
	default:
		l.complete(c, 0, mapError(err))
	}
}

//performClose 先让这个fd上还在等待的completion以ErrCanceled完成，再关闭，
//close不等待任何就绪通知
func (l *Loop) performClose(c *Completion) {

	l.poller.cancelFd(c.fd, &l.completed)

	if err := unix.Close(c.fd); err != nil {
		l.complete(c, 0, mapError(err))
		return
	}

	l.complete(c, 0, nil)
}

//waitFor 注册内核就绪通知，注册失败的错误交给这个completion自己的回调
func (l *Loop) waitFor(c *Completion, dir direction) {

	if err := l.poller.addInterest(c, dir); err != nil {
		l.complete(c, 0, err)
		return
	}

	c.state = stateWaiting
}

//requeue EINTR排到unqueued队尾，下一轮迭代重试
func (l *Loop) requeue(c *Completion) {
	c.state = stateUnqueued
	l.unqueued.push(c)
}

//complete 结果挂到completion上，进入完成队列等待派发
func (l *Loop) complete(c *Completion, res int, err error) {
	c.res = res
	c.err = err
	c.state = stateCompleted
	l.completed.push(c)
}
