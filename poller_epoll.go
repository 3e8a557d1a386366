// +build linux

package aio

import (
	"golang.org/x/sys/unix"
)

//poller epoll封装，所有注册都带EPOLLONESHOT，
//事件送达后内核自动撤防，避免同一个fd上残留旧事件
type poller struct {
	epfd    int
	events  []unix.EpollEvent
	waiting map[int32]*pollDesc
	pending int // 等待就绪的completion数量
}

//newPoller 创建epoll
func newPoller(entries uint32) (*poller, error) {

	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, mapError(err)
	}

	return &poller{
		epfd:    fd,
		events:  make([]unix.EpollEvent, entries),
		waiting: make(map[int32]*pollDesc),
	}, nil
}

//addInterest 注册一次性的就绪通知，同一个方向不允许挂两个completion
func (p *poller) addInterest(c *Completion, dir direction) error {

	fd := int32(c.fd)
	desc := p.waiting[fd]
	if desc == nil {
		desc = new(pollDesc)
		p.waiting[fd] = desc
	}

	if dir == readable {
		if desc.readC != nil {
			return ErrMisuse
		}
		desc.readC = c
	} else {
		if desc.writeC != nil {
			return ErrMisuse
		}
		desc.writeC = c
	}

	if err := p.arm(int(fd), desc); err != nil {
		// 注册失败要把刚挂上去的摘下来，错误交给这个completion的回调
		if dir == readable {
			desc.readC = nil
		} else {
			desc.writeC = nil
		}
		if desc.empty() {
			delete(p.waiting, fd)
		}
		return mapError(err)
	}

	p.pending++
	return nil
}

//arm 按当前等待方向重新注册，epoll里同一个fd只有一项，读写合并在事件掩码里
func (p *poller) arm(fd int, desc *pollDesc) error {

	ev := &unix.EpollEvent{
		Events: unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}
	if desc.readC != nil {
		ev.Events |= unix.EPOLLIN | unix.EPOLLPRI | unix.EPOLLRDHUP
	}
	if desc.writeC != nil {
		ev.Events |= unix.EPOLLOUT
	}

	if !desc.armed {
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
		if err == unix.EEXIST {
			err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
		}
		if err != nil {
			return err
		}
		desc.armed = true
		return nil
	}

	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
	if err == unix.ENOENT {
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	return err
}

//wait 最多阻塞budget纳秒，就绪的completion转移到ready队列重试，
//注册失效的直接带错误进failed队列，EINTR当作空轮询，其余错误对循环致命
func (p *poller) wait(budget int64, ready *queue, failed *queue) error {

	msec := 0
	if budget > 0 {
		// epoll只有毫秒精度，向上取整避免空转
		msec = int((budget + 1e6 - 1) / 1e6)
	}

	n, err := unix.EpollWait(p.epfd, p.events, msec)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return mapError(err)
	}

	for i := 0; i < n; i++ {

		var (
			event = p.events[i]
			fd    = event.Fd
			desc  = p.waiting[fd]
		)
		if desc == nil {
			continue
		}

		// 错误和挂断事件两个方向都要唤醒，让重试的系统调用去拿到具体errno
		r := event.Events&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0
		w := event.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0

		if r && desc.readC != nil {
			c := desc.readC
			desc.readC = nil
			c.state = stateUnqueued
			ready.push(c)
			p.pending--
		}
		if w && desc.writeC != nil {
			c := desc.writeC
			desc.writeC = nil
			c.state = stateUnqueued
			ready.push(c)
			p.pending--
		}

		if desc.empty() {
			_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
			delete(p.waiting, fd)
			continue
		}

		// ONESHOT触发后内核已撤防，另一个方向还在等就重新注册
		if err := p.arm(int(fd), desc); err != nil {
			p.failDesc(fd, desc, mapError(err), failed)
		}
	}

	return nil
}

//cancelFd 撤掉fd上全部等待者，用于close路径，等待者以ErrCanceled完成
func (p *poller) cancelFd(fd int, failed *queue) {

	desc := p.waiting[int32(fd)]
	if desc == nil {
		return
	}

	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	p.failDesc(int32(fd), desc, ErrCanceled, failed)
}

//failDesc 让fd上的等待者全部以错误完成
func (p *poller) failDesc(fd int32, desc *pollDesc, cause error, failed *queue) {

	if c := desc.readC; c != nil {
		desc.readC = nil
		c.state = stateCompleted
		c.err = cause
		failed.push(c)
		p.pending--
	}
	if c := desc.writeC; c != nil {
		desc.writeC = nil
		c.state = stateCompleted
		c.err = cause
		failed.push(c)
		p.pending--
	}
	delete(p.waiting, fd)
}

//close 关闭epoll句柄
func (p *poller) close() error {
	return unix.Close(p.epfd)
}
