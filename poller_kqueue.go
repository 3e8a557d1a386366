// +build darwin freebsd dragonfly

package aio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

//poller kqueue封装，读写是两个独立的filter，都以EV_ONESHOT注册，
//触发一次后内核自动删除，不会积累旧事件
type poller struct {
	kqfd    int
	events  []unix.Kevent_t
	changes []unix.Kevent_t
	waiting map[int32]*pollDesc
	pending int // 等待就绪的completion数量
}

//newPoller 创建kqueue
func newPoller(entries uint32) (*poller, error) {

	fd, err := unix.Kqueue()
	if err != nil {
		return nil, mapError(err)
	}

	return &poller{
		kqfd:    fd,
		events:  make([]unix.Kevent_t, entries),
		changes: make([]unix.Kevent_t, 1),
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

	filter := int16(unix.EVFILT_READ)
	if dir == writable {
		filter = unix.EVFILT_WRITE
	}

	if dir == readable {
		if desc.readC != nil {
			return ErrMisuse
		}
	} else {
		if desc.writeC != nil {
			return ErrMisuse
		}
	}

	p.changes[0] = unix.Kevent_t{
		Ident:  uint64(c.fd),
		Filter: filter,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
	}
	if _, err := unix.Kevent(p.kqfd, p.changes, nil, nil); err != nil {
		if desc.empty() {
			delete(p.waiting, fd)
		}
		return mapError(err)
	}

	if dir == readable {
		desc.readC = c
	} else {
		desc.writeC = c
	}
	p.pending++

	return nil
}

//wait 最多阻塞budget纳秒，就绪的completion转移到ready队列重试，
//注册出错的带错误进failed队列，EINTR当作空轮询，其余错误对循环致命
func (p *poller) wait(budget int64, ready *queue, failed *queue) error {

	if budget < 0 {
		budget = 0
	}
	ts := unix.NsecToTimespec(budget)

	n, err := unix.Kevent(p.kqfd, nil, p.events, &ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return mapError(err)
	}

	for i := 0; i < n; i++ {

		var (
			event = p.events[i]
			fd    = int32(event.Ident)
			desc  = p.waiting[fd]
		)
		if desc == nil {
			continue
		}

		var c *Completion
		if event.Filter == unix.EVFILT_READ {
			c = desc.readC
			desc.readC = nil
		} else if event.Filter == unix.EVFILT_WRITE {
			c = desc.writeC
			desc.writeC = nil
		}
		if c == nil {
			continue
		}
		p.pending--

		if event.Flags&unix.EV_ERROR != 0 {
			c.state = stateCompleted
			c.err = mapErrno(syscall.Errno(event.Data))
			failed.push(c)
		} else {
			// EV_EOF也走重试路径，由系统调用本身给出0或具体错误
			c.state = stateUnqueued
			ready.push(c)
		}

		if desc.empty() {
			delete(p.waiting, fd)
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

	if desc.readC != nil {
		p.changes[0] = unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  unix.EV_DELETE,
		}
		_, _ = unix.Kevent(p.kqfd, p.changes, nil, nil)
	}
	if desc.writeC != nil {
		p.changes[0] = unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  unix.EV_DELETE,
		}
		_, _ = unix.Kevent(p.kqfd, p.changes, nil, nil)
	}

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

//close 关闭kqueue句柄
func (p *poller) close() error {
	return unix.Close(p.kqfd)
}
