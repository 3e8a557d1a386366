package aio

import (
	"golang.org/x/sys/unix"
)

//OpKind 操作类型
type OpKind uint8

const (
	OpAccept OpKind = iota
	OpConnect
	OpRecv
	OpSend
	OpRead
	OpWrite
	OpClose
	OpTimeout
)

//Callback 完成回调，res的含义由操作类型决定：
//accept是新连接的fd，recv/send/read/write是字节数，其余为0
type Callback func(ctx interface{}, c *Completion, res int, err error)

//state 一个completion同一时刻只能处于一个集合中
type state uint8

const (
	stateIdle      state = iota // 调用方持有
	stateUnqueued               // 等待尝试系统调用
	stateWaiting                // 已注册到内核通知器
	stateCompleted              // 等待派发回调
	stateTimeout                // 在超时集合中
)

//Completion 一次异步操作的完整状态，内存由调用方分配，
//从提交到回调返回期间归事件循环借用，期间不可改动或重复提交
type Completion struct {
	op       OpKind
	fd       int
	buf      []byte
	offset   int64         // read/write 的文件偏移
	sa       unix.Sockaddr // connect 的目标地址
	deadline int64         // timeout 的绝对截止时间，单调纳秒
	started  bool          // connect 是否已发出过EINPROGRESS

	ctx      interface{}
	callback Callback

	res int
	err error

	next    *Completion // 侵入式队列指针
	state   state
	heapIdx int // 超时堆中的下标
}

//GetFd 获取该操作对应的fd
func (c *Completion) GetFd() int {
	return c.fd
}

//GetOp 获取操作类型
func (c *Completion) GetOp() OpKind {
	return c.op
}

//GetBuffer 获取操作的缓冲区
func (c *Completion) GetBuffer() []byte {
	return c.buf
}

//GetDeadline 获取timeout操作的绝对截止时间
func (c *Completion) GetDeadline() int64 {
	return c.deadline
}

//GetSockaddr accept完成后是对端地址，connect则是提交时的目标地址
func (c *Completion) GetSockaddr() unix.Sockaddr {
	return c.sa
}

//reset 提交前的初始化，state必须是stateIdle，否则视为重复提交
func (c *Completion) reset(op OpKind, ctx interface{}, callback Callback) error {

	if c.state != stateIdle {
		return ErrMisuse
	}

	c.op = op
	c.fd = -1
	c.buf = nil
	c.offset = 0
	c.sa = nil
	c.deadline = 0
	c.started = false
	c.ctx = ctx
	c.callback = callback
	c.res = 0
	c.err = nil
	c.next = nil
	c.heapIdx = -1

	return nil
}
