package aio

import (
	"github.com/ikilobyte/aio/util"
	"golang.org/x/sys/unix"
)

//Loop 单线程事件循环，一个实例从始至终只属于一个线程，内部没有任何锁，
//跨线程提交不受支持。多个循环各自持有自己的内核句柄即可并存
type Loop struct {
	poller    *poller
	unqueued  queue    // 等待尝试系统调用
	completed queue    // 等待派发回调
	timeouts  timeHeap // 未到期的timeout
	nowCached int64    // 每轮迭代刷新一次的单调时间
	active    int      // 借用中的completion数量
	stopped   bool
	closed    bool
}

//New 创建事件循环，entries提示值决定事件缓冲区和超时堆的初始大小，
//活跃的completion超过提示值也能正常工作
func New(opts ...Option) (*Loop, error) {

	options := parseOption(opts...)

	p, err := newPoller(options.Entries)
	if err != nil {
		return nil, err
	}

	return &Loop{
		poller:    p,
		timeouts:  newTimeHeap(options.Entries),
		nowCached: nanotime(),
	}, nil
}

//Shutdown 释放内核句柄，循环持有的唯一系统资源就是它，
//fd和socket始终归调用方所有，这里不会替调用方关闭
func (l *Loop) Shutdown() error {

	if l.closed {
		return nil
	}
	l.closed = true

	if l.active > 0 {
		util.Logger.WithField("pending", l.active).Warn("event loop shutdown with pending completions")
	}

	return l.poller.close()
}

//Stop 让RunForNs在当前迭代结束后返回
func (l *Loop) Stop() {
	l.stopped = true
}

//NowCached 本轮迭代缓存的单调时间戳，跨迭代只增不减
func (l *Loop) NowCached() int64 {
	return l.nowCached
}

//Pending 尚未归还给调用方的completion数量
func (l *Loop) Pending() int {
	return l.active
}

//Accept 提交accept，回调里res是新连接的fd，已设置非阻塞和CLOEXEC
func (l *Loop) Accept(ctx interface{}, callback Callback, c *Completion, fd int) error {

	if err := l.prepare(c, OpAccept, ctx, callback, fd); err != nil {
		return err
	}

	l.enqueue(c)
	return nil
}

//Connect 提交connect，非阻塞connect先返回EINPROGRESS，
//循环等到可写后检查SO_ERROR再回调
func (l *Loop) Connect(ctx interface{}, callback Callback, c *Completion, fd int, sa unix.Sockaddr) error {

	if sa == nil {
		return ErrInvalidArgument
	}
	if err := l.prepare(c, OpConnect, ctx, callback, fd); err != nil {
		return err
	}
	c.sa = sa

	l.enqueue(c)
	return nil
}

//Recv 提交recv，回调里res是读到的字节数，0表示对端关闭
func (l *Loop) Recv(ctx interface{}, callback Callback, c *Completion, fd int, buf []byte) error {

	if buf == nil {
		return ErrInvalidArgument
	}
	if err := l.prepare(c, OpRecv, ctx, callback, fd); err != nil {
		return err
	}
	c.buf = buf

	l.enqueue(c)
	return nil
}

//Send 提交send，短写按实际发送的字节数回调，剩余部分由调用方续传
func (l *Loop) Send(ctx interface{}, callback Callback, c *Completion, fd int, buf []byte) error {

	if buf == nil {
		return ErrInvalidArgument
	}
	if err := l.prepare(c, OpSend, ctx, callback, fd); err != nil {
		return err
	}
	c.buf = buf

	l.enqueue(c)
	return nil
}

//Read 提交带偏移量的pread
func (l *Loop) Read(ctx interface{}, callback Callback, c *Completion, fd int, buf []byte, offset int64) error {

	if buf == nil {
		return ErrInvalidArgument
	}
	if err := l.prepare(c, OpRead, ctx, callback, fd); err != nil {
		return err
	}
	c.buf = buf
	c.offset = offset

	l.enqueue(c)
	return nil
}

//Write 提交带偏移量的pwrite
func (l *Loop) Write(ctx interface{}, callback Callback, c *Completion, fd int, buf []byte, offset int64) error {

	if buf == nil {
		return ErrInvalidArgument
	}
	if err := l.prepare(c, OpWrite, ctx, callback, fd); err != nil {
		return err
	}
	c.buf = buf
	c.offset = offset

	l.enqueue(c)
	return nil
}

//Close 提交close，该fd上还在等待的操作会先以ErrCanceled完成
func (l *Loop) Close(ctx interface{}, callback Callback, c *Completion, fd int) error {

	if err := l.prepare(c, OpClose, ctx, callback, fd); err != nil {
		return err
	}

	l.enqueue(c)
	return nil
}

//Timeout 提交一个纯定时操作，ns是相对当前时刻的纳秒数，
//0或负数表示立即到期，在提交后的第一次迭代就会完成
func (l *Loop) Timeout(ctx interface{}, callback Callback, c *Completion, ns int64) error {

	if l.closed {
		return ErrShutdown
	}
	if callback == nil {
		return ErrInvalidArgument
	}
	if err := c.reset(OpTimeout, ctx, callback); err != nil {
		return err
	}

	if ns < 0 {
		ns = 0
	}
	c.deadline = nanotime() + ns

	l.enqueue(c)
	return nil
}

//CancelTimeout 把还没到期的timeout从超时集合里摘除，
//回调仍会以ErrCanceled执行一次，保证每次提交恰好回调一次
func (l *Loop) CancelTimeout(c *Completion) error {

	if c.state != stateTimeout || !l.timeouts.remove(c) {
		return ErrMisuse
	}

	l.complete(c, 0, ErrCanceled)
	return nil
}

//Run 执行一次迭代，阻塞预算为0
func (l *Loop) Run() error {

	if l.closed {
		return ErrShutdown
	}

	return l.tick(0)
}

//RunForNs 反复迭代直到时间预算耗尽、Stop被调用、或所有队列清空
func (l *Loop) RunForNs(budget int64) error {

	if l.closed {
		return ErrShutdown
	}

	l.stopped = false
	deadline := nanotime() + budget

	for !l.stopped && l.active > 0 {
		if err := l.tick(deadline); err != nil {
			return err
		}
		if nanotime() >= deadline {
			break
		}
	}

	return nil
}

//tick 一次完整的迭代：刷新时间、尝试系统调用、到期超时、轮询内核、派发回调。
//deadline是整个驱动的截止时间，0表示只跑这一轮
func (l *Loop) tick(deadline int64) error {

	// 时间缓存只前进不后退
	if now := nanotime(); now > l.nowCached {
		l.nowCached = now
	}

	// 本轮要尝试的快照，回调和就绪事件新产生的排到下一轮
	attempting := l.unqueued
	l.unqueued = queue{}

	for c := attempting.pop(); c != nil; c = attempting.pop() {
		l.attempt(c)
	}

	// 到期的timeout排在本轮I/O完成之后进入完成队列
	for {
		c := l.timeouts.popExpired(l.nowCached)
		if c == nil {
			break
		}
		c.state = stateCompleted
		l.completed.push(c)
	}

	// 轮询内核，就绪的回到unqueued等下一轮重试
	if err := l.poller.wait(l.blockBudget(deadline), &l.unqueued, &l.completed); err != nil {
		util.Logger.WithField("error", err).Error("notifier poll failed")
		return err
	}

	// 派发回调，快照隔离回调中产生的新完成和新提交
	dispatching := l.completed
	l.completed = queue{}

	for c := dispatching.pop(); c != nil; c = dispatching.pop() {
		c.state = stateIdle
		l.active--
		callback := c.callback
		callback(c.ctx, c, c.res, c.err)
	}

	return nil
}

//blockBudget 计算poll最多可以阻塞多久：
//Run单次迭代和存在待派发、待尝试的completion时为0，
//否则取最近截止时间和驱动剩余预算的较小值
func (l *Loop) blockBudget(deadline int64) int64 {

	if deadline <= 0 {
		return 0
	}
	if !l.completed.empty() || !l.unqueued.empty() {
		return 0
	}

	budget := deadline - l.nowCached
	if d, ok := l.timeouts.earliest(); ok {
		if remain := d - l.nowCached; remain < budget {
			budget = remain
		}
	}
	if budget < 0 {
		budget = 0
	}

	return budget
}

//prepare fd类操作提交前的公共检查
func (l *Loop) prepare(c *Completion, op OpKind, ctx interface{}, callback Callback, fd int) error {

	if l.closed {
		return ErrShutdown
	}
	if callback == nil {
		return ErrInvalidArgument
	}
	if fd < 0 {
		return ErrBadFileDescriptor
	}
	if err := c.reset(op, ctx, callback); err != nil {
		return err
	}
	c.fd = fd

	return nil
}

//enqueue 进入unqueued队列，下一轮迭代尝试
func (l *Loop) enqueue(c *Completion) {
	c.state = stateUnqueued
	l.unqueued.push(c)
	l.active++
}
