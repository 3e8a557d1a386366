package aio

//direction 内核就绪通知的方向
type direction uint8

const (
	readable direction = iota
	writable
)

//pollDesc 同一个fd上每个方向最多挂一个等待中的completion，
//读写同时等待需要两个不同的completion
type pollDesc struct {
	readC  *Completion
	writeC *Completion
	armed  bool // fd是否已注册进内核
}

//empty 两个方向都没有等待者
func (d *pollDesc) empty() bool {
	return d.readC == nil && d.writeC == nil
}
