package aio

import (
	_ "unsafe"
)

//go:noescape
//go:linkname nanotime runtime.nanotime
func nanotime() int64

//Now 返回单调时钟的纳秒时间戳，不受系统时间调整影响
func Now() int64 {
	return nanotime()
}
