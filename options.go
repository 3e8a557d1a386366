package aio

//Options 可选项配置，未配置时使用默认值
type Options struct {
	Entries uint32 // 内核事件缓冲区和超时堆的初始大小，默认：128
	Flags   uint32 // 预留
}

type Option = func(opts *Options)

//parseOption 解析可选项
func parseOption(opts ...Option) *Options {
	options := &Options{
		Entries: 128,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Entries == 0 {
		options.Entries = 128
	}

	return options
}

//WithEntries 事件缓冲区大小配置
func WithEntries(entries uint32) Option {
	return func(opts *Options) {
		opts.Entries = entries
	}
}

//WithFlags 预留的标志位配置
func WithFlags(flags uint32) Option {
	return func(opts *Options) {
		opts.Flags = flags
	}
}
