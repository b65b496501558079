package dependency

import "time"

type Options struct {
	Timeout    time.Duration
	Retries    uint64
	RetryDelay time.Duration
}

type Option func(*Options)

// Timeout bounds a single HTTP request. The default is 5 seconds.
func Timeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// Retries sets how many times a probe is retried after a transport error before the
// dependency is reported unavailable. The default is 2.
func Retries(n uint64) Option {
	return func(o *Options) {
		o.Retries = n
	}
}

// RetryDelay sets the pause between two probe retries. The default is 200ms.
func RetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

func NewOptions(opts ...Option) *Options {
	o := &Options{
		Timeout:    5 * time.Second,
		Retries:    2,
		RetryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
