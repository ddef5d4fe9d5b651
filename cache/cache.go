package cache

import (
	"strings"
	"time"

	"github.com/Kaguya154/dbmodel/types"
)

// DefaultTTL 是未指定过期时间时的默认值
const DefaultTTL = 300 * time.Second

type options struct {
	namespace string
	ttl       time.Duration
	clock     types.Clock
}

// Option 配置缓存实现
type Option func(*options)

// WithNamespace 为所有键加上 "namespace-" 前缀
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithTTL 设置过期时间，<= 0 时使用 DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock 替换时间源，测试用
func WithClock(c types.Clock) Option {
	return func(o *options) { o.clock = c }
}

func newOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, clock: types.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		o.ttl = DefaultTTL
	}
	if o.clock == nil {
		o.clock = types.SystemClock
	}
	return o
}

// key 规范化键：命名空间前缀 + 大写
func (o options) key(k string) string {
	k = strings.ToUpper(k)
	if o.namespace == "" {
		return k
	}
	return o.namespace + "-" + k
}

func cloneRecords(in []*types.Record) []*types.Record {
	if in == nil {
		return nil
	}
	out := make([]*types.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
