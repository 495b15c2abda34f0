package core

import "context"

// KeyValueStore 是字节级 KV 存储接口，用于缓存对象测量历史等可序列化快照。
// 实现见 store 包（memory / redis）。
type KeyValueStore interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error
}
