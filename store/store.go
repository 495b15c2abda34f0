// Package store 提供 core.KeyValueStore 的实现，用于缓存对象测量历史等
// 可序列化快照（见 source.CachedSource）。
//
// 注意：接口定义在 core 包，此包只包含实现。
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
package store
