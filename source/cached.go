package source

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rushteam/bagkit/core"
)

// CachedSource 给任意测量来源叠加一层 KV 快照缓存：
// 命中则跳过底层来源（远程来源如 Feast 的一次往返），未命中则回源并写缓存。
// 历史快照以 JSON 序列化，键包含对象 ID 与属性集哈希。
type CachedSource struct {
	Source Source
	Store  core.KeyValueStore
	// TTLSeconds 为缓存过期秒数，0 表示不过期
	TTLSeconds int
}

func (s *CachedSource) Name() string { return "cached(" + s.Source.Name() + ")" }

func (s *CachedSource) History(ctx context.Context, objectID string, attrs []string) (*core.ObjectHistory, error) {
	key := s.cacheKey(objectID, attrs)

	if data, err := s.Store.Get(ctx, key); err == nil {
		var h core.ObjectHistory
		if err := json.Unmarshal(data, &h); err == nil {
			return &h, nil
		}
		// 快照损坏：当作未命中回源
	}

	h, err := s.Source.History(ctx, objectID, attrs)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(h); err == nil {
		// 缓存写入失败不影响本次结果
		_ = s.Store.Set(ctx, key, data, s.TTLSeconds)
	}
	return h, nil
}

func (s *CachedSource) cacheKey(objectID string, attrs []string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.Join(attrs, ",")))
	return fmt.Sprintf("bagkit:history:%s:%d", objectID, h.Sum32())
}

var _ Source = (*CachedSource)(nil)
