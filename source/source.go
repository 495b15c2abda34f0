// Package source 定义测量来源边界：对象属性历史从哪里来。
//
// 表格文本解析与列名后缀约定（ID_<k>、<attr>_<k>）不在此层：TableSource 接收
// 已解析好的 core.Table；FeastSource 从 Feast 特征库在线拉取；CachedSource
// 给任意来源叠加一层 KV 快照缓存。
package source

import (
	"context"

	"github.com/rushteam/bagkit/core"
)

// Source 是测量来源接口：按对象返回其全部历史测量。
type Source interface {
	Name() string
	History(ctx context.Context, objectID string, attrs []string) (*core.ObjectHistory, error)
}

// TableSource 从内存中的比赛表汇总对象历史，是训练场景的默认来源。
type TableSource struct {
	Table *core.Table
}

func (s *TableSource) Name() string { return "table" }

func (s *TableSource) History(ctx context.Context, objectID string, attrs []string) (*core.ObjectHistory, error) {
	return s.Table.History(objectID)
}

var _ Source = (*TableSource)(nil)
