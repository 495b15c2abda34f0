package source

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/bagkit/core"
)

// FeastSource 从 Feast Feature Store 在线拉取对象的属性测量历史。
//
// 约定：每个属性对应一个特征引用 <FeatureView>:<attr>，其在线值为该对象的
// 测量序列（double list）；标量值视为长度为 1 的序列。实体行以 EntityKey
// 为键、对象 ID 为值。各属性序列按位置对齐，长度不一时截断到最短。
//
// Feast 在线存储只保留最新物化结果，不带时间戳，因此 Times 为空，
// 时间加权对该来源不生效。
type FeastSource struct {
	client *feastsdk.GrpcClient

	// Project 项目名称
	Project string
	// FeatureView 属性所在的特征视图名
	FeatureView string
	// EntityKey 实体键名（如 "team_id"）
	EntityKey string
}

// NewFeastSource 连接 Feast Feature Server 并返回测量来源。
func NewFeastSource(host string, port int, project, featureView, entityKey string) (*FeastSource, error) {
	if port == 0 {
		port = 6565 // 默认 gRPC 端口
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast: %w", err)
	}
	return &FeastSource{
		client:      client,
		Project:     project,
		FeatureView: featureView,
		EntityKey:   entityKey,
	}, nil
}

func (s *FeastSource) Name() string { return "feast" }

func (s *FeastSource) History(ctx context.Context, objectID string, attrs []string) (*core.ObjectHistory, error) {
	if len(attrs) == 0 {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeSchema,
			"no attributes requested")
	}
	features := make([]string, len(attrs))
	for i, attr := range attrs {
		features[i] = fmt.Sprintf("%s:%s", s.FeatureView, attr)
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: []feastsdk.Row{{s.EntityKey: feastsdk.StrVal(objectID)}},
		Project:  s.Project,
	}
	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}
	rows := resp.Rows()
	if len(rows) != 1 {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeSchema,
			fmt.Sprintf("feast returned %d rows for one entity", len(rows)))
	}

	// 每个属性一条序列，按位置对齐
	series := make([][]float64, len(attrs))
	minLen := -1
	for i, ref := range features {
		val, ok := rows[0][ref]
		if !ok {
			// 有的部署返回不带视图前缀的特征名
			val, ok = rows[0][attrs[i]]
		}
		if !ok || val == nil {
			return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeInsufficientData,
				fmt.Sprintf("object %q has no feature %q", objectID, ref))
		}
		series[i] = valueSeries(val)
		if len(series[i]) == 0 {
			return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeInsufficientData,
				fmt.Sprintf("object %q has an empty series for %q", objectID, ref))
		}
		if minLen < 0 || len(series[i]) < minLen {
			minLen = len(series[i])
		}
	}

	h := &core.ObjectHistory{ObjectID: objectID, Attrs: attrs}
	for r := 0; r < minLen; r++ {
		row := make([]float64, len(attrs))
		for c := range attrs {
			row[c] = series[c][r]
		}
		h.Rows = append(h.Rows, row)
	}
	return h, nil
}

// valueSeries 把 Feast 值转为测量序列：list 类型展开，标量视为单元素序列。
func valueSeries(v *feasttypes.Value) []float64 {
	switch {
	case v.GetDoubleListVal() != nil:
		return v.GetDoubleListVal().GetVal()
	case v.GetFloatListVal() != nil:
		fs := v.GetFloatListVal().GetVal()
		out := make([]float64, len(fs))
		for i, f := range fs {
			out[i] = float64(f)
		}
		return out
	case v.GetInt64ListVal() != nil:
		is := v.GetInt64ListVal().GetVal()
		out := make([]float64, len(is))
		for i, n := range is {
			out[i] = float64(n)
		}
		return out
	case v.GetInt32ListVal() != nil:
		is := v.GetInt32ListVal().GetVal()
		out := make([]float64, len(is))
		for i, n := range is {
			out[i] = float64(n)
		}
		return out
	default:
		// 标量
		switch x := v.GetVal().(type) {
		case *feasttypes.Value_DoubleVal:
			return []float64{x.DoubleVal}
		case *feasttypes.Value_FloatVal:
			return []float64{float64(x.FloatVal)}
		case *feasttypes.Value_Int64Val:
			return []float64{float64(x.Int64Val)}
		case *feasttypes.Value_Int32Val:
			return []float64{float64(x.Int32Val)}
		default:
			return nil
		}
	}
}

var _ Source = (*FeastSource)(nil)
