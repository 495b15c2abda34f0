// Package transform 实现特征变换：把一场比赛各席位的对象模型映射为数值特征向量。
//
// 列顺序是硬性契约：训练某个模型用的表和之后查询它的每张表必须逐列一致。
// 内置规则按「席位顺序 × 属性追加顺序」展开，列名为 <attr>_<slot>_<suffix>
//（席位序号 1 起始），与外部输入层的列名约定自然衔接。
package transform

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
)

// Rule 是变换规则接口。
// means / quantile 是确定性的；sample 每次调用重新抽样，刻意捕捉第二层的抽样不确定性。
// 无论是否随机，同一输入下返回的列名与列数必须恒定。
type Rule interface {
	Name() string
	// Apply 把各席位的对象模型（席位顺序）变换为一行特征值及其列名。
	Apply(slots []*ensemble.ObjectModel, src rand.Source) (values []float64, columns []string, err error)
}

// expand 按席位、属性顺序展开 per-slot 的取值映射，生成值与列名。
func expand(slots []*ensemble.ObjectModel, suffix string,
	get func(om *ensemble.ObjectModel) (map[string]float64, error)) ([]float64, []string, error) {

	var values []float64
	var columns []string
	for k, om := range slots {
		if om == nil {
			return nil, nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
				fmt.Sprintf("slot %d has no object model", k+1))
		}
		byAttr, err := get(om)
		if err != nil {
			return nil, nil, err
		}
		for _, attr := range om.Attributes() {
			values = append(values, byAttr[attr])
			columns = append(columns, fmt.Sprintf("%s_%d_%s", attr, k+1, suffix))
		}
	}
	return values, columns, nil
}

// Means 规则：拼接每个对象模型每个属性的均值，完全确定。
type Means struct{}

func (Means) Name() string { return "means" }

func (Means) Apply(slots []*ensemble.ObjectModel, _ rand.Source) ([]float64, []string, error) {
	return expand(slots, "mean", func(om *ensemble.ObjectModel) (map[string]float64, error) {
		return om.Mean(), nil
	})
}

// Sample 规则：拼接每个对象模型的单次随机抽样。
// 同一输入两次调用可能得到不同向量，但长度与列语义恒定。
type Sample struct{}

func (Sample) Name() string { return "sample" }

func (Sample) Apply(slots []*ensemble.ObjectModel, src rand.Source) ([]float64, []string, error) {
	return expand(slots, "sample", func(om *ensemble.ObjectModel) (map[string]float64, error) {
		return om.SampleRow(src), nil
	})
}

// Quantile 规则：拼接每个属性分布的 q 分位点，完全确定。
// 要求属性模型实现 dist.Quantiler，否则报 schema 错误。
type Quantile struct {
	Q float64
}

func (r Quantile) Name() string { return fmt.Sprintf("quantile(%v)", r.Q) }

func (r Quantile) Apply(slots []*ensemble.ObjectModel, _ rand.Source) ([]float64, []string, error) {
	if r.Q < 0 || r.Q > 1 {
		return nil, nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeInvalidInput,
			fmt.Sprintf("quantile must be in [0,1], got %v", r.Q))
	}
	suffix := fmt.Sprintf("q%v", r.Q)
	return expand(slots, suffix, func(om *ensemble.ObjectModel) (map[string]float64, error) {
		return om.Quantile(r.Q)
	})
}
