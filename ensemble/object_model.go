// Package ensemble 实现对象模型的拟合编排：按对象切分比赛表、可选时间加权、
// 解析 model_spec 并产出每个对象的 N 次独立后验抽样（第一层集成）。
package ensemble

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/dist"
)

// ObjectModel 是一个对象在一次后验抽样下的全部属性模型：
// 属性名到 dist.Model 的有序映射（联合模型以一个条目覆盖多个属性名）。
//
// 不变量：键唯一、只增不改；Freeze 后不可再变，交给 Ensemble 之后不再原地修改。
type ObjectModel struct {
	objectID string
	order    []string // 属性追加顺序，决定特征列顺序
	groups   []modelGroup
	index    map[string]groupRef
	frozen   bool
}

type modelGroup struct {
	names []string
	model dist.Model
}

type groupRef struct {
	group  int // groups 下标
	offset int // 属性在联合模型向量中的维度下标
}

// NewObjectModel 创建一个空的对象模型。
func NewObjectModel(objectID string) *ObjectModel {
	return &ObjectModel{
		objectID: objectID,
		index:    make(map[string]groupRef),
	}
}

// ObjectID 返回所属对象的标识。
func (om *ObjectModel) ObjectID() string { return om.objectID }

// AddModel 以给定属性名挂载一个属性模型；联合模型传入其覆盖的全部属性名（按维度顺序）。
// 重复键、维数不匹配或已冻结均返回 schema 错误。
func (om *ObjectModel) AddModel(names []string, m dist.Model) error {
	if om.frozen {
		return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
			fmt.Sprintf("object model %q is frozen", om.objectID))
	}
	if len(names) == 0 || m == nil {
		return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
			"attribute names and model are required")
	}
	if m.Dim() != len(names) {
		return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
			fmt.Sprintf("model dim %d does not match %d attribute names", m.Dim(), len(names)))
	}
	for _, name := range names {
		if _, ok := om.index[name]; ok {
			return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
				fmt.Sprintf("attribute %q already present on object %q", name, om.objectID))
		}
	}
	g := len(om.groups)
	om.groups = append(om.groups, modelGroup{names: names, model: m})
	for i, name := range names {
		om.index[name] = groupRef{group: g, offset: i}
		om.order = append(om.order, name)
	}
	return nil
}

// Freeze 封存对象模型，此后 AddModel 报错。
func (om *ObjectModel) Freeze() { om.frozen = true }

// Attributes 返回属性名（追加顺序）。
func (om *ObjectModel) Attributes() []string { return om.order }

// Model 返回覆盖指定属性的模型。
func (om *ObjectModel) Model(name string) (dist.Model, bool) {
	ref, ok := om.index[name]
	if !ok {
		return nil, false
	}
	return om.groups[ref.group].model, true
}

// Mean 将 mean 查询广播到每个属性模型，按属性名返回边际均值。
func (om *ObjectModel) Mean() map[string]float64 {
	out := make(map[string]float64, len(om.order))
	for name, ref := range om.index {
		out[name] = om.groups[ref.group].model.Mean()[ref.offset]
	}
	return out
}

// Variance 按属性名返回边际方差。
func (om *ObjectModel) Variance() map[string]float64 {
	out := make(map[string]float64, len(om.order))
	for name, ref := range om.index {
		out[name] = om.groups[ref.group].model.Variance()[ref.offset]
	}
	return out
}

// SampleRow 从每个属性模型抽取一组实现值；联合模型整体抽一次再按维度拆开，
// 保证联合属性间的相关性不被打散。
func (om *ObjectModel) SampleRow(src rand.Source) map[string]float64 {
	out := make(map[string]float64, len(om.order))
	for g := range om.groups {
		row := om.groups[g].model.Sample(1, src)[0]
		for i, name := range om.groups[g].names {
			out[name] = row[i]
		}
	}
	return out
}

// Quantile 按属性名返回 q 分位点；任何一个属性模型不支持分位函数即报错。
func (om *ObjectModel) Quantile(q float64) (map[string]float64, error) {
	out := make(map[string]float64, len(om.order))
	for g := range om.groups {
		qm, ok := om.groups[g].model.(dist.Quantiler)
		if !ok {
			return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
				fmt.Sprintf("model for attributes %v does not expose a quantile function", om.groups[g].names))
		}
		row := qm.Quantile(q)
		for i, name := range om.groups[g].names {
			out[name] = row[i]
		}
	}
	return out, nil
}
