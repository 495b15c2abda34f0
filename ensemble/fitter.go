package ensemble

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/dist"
)

// JointPriorKey 是联合建模（dependent=true）时在 Priors 中查找先验的属性键。
const JointPriorKey = "*"

// Fitter 是模型拟合编排器：按对象切分比赛表，套用可选时间加权，
// 再按 ModelSpec 选出的族对每个对象产出 numDraws 次独立后验抽样。
type Fitter struct {
	Spec      ModelSpec
	Priors    map[string]map[string]*dist.Prior // 对象 ID -> 属性名 -> 先验；缺省为零信息
	Weighting *Weighting
	Seed      uint64
}

// FitAll 为表中每个对象各拟合一个大小为 numDraws 的集成。
func (f *Fitter) FitAll(t *core.Table, numDraws int) (map[string]*Ensemble, error) {
	if err := f.Spec.Validate(t.Attributes); err != nil {
		return nil, err
	}
	out := make(map[string]*Ensemble)
	for _, id := range t.Objects() {
		e, err := f.FitObject(t, id, numDraws)
		if err != nil {
			return nil, err
		}
		out[id] = e
	}
	return out, nil
}

// FitObject 为单个对象拟合集成；对象从未出现在表中是数据不足错误。
func (f *Fitter) FitObject(t *core.Table, objectID string, numDraws int) (*Ensemble, error) {
	if err := f.Spec.Validate(t.Attributes); err != nil {
		return nil, err
	}
	h, err := t.History(objectID)
	if err != nil {
		return nil, err
	}
	return f.FitHistory(h, numDraws, rand.NewSource(f.sourceSeed(objectID)))
}

// FitFrom 以按对象派生的默认随机源拟合一份测量历史（来自任意 source 实现）。
func (f *Fitter) FitFrom(h *core.ObjectHistory, numDraws int) (*Ensemble, error) {
	if err := f.Spec.Validate(h.Attrs); err != nil {
		return nil, err
	}
	return f.FitHistory(h, numDraws, rand.NewSource(f.sourceSeed(h.ObjectID)))
}

// FitHistory 直接从一份测量历史拟合集成。
// draw 对齐不变量：第 i 个对象模型完全由各属性族的第 i 次抽样组装而成。
func (f *Fitter) FitHistory(h *core.ObjectHistory, numDraws int, src rand.Source) (*Ensemble, error) {
	if numDraws < 1 {
		return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeInvalidInput,
			fmt.Sprintf("num_draws must be >= 1, got %d", numDraws))
	}

	if f.Spec.Custom != nil {
		draws, err := f.Spec.Custom(h, numDraws, src)
		if err != nil {
			return nil, core.WrapCallableError(core.ModuleEnsemble,
				fmt.Sprintf("custom fitter failed for object %q: %v", h.ObjectID, err), err)
		}
		if len(draws) != numDraws {
			return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeCallable,
				fmt.Sprintf("custom fitter returned %d object models, want %d", len(draws), numDraws))
		}
		return NewEnsemble(h.ObjectID, draws)
	}

	weights := f.Weighting.weights(h.Times)

	if f.Spec.Dependent {
		return f.fitJoint(h, weights, numDraws, src)
	}
	return f.fitIndependent(h, weights, numDraws, src)
}

func (f *Fitter) fitIndependent(h *core.ObjectHistory, weights []float64, numDraws int, src rand.Source) (*Ensemble, error) {
	// 属性 -> numDraws 个模型
	perAttr := make([][]dist.Model, len(h.Attrs))
	for i, attr := range h.Attrs {
		family, err := f.Spec.familyFor(attr)
		if err != nil {
			return nil, err
		}
		values, err := h.Column(attr)
		if err != nil {
			return nil, err
		}
		models, err := family.Fit(dist.Observations{Values: values, Weights: weights},
			numDraws, f.prior(h.ObjectID, attr), src)
		if err != nil {
			return nil, err
		}
		if len(models) != numDraws {
			return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeCallable,
				fmt.Sprintf("family %s returned %d models, want %d", family.Name(), len(models), numDraws))
		}
		perAttr[i] = models
	}

	draws := make([]*ObjectModel, numDraws)
	for d := 0; d < numDraws; d++ {
		om := NewObjectModel(h.ObjectID)
		for i, attr := range h.Attrs {
			if err := om.AddModel([]string{attr}, perAttr[i][d]); err != nil {
				return nil, err
			}
		}
		draws[d] = om
	}
	return NewEnsemble(h.ObjectID, draws)
}

func (f *Fitter) fitJoint(h *core.ObjectHistory, weights []float64, numDraws int, src rand.Source) (*Ensemble, error) {
	name := f.Spec.Family
	if name == "" {
		name = "mvnormal"
	}
	family, err := dist.LookupVector(name)
	if err != nil {
		return nil, err
	}
	models, err := family.FitVector(dist.VectorObservations{
		Attrs:   h.Attrs,
		Rows:    h.Rows,
		Weights: weights,
	}, numDraws, f.prior(h.ObjectID, JointPriorKey), src)
	if err != nil {
		return nil, err
	}
	draws := make([]*ObjectModel, numDraws)
	for d := 0; d < numDraws; d++ {
		om := NewObjectModel(h.ObjectID)
		if err := om.AddModel(h.Attrs, models[d]); err != nil {
			return nil, err
		}
		draws[d] = om
	}
	return NewEnsemble(h.ObjectID, draws)
}

func (f *Fitter) prior(objectID, attr string) *dist.Prior {
	if f.Priors == nil {
		return nil
	}
	return f.Priors[objectID][attr]
}

// sourceSeed 为每个对象派生独立的随机种子，避免并行分支共享抽样序列。
func (f *Fitter) sourceSeed(objectID string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range []byte(objectID) {
		h ^= uint64(c)
		h *= prime64
	}
	return h ^ f.Seed
}
