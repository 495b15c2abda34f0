package ensemble

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/dist"
)

// CustomFitter 是完全自定义的拟合回调：接收一个对象的测量历史与 draw 数，
// 返回与 Ensemble 兼容的对象模型序列。引擎只约束输入输出形状，不解读内部逻辑。
type CustomFitter func(h *core.ObjectHistory, numDraws int, src rand.Source) ([]*ObjectModel, error)

// ModelSpec 选择属性模型族，四种形态按优先级解析：
//
//  1. Custom 非 nil：整个拟合交给自定义回调
//  2. Dependent 为 true：全部属性交给一个多元族（Family 为多元族名，默认 mvnormal）
//  3. PerAttr 非空：属性名 -> 族名逐一指定（可与 Family 混用，Family 作为缺省）
//  4. 仅 Family：单一族名全属性统一适用
type ModelSpec struct {
	Family    string
	PerAttr   map[string]string
	Dependent bool
	Custom    CustomFitter
}

// Validate 在任何拟合开始前校验族名与属性引用，schema 错误立即报出。
func (s ModelSpec) Validate(attrs []string) error {
	if s.Custom != nil {
		return nil
	}
	if s.Dependent {
		name := s.Family
		if name == "" {
			name = "mvnormal"
		}
		_, err := dist.LookupVector(name)
		return err
	}
	attrSet := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		attrSet[a] = true
	}
	for attr, family := range s.PerAttr {
		if !attrSet[attr] {
			return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
				fmt.Sprintf("model_spec references attribute %q absent from the data (have %v)", attr, attrs))
		}
		if _, err := dist.Lookup(family); err != nil {
			return err
		}
	}
	if s.Family != "" {
		if _, err := dist.Lookup(s.Family); err != nil {
			return err
		}
	}
	if s.Family == "" && len(s.PerAttr) == 0 {
		return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
			"model_spec is empty: need a family name, a per-attribute mapping, a dependent descriptor, or a custom fitter")
	}
	if len(s.PerAttr) > 0 && s.Family == "" {
		// 逐属性指定时必须覆盖全部属性
		for _, a := range attrs {
			if _, ok := s.PerAttr[a]; !ok {
				return core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeSchema,
					fmt.Sprintf("attribute %q has no family in model_spec and no default family", a))
			}
		}
	}
	return nil
}

// familyFor 返回属性适用的一元族。
func (s ModelSpec) familyFor(attr string) (dist.Family, error) {
	if name, ok := s.PerAttr[attr]; ok {
		return dist.Lookup(name)
	}
	return dist.Lookup(s.Family)
}
