package ensemble

import (
	"fmt"

	"github.com/rushteam/bagkit/core"
)

// Ensemble 是同一对象的恰好 N 个对象模型组成的有序序列，
// 插入顺序即 draw 序号，必须与下游训练/测试集的序号对齐。
type Ensemble struct {
	objectID string
	draws    []*ObjectModel
}

// NewEnsemble 由 N 个对象模型构建集成；任何成员为空或对象不一致均报错。
func NewEnsemble(objectID string, draws []*ObjectModel) (*Ensemble, error) {
	if len(draws) == 0 {
		return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeInvalidInput,
			fmt.Sprintf("ensemble for object %q needs at least one draw", objectID))
	}
	for i, d := range draws {
		if d == nil {
			return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeInvalidInput,
				fmt.Sprintf("ensemble for object %q has nil draw at index %d", objectID, i))
		}
		if d.ObjectID() != objectID {
			return nil, core.NewDomainError(core.ModuleEnsemble, core.ErrorCodeInvalidInput,
				fmt.Sprintf("draw %d belongs to object %q, want %q", i, d.ObjectID(), objectID))
		}
		d.Freeze()
	}
	return &Ensemble{objectID: objectID, draws: draws}, nil
}

// ObjectID 返回所属对象的标识。
func (e *Ensemble) ObjectID() string { return e.objectID }

// Len 返回 draw 数 N。
func (e *Ensemble) Len() int { return len(e.draws) }

// Draw 返回第 i 个（0 起始）对象模型。
func (e *Ensemble) Draw(i int) *ObjectModel { return e.draws[i] }
