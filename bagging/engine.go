// Package bagging 实现第二层集成的训练编排：对第一层的每次抽样变换出一张
// 训练表并训练一个预测模型，得到 num_models 个袋装模型。
package bagging

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
	"github.com/rushteam/bagkit/pkg/randutil"
	"github.com/rushteam/bagkit/transform"
)

// Engine 是袋装训练引擎。各次 draw 之间无共享可变状态，训练循环并发执行，
// 每个分支使用独立派生的随机源。
type Engine struct {
	Fitter    *ensemble.Fitter
	Rule      transform.Rule
	Trainer   core.Trainer
	NumModels int
	// MaxConcurrent 限制并发训练数（0 表示无限制）
	MaxConcurrent int
	Seed          uint64
}

// Result 是一次 Build 的产物：num_models 个袋装模型（下标即 draw 序号）、
// 复用的第一层集成，以及训练表的列布局。
type Result struct {
	Models    []core.TrainedModel
	Ensembles map[string]*ensemble.Ensemble
	Columns   []string
}

// Build 执行完整的袋装训练：
//
//  1. 对每个对象一次性拟合大小为 NumModels 的集成（循环内复用，不重复拟合）
//  2. 对 draw i：用每个对象集成的第 i 个对象模型变换全部历史比赛，得到一张
//     与历史表等行数的训练表（draw 对齐不变量：序号间不得串用）
//  3. 调用 Trainer 训练并按序号存放
func (e *Engine) Build(ctx context.Context, table *core.Table) (*Result, error) {
	if e.NumModels < 1 {
		return nil, core.NewDomainError(core.ModuleBagging, core.ErrorCodeInvalidInput,
			fmt.Sprintf("num_models must be >= 1, got %d", e.NumModels))
	}
	if len(table.Matches) == 0 {
		return nil, core.NewDomainError(core.ModuleBagging, core.ErrorCodeInvalidInput,
			"historical table is empty")
	}
	for i, m := range table.Matches {
		if m.Outcome == nil {
			return nil, core.NewDomainError(core.ModuleBagging, core.ErrorCodeSchema,
				fmt.Sprintf("match %d has no outcome; training requires y on every row", i))
		}
	}

	ensembles, err := e.Fitter.FitAll(table, e.NumModels)
	if err != nil {
		return nil, err
	}

	models := make([]core.TrainedModel, e.NumModels)
	var (
		mu      sync.Mutex
		columns []string
	)

	eg, gctx := errgroup.WithContext(ctx)
	if e.MaxConcurrent > 0 {
		eg.SetLimit(e.MaxConcurrent)
	}
	for i := 0; i < e.NumModels; i++ {
		draw := i
		eg.Go(func() error {
			src := randutil.Split(e.Seed, draw)
			tt, err := e.buildTrainingTable(table, ensembles, draw, src)
			if err != nil {
				return err
			}

			mu.Lock()
			if columns == nil {
				columns = tt.Columns
			} else if err := sameColumns(columns, tt.Columns); err != nil {
				mu.Unlock()
				return err
			}
			mu.Unlock()

			model, err := e.Trainer(gctx, tt)
			if err != nil {
				return core.WrapCallableError(core.ModuleBagging,
					fmt.Sprintf("trainer failed on draw %d: %v", draw+1, err), err)
			}
			models[draw] = model
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Result{Models: models, Ensembles: ensembles, Columns: columns}, nil
}

// buildTrainingTable 用各对象集成的第 draw 个对象模型变换全部历史比赛。
func (e *Engine) buildTrainingTable(table *core.Table, ensembles map[string]*ensemble.Ensemble,
	draw int, src rand.Source) (*core.TrainingTable, error) {

	tt := &core.TrainingTable{
		Rows:    make([][]float64, 0, len(table.Matches)),
		Outcome: make([]float64, 0, len(table.Matches)),
	}
	for mi, m := range table.Matches {
		slots := make([]*ensemble.ObjectModel, len(m.Slots))
		for k, s := range m.Slots {
			ens, ok := ensembles[s.ObjectID]
			if !ok {
				return nil, core.NewDomainError(core.ModuleBagging, core.ErrorCodeInsufficientData,
					fmt.Sprintf("no ensemble for object %q in match %d", s.ObjectID, mi))
			}
			slots[k] = ens.Draw(draw)
		}
		values, cols, err := e.Rule.Apply(slots, src)
		if err != nil {
			return nil, err
		}
		if tt.Columns == nil {
			tt.Columns = cols
		} else if err := sameColumns(tt.Columns, cols); err != nil {
			return nil, err
		}
		tt.Rows = append(tt.Rows, values)
		tt.Outcome = append(tt.Outcome, *m.Outcome)
	}
	return tt, nil
}

func sameColumns(want, got []string) error {
	if len(want) != len(got) {
		return core.NewDomainError(core.ModuleBagging, core.ErrorCodeSchema,
			fmt.Sprintf("inconsistent feature columns: %d vs %d", len(want), len(got)))
	}
	for i := range want {
		if want[i] != got[i] {
			return core.NewDomainError(core.ModuleBagging, core.ErrorCodeSchema,
				fmt.Sprintf("inconsistent feature column %d: %q vs %q", i, want[i], got[i]))
		}
	}
	return nil
}
