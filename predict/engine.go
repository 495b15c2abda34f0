// Package predict 实现预测编排：为新比赛的参与对象重新拟合集成，
// 变换出 num_test_draws 个特征向量，并用每个袋装模型评估每个向量，
// 产出带来源索引的完整 N×K 预测网格。
package predict

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
	"github.com/rushteam/bagkit/pkg/randutil"
	"github.com/rushteam/bagkit/source"
	"github.com/rushteam/bagkit/transform"
)

// Engine 是预测引擎。N×K 双重循环的各次迭代之间无共享可变状态，
// 并发执行，结果按 (j,k) 行主序收集。
type Engine struct {
	Fitter       *ensemble.Fitter
	Rule         transform.Rule
	Predictor    core.Predictor
	NumTestDraws int
	// MaxConcurrent 限制并发预测数（0 表示无限制）
	MaxConcurrent int
	Seed          uint64

	// Histories 非 nil 时改从该来源拉取对象历史（如 Feast / 带缓存的来源），
	// 此时 Predict 的 hist 参数仅提供属性集，可为 nil 并改用 Attributes
	Histories  source.Source
	Attributes []string

	// 已拟合集成的进程内复用，键为对象 ID；同一引擎对同一历史表多次预测时命中
	mu    sync.Mutex
	cache map[string]*ensemble.Ensemble
}

// Predict 对一场结果未知的新比赛产出完整预测网格。
//
//   - 为新比赛的每个参与对象重新拟合（或复用缓存的）大小为 NumTestDraws 的集成，
//     只使用该对象的历史测量：新比赛本身不提供任何测量
//   - 对 draw k 变换出特征向量 k，再对每个 (j,k) 调用 Predictor
//   - 返回恰好 len(models)×NumTestDraws 条记录，按 (j,k) 行主序，索引 1 起始
func (e *Engine) Predict(ctx context.Context, models []core.TrainedModel,
	hist *core.Table, newMatch core.Match) ([]core.PredictionRecord, error) {

	numModels := len(models)
	if numModels == 0 {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			"no trained models to evaluate")
	}
	if e.NumTestDraws < 1 {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			fmt.Sprintf("num_test_draws must be >= 1, got %d", e.NumTestDraws))
	}
	if len(newMatch.Slots) == 0 {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeSchema,
			"new match has no participant slots")
	}
	if hist == nil && e.Histories == nil {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			"no measurement source: need a historical table or a Histories source")
	}

	// 为每个席位对象取得集成；对象从未出现在历史表中是数据不足错误，
	// 不做静默的默认分布
	slotEnsembles := make([]*ensemble.Ensemble, len(newMatch.Slots))
	for k, s := range newMatch.Slots {
		ens, err := e.ensembleFor(ctx, hist, s.ObjectID)
		if err != nil {
			return nil, err
		}
		slotEnsembles[k] = ens
	}

	// 特征向量按 draw k 构建一次，之后每个模型都评估同一组向量
	vectors := make([][]float64, e.NumTestDraws)
	var columns []string
	for k := 0; k < e.NumTestDraws; k++ {
		slots := make([]*ensemble.ObjectModel, len(slotEnsembles))
		for i, ens := range slotEnsembles {
			slots[i] = ens.Draw(k)
		}
		values, cols, err := e.Rule.Apply(slots, randutil.Split(e.Seed, k))
		if err != nil {
			return nil, err
		}
		if columns == nil {
			columns = cols
		}
		vectors[k] = values
	}

	records := make([]core.PredictionRecord, numModels*e.NumTestDraws)
	eg, gctx := errgroup.WithContext(ctx)
	if e.MaxConcurrent > 0 {
		eg.SetLimit(e.MaxConcurrent)
	}
	for j := 0; j < numModels; j++ {
		for k := 0; k < e.NumTestDraws; k++ {
			j, k := j, k
			eg.Go(func() error {
				features := &core.FeatureTable{Columns: columns, Rows: [][]float64{vectors[k]}}
				preds, err := e.Predictor(gctx, models[j], features)
				if err != nil {
					return core.WrapCallableError(core.ModulePredict,
						fmt.Sprintf("predictor failed on bagged model %d, test set %d: %v", j+1, k+1, err), err)
				}
				records[j*e.NumTestDraws+k] = core.PredictionRecord{
					Predictions:      preds,
					BaggedModelIndex: j + 1,
					TestSetIndex:     k + 1,
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// ensembleFor 返回对象的测试集成，优先命中进程内缓存。
func (e *Engine) ensembleFor(ctx context.Context, hist *core.Table, objectID string) (*ensemble.Ensemble, error) {
	e.mu.Lock()
	if ens, ok := e.cache[objectID]; ok && ens.Len() == e.NumTestDraws {
		e.mu.Unlock()
		return ens, nil
	}
	e.mu.Unlock()

	var (
		ens *ensemble.Ensemble
		err error
	)
	if e.Histories != nil {
		attrs := e.Attributes
		if attrs == nil && hist != nil {
			attrs = hist.Attributes
		}
		var h *core.ObjectHistory
		h, err = e.Histories.History(ctx, objectID, attrs)
		if err != nil {
			return nil, err
		}
		ens, err = e.Fitter.FitFrom(h, e.NumTestDraws)
	} else {
		ens, err = e.Fitter.FitObject(hist, objectID, e.NumTestDraws)
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]*ensemble.Ensemble)
	}
	e.cache[objectID] = ens
	e.mu.Unlock()
	return ens, nil
}

// InvalidateCache 清空已拟合集成的复用缓存（历史表变更后调用）。
func (e *Engine) InvalidateCache() {
	e.mu.Lock()
	e.cache = nil
	e.mu.Unlock()
}
