package predict

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
	"github.com/rushteam/bagkit/source"
	"github.com/rushteam/bagkit/transform"
)

func f64(v float64) *float64 { return &v }

func historyTable() *core.Table {
	return &core.Table{
		Attributes: []string{"P2M"},
		Matches: []core.Match{
			{Outcome: f64(1), Slots: []core.Slot{
				{ObjectID: "A", Values: map[string]float64{"P2M": 10}},
				{ObjectID: "B", Values: map[string]float64{"P2M": 8}},
			}},
			{Outcome: f64(0), Slots: []core.Slot{
				{ObjectID: "A", Values: map[string]float64{"P2M": 6}},
				{ObjectID: "B", Values: map[string]float64{"P2M": 12}},
			}},
		},
	}
}

func upcoming(a, b string) core.Match {
	return core.Match{Slots: []core.Slot{{ObjectID: a}, {ObjectID: b}}}
}

// 预测器返回模型标识，便于核对 (模型, 测试集) 网格的来源
func identityPredictor(_ context.Context, model core.TrainedModel, f *core.FeatureTable) ([]float64, error) {
	return []float64{float64(model.(int))}, nil
}

func TestEngine_Predict_FullGrid(t *testing.T) {
	const numModels, numTestDraws = 3, 4
	eng := &Engine{
		Fitter:       &ensemble.Fitter{Spec: ensemble.ModelSpec{Family: "poisson"}, Seed: 5},
		Rule:         transform.Means{},
		Predictor:    identityPredictor,
		NumTestDraws: numTestDraws,
		Seed:         5,
	}
	models := []core.TrainedModel{1, 2, 3}
	records, err := eng.Predict(context.Background(), models, historyTable(), upcoming("A", "B"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(records) != numModels*numTestDraws {
		t.Fatalf("got %d records, want %d", len(records), numModels*numTestDraws)
	}

	// 每个 (j,k) 组合恰好出现一次，索引 1 起始，行主序
	seen := make(map[[2]int]bool)
	for i, r := range records {
		key := [2]int{r.BaggedModelIndex, r.TestSetIndex}
		if seen[key] {
			t.Errorf("duplicate record for model %d, test set %d", r.BaggedModelIndex, r.TestSetIndex)
		}
		seen[key] = true
		if r.BaggedModelIndex < 1 || r.BaggedModelIndex > numModels {
			t.Errorf("record %d: bagged model index %d out of range", i, r.BaggedModelIndex)
		}
		if r.TestSetIndex < 1 || r.TestSetIndex > numTestDraws {
			t.Errorf("record %d: test set index %d out of range", i, r.TestSetIndex)
		}
		wantPos := (r.BaggedModelIndex-1)*numTestDraws + (r.TestSetIndex - 1)
		if i != wantPos {
			t.Errorf("record for (%d,%d) at position %d, want %d", r.BaggedModelIndex, r.TestSetIndex, i, wantPos)
		}
		// 预测值携带模型标识，确认 (j,k) 调用了正确的模型
		if len(r.Predictions) != 1 || int(r.Predictions[0]) != r.BaggedModelIndex {
			t.Errorf("record (%d,%d): predictions = %v", r.BaggedModelIndex, r.TestSetIndex, r.Predictions)
		}
	}
	if len(seen) != numModels*numTestDraws {
		t.Errorf("saw %d distinct (j,k) pairs, want %d", len(seen), numModels*numTestDraws)
	}
}

func TestEngine_Predict_Validation(t *testing.T) {
	eng := &Engine{
		Fitter:       &ensemble.Fitter{Spec: ensemble.ModelSpec{Family: "poisson"}},
		Rule:         transform.Means{},
		Predictor:    identityPredictor,
		NumTestDraws: 2,
	}

	if _, err := eng.Predict(context.Background(), nil, historyTable(), upcoming("A", "B")); err == nil {
		t.Error("want error for empty model list")
	}

	zero := &Engine{Fitter: eng.Fitter, Rule: eng.Rule, Predictor: eng.Predictor}
	if _, err := zero.Predict(context.Background(), []core.TrainedModel{1}, historyTable(), upcoming("A", "B")); err == nil {
		t.Error("want error for num_test_draws = 0")
	}

	if _, err := eng.Predict(context.Background(), []core.TrainedModel{1}, historyTable(), core.Match{}); !core.IsSchema(err) {
		t.Error("want schema error for match without slots")
	}

	// 既无历史表也无测量来源：报错而不是崩溃
	if _, err := eng.Predict(context.Background(), []core.TrainedModel{1}, nil, upcoming("A", "B")); err == nil {
		t.Error("want error when no measurement source is available")
	}
}

func TestEngine_Predict_UnknownObject(t *testing.T) {
	eng := &Engine{
		Fitter:       &ensemble.Fitter{Spec: ensemble.ModelSpec{Family: "poisson"}},
		Rule:         transform.Means{},
		Predictor:    identityPredictor,
		NumTestDraws: 2,
	}
	_, err := eng.Predict(context.Background(), []core.TrainedModel{1}, historyTable(), upcoming("A", "C"))
	if !core.IsInsufficientData(err) {
		t.Errorf("want insufficient data error, got %v", err)
	}
}

func TestEngine_Predict_PredictorError(t *testing.T) {
	boom := errors.New("model is not fitted")
	eng := &Engine{
		Fitter: &ensemble.Fitter{Spec: ensemble.ModelSpec{Family: "poisson"}},
		Rule:   transform.Means{},
		Predictor: func(context.Context, core.TrainedModel, *core.FeatureTable) ([]float64, error) {
			return nil, boom
		},
		NumTestDraws: 2,
	}
	_, err := eng.Predict(context.Background(), []core.TrainedModel{1}, historyTable(), upcoming("A", "B"))
	if !core.IsCallable(err) {
		t.Fatalf("want callable error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("original predictor error not preserved in chain")
	}
}

// countingSource 统计 History 的调用次数，验证集成缓存命中。
type countingSource struct {
	inner source.Source
	mu    sync.Mutex
	calls int
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) History(ctx context.Context, objectID string, attrs []string) (*core.ObjectHistory, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.History(ctx, objectID, attrs)
}

func TestEngine_Predict_EnsembleCache(t *testing.T) {
	src := &countingSource{inner: &source.TableSource{Table: historyTable()}}
	eng := &Engine{
		Fitter:       &ensemble.Fitter{Spec: ensemble.ModelSpec{Family: "poisson"}},
		Rule:         transform.Means{},
		Predictor:    identityPredictor,
		NumTestDraws: 2,
		Histories:    src,
		Attributes:   []string{"P2M"},
	}
	models := []core.TrainedModel{1}

	if _, err := eng.Predict(context.Background(), models, nil, upcoming("A", "B")); err != nil {
		t.Fatalf("first Predict: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("first predict fetched %d histories, want 2", src.calls)
	}

	// 第二次预测同样的双方，集成全部命中缓存
	if _, err := eng.Predict(context.Background(), models, nil, upcoming("A", "B")); err != nil {
		t.Fatalf("second Predict: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("cache miss: %d history fetches after second predict, want 2", src.calls)
	}

	eng.InvalidateCache()
	if _, err := eng.Predict(context.Background(), models, nil, upcoming("A", "B")); err != nil {
		t.Fatalf("third Predict: %v", err)
	}
	if src.calls != 4 {
		t.Errorf("invalidated cache: %d history fetches, want 4", src.calls)
	}
}
