package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormalPlugin 是插入式正态族：点估计取样本均值与样本方差，不做贝叶斯更新。
//
// num_draws > 1 时返回 numDraws 个完全相同的实例（退化后验）。
// 需要在重复抽样下注入估计噪声时，应显式选用 normal_stochastic 族。
type NormalPlugin struct{}

func (NormalPlugin) Name() string { return "normal" }

func (NormalPlugin) Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("normal", numDraws); err != nil {
		return nil, err
	}
	mean, variance := obs.MeanVar()
	out := make([]Model, numDraws)
	for i := range out {
		out[i] = &NormalModel{Mu: mean, Sigma2: variance}
	}
	return out, nil
}

// NormalStochastic 是插入式正态族的随机变体：每次抽样在样本均值附近
// 注入标准误噪声 μ_i ~ N(x̄, s²/n)，方差仍取样本方差。
type NormalStochastic struct{}

func (NormalStochastic) Name() string { return "normal_stochastic" }

func (NormalStochastic) Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("normal_stochastic", numDraws); err != nil {
		return nil, err
	}
	mean, variance := obs.MeanVar()
	if numDraws == 1 {
		return []Model{&NormalModel{Mu: mean, Sigma2: variance}}, nil
	}
	_, n := obs.Sum()
	if n <= 0 {
		return nil, insufficientData("normal_stochastic",
			"cannot draw around an empty measurement history")
	}
	se := math.Sqrt(variance / n)
	d := distuv.Normal{Mu: mean, Sigma: se, Src: src}
	out := make([]Model, numDraws)
	for i := range out {
		mu := mean
		if se > 0 {
			mu = d.Rand()
		}
		out[i] = &NormalModel{Mu: mu, Sigma2: variance}
	}
	return out, nil
}

// NormalModel 是正态属性模型实例。
type NormalModel struct {
	Mu     float64
	Sigma2 float64
}

func (m *NormalModel) Dim() int            { return 1 }
func (m *NormalModel) Mean() []float64     { return []float64{m.Mu} }
func (m *NormalModel) Variance() []float64 { return []float64{m.Sigma2} }

func (m *NormalModel) Sample(n int, src rand.Source) [][]float64 {
	out := make([][]float64, n)
	if m.Sigma2 <= 0 {
		for i := range out {
			out[i] = []float64{m.Mu}
		}
		return out
	}
	d := distuv.Normal{Mu: m.Mu, Sigma: math.Sqrt(m.Sigma2), Src: src}
	for i := range out {
		out[i] = []float64{d.Rand()}
	}
	return out
}

func (m *NormalModel) Quantile(q float64) []float64 {
	if m.Sigma2 <= 0 {
		return []float64{m.Mu}
	}
	d := distuv.Normal{Mu: m.Mu, Sigma: math.Sqrt(m.Sigma2)}
	return []float64{d.Quantile(q)}
}
