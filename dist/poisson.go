package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// PoissonGamma 是 Poisson–Gamma 共轭族：测量为计数，速率参数 λ 服从 Gamma 后验。
//
// 更新规则：后验 shape = 先验 shape + Σx，后验 rate = 先验 rate + n。
// 零信息先验 (0, 0) 使后验均值退化为样本均值 Σx/n（极大似然）。
type PoissonGamma struct{}

func (PoissonGamma) Name() string { return "poisson" }

func (PoissonGamma) Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("poisson", numDraws); err != nil {
		return nil, err
	}
	var a0, b0 float64
	if prior != nil {
		a0, b0 = prior.Shape, prior.Rate
	}
	sum, n := obs.Sum()

	if numDraws == 1 {
		lambda := 0.0
		switch {
		case n > 0:
			lambda = sum / n
		case b0 > 0:
			lambda = a0 / b0
		}
		return []Model{&PoissonModel{Lambda: lambda}}, nil
	}

	a := a0 + sum
	b := b0 + n
	if a <= 0 || b <= 0 {
		return nil, insufficientData("poisson",
			"posterior Gamma undefined: no measurements and no informative prior")
	}
	g := distuv.Gamma{Alpha: a, Beta: b, Src: src}
	out := make([]Model, numDraws)
	for i := range out {
		out[i] = &PoissonModel{Lambda: g.Rand()}
	}
	return out, nil
}

// PoissonModel 是单次后验抽样得到的 Poisson 属性模型，Lambda 为速率参数。
type PoissonModel struct {
	Lambda float64
}

func (m *PoissonModel) Dim() int            { return 1 }
func (m *PoissonModel) Mean() []float64     { return []float64{m.Lambda} }
func (m *PoissonModel) Variance() []float64 { return []float64{m.Lambda} }

func (m *PoissonModel) Sample(n int, src rand.Source) [][]float64 {
	p := distuv.Poisson{Lambda: m.Lambda, Src: src}
	out := make([][]float64, n)
	for i := range out {
		if m.Lambda <= 0 {
			out[i] = []float64{0}
			continue
		}
		out[i] = []float64{p.Rand()}
	}
	return out
}

// Quantile 通过 CDF 累加求离散分位点。
func (m *PoissonModel) Quantile(q float64) []float64 {
	if m.Lambda <= 0 || q <= 0 {
		return []float64{0}
	}
	if q >= 1 {
		return []float64{math.Inf(1)}
	}
	p := distuv.Poisson{Lambda: m.Lambda}
	// 上界取均值加十倍标准差，足以覆盖任何实际分位点
	upper := int(m.Lambda + 10*math.Sqrt(m.Lambda) + 10)
	for k := 0; k <= upper; k++ {
		if p.CDF(float64(k)) >= q {
			return []float64{float64(k)}
		}
	}
	return []float64{float64(upper)}
}
