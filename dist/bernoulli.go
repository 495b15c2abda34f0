package dist

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// BernoulliBeta 是 Bernoulli–Beta 共轭族：测量为 0/1，成功概率 p 服从 Beta 后验。
//
// 更新规则：后验 Beta(α + 成功数, β + 失败数)。
// 零信息先验 (0, 0) 使后验均值退化为成功频率 s/n（极大似然）。
type BernoulliBeta struct{}

func (BernoulliBeta) Name() string { return "bernoulli" }

func (BernoulliBeta) Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("bernoulli", numDraws); err != nil {
		return nil, err
	}
	var alpha0, beta0 float64
	if prior != nil {
		alpha0, beta0 = prior.Alpha, prior.Beta
	}
	successes, n := obs.Sum()
	failures := n - successes

	if numDraws == 1 {
		p := 0.0
		switch {
		case n > 0:
			p = successes / n
		case alpha0+beta0 > 0:
			p = alpha0 / (alpha0 + beta0)
		}
		return []Model{&BernoulliModel{P: p}}, nil
	}

	a := alpha0 + successes
	b := beta0 + failures
	if a <= 0 || b <= 0 {
		return nil, insufficientData("bernoulli",
			"posterior Beta undefined: history is one-sided or empty without informative prior")
	}
	beta := distuv.Beta{Alpha: a, Beta: b, Src: src}
	out := make([]Model, numDraws)
	for i := range out {
		out[i] = &BernoulliModel{P: beta.Rand()}
	}
	return out, nil
}

// BernoulliModel 是单次后验抽样得到的 Bernoulli 属性模型，P 为成功概率。
type BernoulliModel struct {
	P float64
}

func (m *BernoulliModel) Dim() int            { return 1 }
func (m *BernoulliModel) Mean() []float64     { return []float64{m.P} }
func (m *BernoulliModel) Variance() []float64 { return []float64{m.P * (1 - m.P)} }

func (m *BernoulliModel) Sample(n int, src rand.Source) [][]float64 {
	d := distuv.Bernoulli{P: m.P, Src: src}
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{d.Rand()}
	}
	return out
}

func (m *BernoulliModel) Quantile(q float64) []float64 {
	if q <= 1-m.P {
		return []float64{0}
	}
	return []float64{1}
}
