package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormalInverseGamma 是 Normal–Inverse-Gamma 共轭族：对 (均值, 方差) 做联合贝叶斯更新。
//
// 先验 (μ0, κ0, α0, β0)，更新规则：
//
//	κn = κ0 + n
//	μn = (κ0·μ0 + n·x̄) / κn
//	αn = α0 + n/2
//	βn = β0 + ½Σ(x-x̄)² + κ0·n·(x̄-μ0)² / (2κn)
//
// 抽样：σ² ~ InvGamma(αn, βn)，μ | σ² ~ N(μn, σ²/κn)，每次抽样是一个 (μ, σ²) 对。
type NormalInverseGamma struct{}

func (NormalInverseGamma) Name() string { return "normal_inverse_gamma" }

func (NormalInverseGamma) Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("normal_inverse_gamma", numDraws); err != nil {
		return nil, err
	}
	var mu0, kappa0, alpha0, beta0 float64
	if prior != nil {
		mu0, kappa0, alpha0, beta0 = prior.Mu0, prior.Kappa, prior.Alpha, prior.Beta
	}
	sum, n := obs.Sum()
	var mean float64
	if n > 0 {
		mean = sum / n
	}
	ss := obs.Scatter()

	kappaN := kappa0 + n
	alphaN := alpha0 + n/2
	muN := mu0
	betaN := beta0 + ss/2
	if kappaN > 0 {
		muN = (kappa0*mu0 + n*mean) / kappaN
		d := mean - mu0
		betaN += kappa0 * n * d * d / (2 * kappaN)
	}

	if numDraws == 1 {
		// 点估计：后验均值 μn；方差取后验均值 βn/(αn-1)，不可用时退回极大似然 ss/n
		variance := 0.0
		switch {
		case alphaN > 1:
			variance = betaN / (alphaN - 1)
		case n > 0:
			variance = ss / n
		}
		return []Model{&NormalModel{Mu: muN, Sigma2: variance}}, nil
	}

	if kappaN <= 0 || alphaN <= 0 || betaN <= 0 {
		return nil, insufficientData("normal_inverse_gamma",
			"posterior undefined: no measurements and no informative prior")
	}
	ig := distuv.InverseGamma{Alpha: alphaN, Beta: betaN, Src: src}
	out := make([]Model, numDraws)
	for i := range out {
		sigma2 := ig.Rand()
		mu := distuv.Normal{Mu: muN, Sigma: math.Sqrt(sigma2 / kappaN), Src: src}.Rand()
		out[i] = &NormalModel{Mu: mu, Sigma2: sigma2}
	}
	return out, nil
}
