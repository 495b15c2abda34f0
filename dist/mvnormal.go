package dist

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/rushteam/bagkit/core"
)

// MVNormalInverseWishart 是多元正态–逆 Wishart 共轭族：
// 对一个对象的多个属性联合建模，每次后验抽样是一个 (均值向量, 协方差矩阵) 对。
//
// 先验 (μ0, κ0, ν0, Ψ)，更新规则：
//
//	κn = κ0 + n
//	νn = ν0 + n
//	μn = (κ0·μ0 + n·x̄) / κn
//	Ψn = Ψ + S + κ0·n/κn · (x̄-μ0)(x̄-μ0)ᵀ
//
// 抽样：Σ ~ InvWishart(νn, Ψn)（经 Σ⁻¹ ~ Wishart(νn, Ψn⁻¹) 实现），μ | Σ ~ N(μn, Σ/κn)。
type MVNormalInverseWishart struct{}

func (MVNormalInverseWishart) Name() string { return "mvnormal" }

func (MVNormalInverseWishart) FitVector(obs VectorObservations, numDraws int, prior *Prior, src rand.Source) ([]Model, error) {
	if err := validateDraws("mvnormal", numDraws); err != nil {
		return nil, err
	}
	d := len(obs.Attrs)
	if d == 0 {
		return nil, core.NewDomainError(core.ModuleDist, core.ErrorCodeSchema,
			"mvnormal: no attributes to model jointly")
	}
	for i, row := range obs.Rows {
		if len(row) != d {
			return nil, core.NewDomainError(core.ModuleDist, core.ErrorCodeSchema,
				fmt.Sprintf("mvnormal: row %d has %d values, want %d", i, len(row), d))
		}
	}

	mu0 := make([]float64, d)
	var kappa0, nu0 float64
	psi := mat.NewSymDense(d, nil)
	if prior != nil {
		if prior.MuVec != nil {
			if len(prior.MuVec) != d {
				return nil, core.NewDomainError(core.ModuleDist, core.ErrorCodeSchema,
					fmt.Sprintf("mvnormal: prior mean has dim %d, want %d", len(prior.MuVec), d))
			}
			copy(mu0, prior.MuVec)
		}
		kappa0, nu0 = prior.Kappa, prior.Nu
		if prior.Psi != nil {
			psi.CopySym(prior.Psi)
		}
	}

	mean, scatter, n := weightedScatter(obs, d)

	kappaN := kappa0 + n
	nuN := nu0 + n
	muN := make([]float64, d)
	psiN := mat.NewSymDense(d, nil)
	psiN.AddSym(psi, scatter)
	if kappaN > 0 {
		for i := 0; i < d; i++ {
			muN[i] = (kappa0*mu0[i] + n*mean[i]) / kappaN
		}
		// 先验均值与样本均值分歧的修正项
		coef := kappa0 * n / kappaN
		diff := make([]float64, d)
		for i := 0; i < d; i++ {
			diff[i] = mean[i] - mu0[i]
		}
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				psiN.SetSym(i, j, psiN.At(i, j)+coef*diff[i]*diff[j])
			}
		}
	}

	if numDraws == 1 {
		// 点估计：样本均值与极大似然协方差 S/n；空历史退回先验均值与 Ψ/(ν-d-1)
		sigma := mat.NewSymDense(d, nil)
		switch {
		case n > 0:
			for i := 0; i < d; i++ {
				for j := i; j < d; j++ {
					sigma.SetSym(i, j, scatter.At(i, j)/n)
				}
			}
			return []Model{&MVNormalModel{Attrs: obs.Attrs, Mu: mean, Sigma: sigma}}, nil
		case nu0 > float64(d)+1:
			for i := 0; i < d; i++ {
				for j := i; j < d; j++ {
					sigma.SetSym(i, j, psi.At(i, j)/(nu0-float64(d)-1))
				}
			}
			return []Model{&MVNormalModel{Attrs: obs.Attrs, Mu: mu0, Sigma: sigma}}, nil
		default:
			return []Model{&MVNormalModel{Attrs: obs.Attrs, Mu: mu0, Sigma: sigma}}, nil
		}
	}

	if kappaN <= 0 || nuN <= float64(d)-1 {
		return nil, insufficientData("mvnormal",
			"posterior undefined: too few measurements and no informative prior")
	}
	var psiInv mat.Dense
	if err := psiInv.Inverse(psiN); err != nil {
		return nil, insufficientData("mvnormal",
			fmt.Sprintf("posterior scale matrix is singular: %v", err))
	}
	wishart, ok := distmat.NewWishart(symmetrize(&psiInv), nuN, src)
	if !ok {
		return nil, insufficientData("mvnormal", "posterior scale matrix is not positive definite")
	}

	out := make([]Model, numDraws)
	prec := mat.NewSymDense(d, nil)
	for k := range out {
		wishart.RandSymTo(prec)
		var sigmaDense mat.Dense
		if err := sigmaDense.Inverse(prec); err != nil {
			return nil, insufficientData("mvnormal",
				fmt.Sprintf("sampled precision matrix is singular: %v", err))
		}
		sigma := symmetrize(&sigmaDense)
		condSigma := mat.NewSymDense(d, nil)
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				condSigma.SetSym(i, j, sigma.At(i, j)/kappaN)
			}
		}
		normal, ok := distmv.NewNormal(muN, condSigma, src)
		if !ok {
			return nil, insufficientData("mvnormal", "sampled covariance is not positive definite")
		}
		out[k] = &MVNormalModel{Attrs: obs.Attrs, Mu: normal.Rand(nil), Sigma: sigma}
	}
	return out, nil
}

// weightedScatter 返回加权均值向量、加权散布矩阵 Σw(x-x̄)(x-x̄)ᵀ 与有效观测数。
func weightedScatter(obs VectorObservations, d int) ([]float64, *mat.SymDense, float64) {
	mean := make([]float64, d)
	var n float64
	for i, row := range obs.Rows {
		w := 1.0
		if obs.Weights != nil {
			w = obs.Weights[i]
		}
		n += w
		for j, v := range row {
			mean[j] += w * v
		}
	}
	if n > 0 {
		for j := range mean {
			mean[j] /= n
		}
	}
	scatter := mat.NewSymDense(d, nil)
	for i, row := range obs.Rows {
		w := 1.0
		if obs.Weights != nil {
			w = obs.Weights[i]
		}
		for a := 0; a < d; a++ {
			for b := a; b < d; b++ {
				scatter.SetSym(a, b, scatter.At(a, b)+w*(row[a]-mean[a])*(row[b]-mean[b]))
			}
		}
	}
	return mean, scatter, n
}

func symmetrize(m *mat.Dense) *mat.SymDense {
	r, _ := m.Dims()
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// MVNormalModel 是多元正态属性模型实例，联合覆盖 Attrs 中的全部属性。
type MVNormalModel struct {
	Attrs []string
	Mu    []float64
	Sigma *mat.SymDense
}

func (m *MVNormalModel) Dim() int        { return len(m.Mu) }
func (m *MVNormalModel) Mean() []float64 { return m.Mu }

// Variance 返回各维的边际方差（协方差矩阵对角线）。
func (m *MVNormalModel) Variance() []float64 {
	out := make([]float64, len(m.Mu))
	for i := range out {
		out[i] = m.Sigma.At(i, i)
	}
	return out
}

// Covariance 返回完整协方差矩阵。
func (m *MVNormalModel) Covariance() *mat.SymDense { return m.Sigma }

func (m *MVNormalModel) Sample(n int, src rand.Source) [][]float64 {
	out := make([][]float64, n)
	normal, ok := distmv.NewNormal(m.Mu, m.Sigma, src)
	if !ok {
		// 退化协方差：退回均值点
		for i := range out {
			row := make([]float64, len(m.Mu))
			copy(row, m.Mu)
			out[i] = row
		}
		return out
	}
	for i := range out {
		out[i] = normal.Rand(nil)
	}
	return out
}
