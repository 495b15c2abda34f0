// Package dist 实现属性模型：对单个（或联合多个）属性的真实取值拟合分布。
//
// 设计要点：
//   - Model 是已拟合实例的最小能力集：Mean / Variance / Sample（外加可选 Quantile）
//   - Family 是共轭分布族的拟合入口：同一契约覆盖内置族与自定义族，无内置特权
//   - num_draws == 1 时返回点估计（极大似然），完全确定；> 1 时从参数后验独立抽样
//   - 拟合是 (measurements, num_draws, prior, random source) 的纯函数
package dist

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/bagkit/core"
)

// Model 是已拟合的属性模型实例，构建后不可变，所有查询均无副作用。
// 一元族 Dim() == 1；多元族（联合建模多个属性）Dim() == 属性数。
type Model interface {
	// Dim 返回模型覆盖的属性维数。
	Dim() int
	// Mean 返回各维的均值。
	Mean() []float64
	// Variance 返回各维的边际方差。
	Variance() []float64
	// Sample 从模型分布抽取 n 组实现值，每组长度为 Dim()。
	Sample(n int, src rand.Source) [][]float64
}

// Quantiler 是可选能力：quantile 变换规则要求属性模型额外暴露分位函数。
type Quantiler interface {
	Quantile(q float64) []float64
}

// CovarianceModel 由多元模型实现，暴露完整协方差矩阵。
type CovarianceModel interface {
	Covariance() *mat.SymDense
}

// Prior 是可选的共轭超参数，按族取用相关字段；nil 等价于零信息先验
// （全部超参取使后验退化为极大似然估计的默认值）。
type Prior struct {
	// Poisson–Gamma：Gamma(Shape, Rate)
	Shape float64
	Rate  float64

	// Bernoulli–Beta：Beta(Alpha, Beta)；Normal–Inverse-Gamma 复用为 InvGamma(Alpha, Beta)
	Alpha float64
	Beta  float64

	// Normal–Inverse-Gamma：均值先验 N(Mu0, σ²/Kappa)
	Mu0   float64
	Kappa float64

	// Multivariate-Normal–Inverse-Wishart
	MuVec []float64
	Nu    float64
	Psi   *mat.SymDense
}

// Observations 是一个属性的加权测量序列。Weights 为 nil 表示等权（全 1）。
// 时间衰减加权由拟合编排层（ensemble 包）在传入前完成。
type Observations struct {
	Values  []float64
	Weights []float64
}

// Sum 返回加权和与有效观测数 (Σwx, Σw)。
func (o Observations) Sum() (sum, count float64) {
	for i, v := range o.Values {
		w := 1.0
		if o.Weights != nil {
			w = o.Weights[i]
		}
		sum += w * v
		count += w
	}
	return sum, count
}

// MeanVar 返回加权均值与加权样本方差（无偏修正按有效观测数）。
func (o Observations) MeanVar() (mean, variance float64) {
	sum, count := o.Sum()
	if count == 0 {
		return 0, 0
	}
	mean = sum / count
	var ss float64
	for i, v := range o.Values {
		w := 1.0
		if o.Weights != nil {
			w = o.Weights[i]
		}
		d := v - mean
		ss += w * d * d
	}
	if count > 1 {
		variance = ss / (count - 1)
	}
	return mean, variance
}

// Scatter 返回加权平方偏差和 Σw(x-x̄)²。
func (o Observations) Scatter() float64 {
	mean, _ := o.MeanVar()
	var ss float64
	for i, v := range o.Values {
		w := 1.0
		if o.Weights != nil {
			w = o.Weights[i]
		}
		d := v - mean
		ss += w * d * d
	}
	return ss
}

// Family 是一元共轭分布族的拟合接口。
// 内置族（poisson / normal / normal_stochastic / normal_inverse_gamma / bernoulli）
// 与用户自定义族实现同一接口，引擎对两者一视同仁。
type Family interface {
	Name() string
	// Fit 依据测量与先验返回 numDraws 个 Model 实例。
	//   - numDraws == 1：点估计，无随机性
	//   - numDraws > 1：后验独立抽样，各实例互相独立
	Fit(obs Observations, numDraws int, prior *Prior, src rand.Source) ([]Model, error)
}

// VectorObservations 是联合建模时一个对象的多属性测量矩阵（行 = 观测）。
type VectorObservations struct {
	Attrs   []string
	Rows    [][]float64
	Weights []float64
}

// VectorFamily 是多元分布族的拟合接口（dependent=true 时选用）。
type VectorFamily interface {
	Name() string
	FitVector(obs VectorObservations, numDraws int, prior *Prior, src rand.Source) ([]Model, error)
}

func validateDraws(family string, numDraws int) error {
	if numDraws < 1 {
		return core.NewDomainError(core.ModuleDist, core.ErrorCodeInvalidInput,
			fmt.Sprintf("family %s: num_draws must be >= 1, got %d", family, numDraws))
	}
	return nil
}

func insufficientData(family, reason string) error {
	return core.NewDomainError(core.ModuleDist, core.ErrorCodeInsufficientData,
		fmt.Sprintf("family %s: %s", family, reason))
}
