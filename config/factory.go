package config

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/bagkit/bagging"
	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/dist"
	"github.com/rushteam/bagkit/ensemble"
	"github.com/rushteam/bagkit/pkg/conv"
	"github.com/rushteam/bagkit/predict"
	"github.com/rushteam/bagkit/source"
	"github.com/rushteam/bagkit/store"
	"github.com/rushteam/bagkit/transform"
)

func init() {
	Register("means", buildMeansRule)
	Register("sample", buildSampleRule)
	Register("quantile", buildQuantileRule)
	Register("cel", buildCELRule)
}

func buildMeansRule(_ map[string]interface{}) (transform.Rule, error) {
	return transform.Means{}, nil
}

func buildSampleRule(_ map[string]interface{}) (transform.Rule, error) {
	return transform.Sample{}, nil
}

func buildQuantileRule(cfg map[string]interface{}) (transform.Rule, error) {
	q, ok := conv.ToFloat64(cfg["q"])
	if !ok {
		return nil, fmt.Errorf("quantile rule: q not found")
	}
	return transform.Quantile{Q: q}, nil
}

func buildCELRule(cfg map[string]interface{}) (transform.Rule, error) {
	raw, ok := cfg["columns"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("cel rule: columns not found or invalid")
	}
	columns := make([]transform.CELColumn, 0, len(raw))
	for _, rc := range raw {
		colMap, ok := rc.(map[string]interface{})
		if !ok {
			continue
		}
		name := conv.ConfigGet[string](colMap, "name", "")
		expr := conv.ConfigGet[string](colMap, "expr", "")
		if name == "" || expr == "" {
			return nil, fmt.Errorf("cel rule: each column needs name and expr")
		}
		columns = append(columns, transform.CELColumn{Name: name, Expr: expr})
	}
	return transform.NewCEL(columns)
}

// BuildRule 构建配置指定的变换规则。
func (c *Config) BuildRule() (transform.Rule, error) {
	return BuildRule(c.Engine.Transformation.Type, c.Engine.Transformation.Config)
}

// BuildFitter 构建模型拟合编排器（model_spec、先验与时间加权）。
func (c *Config) BuildFitter() (*ensemble.Fitter, error) {
	f := &ensemble.Fitter{
		Spec: ensemble.ModelSpec{
			Family:    c.Engine.ModelSpec.Type,
			PerAttr:   c.Engine.ModelSpec.PerAttribute,
			Dependent: c.Engine.ModelSpec.Dependent,
		},
		Seed: c.Engine.Seed,
	}
	if w := c.Engine.Weighting; w != nil {
		if w.Type != "" && w.Type != "exponential" {
			return nil, fmt.Errorf("unsupported weighting type %q", w.Type)
		}
		hl, err := w.halfLife()
		if err != nil {
			return nil, err
		}
		f.Weighting = &ensemble.Weighting{HalfLife: hl}
	}
	if len(c.Engine.Priors) > 0 {
		f.Priors = make(map[string]map[string]*dist.Prior, len(c.Engine.Priors))
		for objectID, byAttr := range c.Engine.Priors {
			f.Priors[objectID] = make(map[string]*dist.Prior, len(byAttr))
			for attr, pc := range byAttr {
				prior, err := pc.toPrior()
				if err != nil {
					return nil, fmt.Errorf("prior for %s/%s: %w", objectID, attr, err)
				}
				f.Priors[objectID][attr] = prior
			}
		}
	}
	return f, nil
}

func (pc PriorConfig) toPrior() (*dist.Prior, error) {
	p := &dist.Prior{
		Shape: pc.Shape,
		Rate:  pc.Rate,
		Alpha: pc.Alpha,
		Beta:  pc.Beta,
		Mu0:   pc.Mu0,
		Kappa: pc.Kappa,
		Nu:    pc.Nu,
		MuVec: pc.MuVec,
	}
	if pc.Psi != nil {
		d := len(pc.Psi)
		psi := mat.NewSymDense(d, nil)
		for i, row := range pc.Psi {
			if len(row) != d {
				return nil, fmt.Errorf("psi must be a %dx%d matrix", d, d)
			}
			for j := i; j < d; j++ {
				psi.SetSym(i, j, row[j])
			}
		}
		p.Psi = psi
	}
	return p, nil
}

// BuildBagging 构建袋装训练引擎；trainer 是用户提供的训练回调。
func (c *Config) BuildBagging(trainer core.Trainer) (*bagging.Engine, error) {
	fitter, err := c.BuildFitter()
	if err != nil {
		return nil, err
	}
	rule, err := c.BuildRule()
	if err != nil {
		return nil, err
	}
	return &bagging.Engine{
		Fitter:        fitter,
		Rule:          rule,
		Trainer:       trainer,
		NumModels:     c.Engine.NumModels,
		MaxConcurrent: c.Engine.MaxConcurrent,
		Seed:          c.Engine.Seed,
	}, nil
}

// BuildPredict 构建预测引擎；predictor 是用户提供的预测回调。
func (c *Config) BuildPredict(predictor core.Predictor) (*predict.Engine, error) {
	fitter, err := c.BuildFitter()
	if err != nil {
		return nil, err
	}
	rule, err := c.BuildRule()
	if err != nil {
		return nil, err
	}
	numTestDraws := c.Engine.NumTestDraws
	if numTestDraws == 0 {
		numTestDraws = c.Engine.NumModels
	}
	return &predict.Engine{
		Fitter:        fitter,
		Rule:          rule,
		Predictor:     predictor,
		NumTestDraws:  numTestDraws,
		MaxConcurrent: c.Engine.MaxConcurrent,
		Seed:          c.Engine.Seed,
	}, nil
}

// BuildSource 按 cache 配置给测量来源叠加快照缓存；未配置 cache 时原样返回。
func (c *Config) BuildSource(base source.Source) (source.Source, error) {
	kv, err := c.BuildStore()
	if err != nil {
		return nil, err
	}
	if kv == nil {
		return base, nil
	}
	return &source.CachedSource{
		Source:     base,
		Store:      kv,
		TTLSeconds: c.Engine.Cache.TTL,
	}, nil
}

// BuildPredictFrom 构建从指定测量来源（而非历史比赛表）拉取对象历史的预测引擎；
// 来源经 BuildSource 按 cache 配置自动包装。attrs 为来源声明的属性集。
func (c *Config) BuildPredictFrom(predictor core.Predictor, histories source.Source, attrs []string) (*predict.Engine, error) {
	eng, err := c.BuildPredict(predictor)
	if err != nil {
		return nil, err
	}
	src, err := c.BuildSource(histories)
	if err != nil {
		return nil, err
	}
	eng.Histories = src
	eng.Attributes = attrs
	return eng, nil
}

// BuildStore 构建历史快照缓存所用的 KV 存储；未配置 cache 时返回 (nil, nil)。
func (c *Config) BuildStore() (core.KeyValueStore, error) {
	cache := c.Engine.Cache
	if cache == nil {
		return nil, nil
	}
	switch cache.Type {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(cache.Addr, cache.DB)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cache.Type)
	}
}
