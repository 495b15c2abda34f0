package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/source"
	"github.com/rushteam/bagkit/transform"
)

const yamlConfig = `
engine:
  num_models: 16
  num_test_draws: 8
  max_concurrent: 4
  seed: 42
  transformation:
    type: quantile
    config:
      q: 0.9
  model_spec:
    type: poisson
    per_attribute:
      won: bernoulli
  weighting:
    type: exponential
    half_life: 720h
  priors:
    team_a:
      P2M:
        shape: 2
        rate: 0.5
  cache:
    type: memory
    ttl: 300
`

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	e := cfg.Engine
	if e.NumModels != 16 || e.NumTestDraws != 8 || e.Seed != 42 {
		t.Errorf("engine = %+v", e)
	}
	if e.Transformation.Type != "quantile" {
		t.Errorf("transformation type = %q", e.Transformation.Type)
	}
	if e.ModelSpec.Type != "poisson" || e.ModelSpec.PerAttribute["won"] != "bernoulli" {
		t.Errorf("model_spec = %+v", e.ModelSpec)
	}
	if e.Weighting == nil || e.Weighting.HalfLife != "720h" {
		t.Errorf("weighting = %+v", e.Weighting)
	}
	if e.Priors["team_a"]["P2M"].Shape != 2 {
		t.Errorf("priors = %+v", e.Priors)
	}
}

func TestLoadFromJSON(t *testing.T) {
	const jsonConfig = `{"engine":{"num_models":4,"transformation":{"type":"means"},"model_spec":{"type":"normal"}}}`
	cfg, err := LoadFromJSON(writeTempConfig(t, "engine.json", jsonConfig))
	if err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	if cfg.Engine.NumModels != 4 || cfg.Engine.ModelSpec.Type != "normal" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
}

func TestBuildRule(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		cfg      map[string]interface{}
		want     string
	}{
		{name: "means", typeName: "means", want: "means"},
		{name: "sample", typeName: "sample", want: "sample"},
		{name: "quantile", typeName: "quantile", cfg: map[string]interface{}{"q": 0.9}, want: "quantile(0.9)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := BuildRule(tt.typeName, tt.cfg)
			if err != nil {
				t.Fatalf("BuildRule: %v", err)
			}
			if rule.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", rule.Name(), tt.want)
			}
		})
	}
}

func TestBuildRule_Unsupported(t *testing.T) {
	_, err := BuildRule("pca", nil)
	if err == nil {
		t.Fatal("want error for unsupported type")
	}
	// 错误信息必须列出已支持的类型
	for _, want := range []string{"means", "sample", "quantile", "cel"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}
}

func TestBuildRule_Quantile_MissingQ(t *testing.T) {
	if _, err := BuildRule("quantile", nil); err == nil {
		t.Fatal("want error when q is missing")
	}
}

func TestBuildRule_CEL(t *testing.T) {
	rule, err := BuildRule("cel", map[string]interface{}{
		"columns": []interface{}{
			map[string]interface{}{"name": "diff", "expr": "slots[0].P2M.mean - slots[1].P2M.mean"},
		},
	})
	if err != nil {
		t.Fatalf("BuildRule: %v", err)
	}
	if _, ok := rule.(*transform.CEL); !ok {
		t.Errorf("rule is %T, want *transform.CEL", rule)
	}
}

func TestBuildFitter(t *testing.T) {
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	f, err := cfg.BuildFitter()
	if err != nil {
		t.Fatalf("BuildFitter: %v", err)
	}
	if f.Spec.Family != "poisson" || f.Spec.PerAttr["won"] != "bernoulli" {
		t.Errorf("spec = %+v", f.Spec)
	}
	if f.Weighting == nil || f.Weighting.HalfLife != 720*time.Hour {
		t.Errorf("weighting = %+v", f.Weighting)
	}
	p := f.Priors["team_a"]["P2M"]
	if p == nil || p.Shape != 2 || p.Rate != 0.5 {
		t.Errorf("prior = %+v", p)
	}
}

func TestBuildFitter_BadHalfLife(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{
		ModelSpec: ModelSpecConfig{Type: "poisson"},
		Weighting: &WeightingConfig{Type: "exponential", HalfLife: "a month"},
	}}
	if _, err := cfg.BuildFitter(); err == nil {
		t.Fatal("want error for unparsable half_life")
	}
}

func TestBuildEngines(t *testing.T) {
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}

	bag, err := cfg.BuildBagging(nil)
	if err != nil {
		t.Fatalf("BuildBagging: %v", err)
	}
	if bag.NumModels != 16 || bag.MaxConcurrent != 4 || bag.Seed != 42 {
		t.Errorf("bagging engine = %+v", bag)
	}

	pred, err := cfg.BuildPredict(nil)
	if err != nil {
		t.Fatalf("BuildPredict: %v", err)
	}
	if pred.NumTestDraws != 8 {
		t.Errorf("NumTestDraws = %d, want 8", pred.NumTestDraws)
	}
}

func TestBuildPredict_DefaultTestDraws(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{
		NumModels:      10,
		Transformation: RuleConfig{Type: "means"},
		ModelSpec:      ModelSpecConfig{Type: "poisson"},
	}}
	pred, err := cfg.BuildPredict(nil)
	if err != nil {
		t.Fatalf("BuildPredict: %v", err)
	}
	// num_test_draws 缺省回落到 num_models
	if pred.NumTestDraws != 10 {
		t.Errorf("NumTestDraws = %d, want 10", pred.NumTestDraws)
	}
}

func TestBuildStore(t *testing.T) {
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	kv, err := cfg.BuildStore()
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if kv == nil || kv.Name() != "memory" {
		t.Errorf("store = %v", kv)
	}

	none := &Config{}
	kv2, err := none.BuildStore()
	if err != nil || kv2 != nil {
		t.Errorf("BuildStore without cache = (%v, %v), want (nil, nil)", kv2, err)
	}

	bad := &Config{Engine: EngineConfig{Cache: &CacheConfig{Type: "memcached"}}}
	if _, err := bad.BuildStore(); err == nil {
		t.Error("want error for unsupported cache type")
	}
}

func TestBuildSource(t *testing.T) {
	base := &source.TableSource{Table: &core.Table{Attributes: []string{"P2M"}}}

	// 配置了 cache 时来源被包上快照缓存，TTL 取自配置
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	src, err := cfg.BuildSource(base)
	if err != nil {
		t.Fatalf("BuildSource: %v", err)
	}
	cached, ok := src.(*source.CachedSource)
	if !ok {
		t.Fatalf("source is %T, want *source.CachedSource", src)
	}
	if cached.Source != base || cached.TTLSeconds != 300 {
		t.Errorf("cached source = %+v", cached)
	}

	// 未配置 cache 时原样返回
	none := &Config{}
	src2, err := none.BuildSource(base)
	if err != nil {
		t.Fatalf("BuildSource (no cache): %v", err)
	}
	if src2 != source.Source(base) {
		t.Errorf("source = %T, want the base source unchanged", src2)
	}
}

func TestBuildPredictFrom(t *testing.T) {
	cfg, err := LoadFromYAML(writeTempConfig(t, "engine.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	base := &source.TableSource{Table: &core.Table{Attributes: []string{"P2M"}}}
	eng, err := cfg.BuildPredictFrom(nil, base, []string{"P2M"})
	if err != nil {
		t.Fatalf("BuildPredictFrom: %v", err)
	}
	if eng.Histories == nil {
		t.Fatal("Histories not wired")
	}
	if _, ok := eng.Histories.(*source.CachedSource); !ok {
		t.Errorf("Histories is %T, want *source.CachedSource", eng.Histories)
	}
	if len(eng.Attributes) != 1 || eng.Attributes[0] != "P2M" {
		t.Errorf("Attributes = %v", eng.Attributes)
	}
}
