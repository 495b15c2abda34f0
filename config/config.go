// Package config 提供引擎的配置驱动构建：YAML/JSON 配置解析为
// 拟合器、变换规则与袋装/预测引擎。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是引擎配置的顶层结构（支持 YAML/JSON）。
type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
}

// EngineConfig 描述一套完整的袋装预测引擎。
type EngineConfig struct {
	NumModels     int    `yaml:"num_models" json:"num_models"`
	NumTestDraws  int    `yaml:"num_test_draws" json:"num_test_draws"`
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
	Seed          uint64 `yaml:"seed" json:"seed"`

	Transformation RuleConfig      `yaml:"transformation" json:"transformation"`
	ModelSpec      ModelSpecConfig `yaml:"model_spec" json:"model_spec"`

	Weighting *WeightingConfig                  `yaml:"weighting,omitempty" json:"weighting,omitempty"`
	Priors    map[string]map[string]PriorConfig `yaml:"priors,omitempty" json:"priors,omitempty"`
	Cache     *CacheConfig                      `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// RuleConfig 是单个变换规则的配置。
type RuleConfig struct {
	Type   string                 `yaml:"type" json:"type"`     // means / sample / quantile / cel
	Config map[string]interface{} `yaml:"config" json:"config"` // 规则特定配置
}

// ModelSpecConfig 对应 model_spec 的三种配置形态
// （完全自定义的拟合回调只能走 API，不经配置）。
type ModelSpecConfig struct {
	Type         string            `yaml:"type" json:"type"` // 单一族名，或 dependent 时的多元族名
	PerAttribute map[string]string `yaml:"per_attribute,omitempty" json:"per_attribute,omitempty"`
	Dependent    bool              `yaml:"dependent" json:"dependent"`
}

// WeightingConfig 是时间衰减加权配置；HalfLife 为 Go duration 字符串（如 "720h"）。
type WeightingConfig struct {
	Type     string `yaml:"type" json:"type"` // 目前仅 exponential
	HalfLife string `yaml:"half_life" json:"half_life"`
}

func (w *WeightingConfig) halfLife() (time.Duration, error) {
	d, err := time.ParseDuration(w.HalfLife)
	if err != nil {
		return 0, fmt.Errorf("parse half_life: %w", err)
	}
	return d, nil
}

// PriorConfig 是按 (对象, 属性) 的共轭超参数；字段按族取用。
type PriorConfig struct {
	Shape float64 `yaml:"shape" json:"shape"`
	Rate  float64 `yaml:"rate" json:"rate"`
	Alpha float64 `yaml:"alpha" json:"alpha"`
	Beta  float64 `yaml:"beta" json:"beta"`
	Mu0   float64 `yaml:"mu0" json:"mu0"`
	Kappa float64 `yaml:"kappa" json:"kappa"`
	Nu    float64 `yaml:"nu" json:"nu"`

	MuVec []float64   `yaml:"mu_vec,omitempty" json:"mu_vec,omitempty"`
	Psi   [][]float64 `yaml:"psi,omitempty" json:"psi,omitempty"`
}

// CacheConfig 配置历史快照缓存（source.CachedSource 所用的 KV 存储）。
type CacheConfig struct {
	Type string `yaml:"type" json:"type"` // memory / redis
	Addr string `yaml:"addr" json:"addr"`
	DB   int    `yaml:"db" json:"db"`
	TTL  int    `yaml:"ttl" json:"ttl"` // 秒，0 表示不过期
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}
