package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/bagkit/transform"
)

// RuleBuilder 根据规则配置构建 transform.Rule。
// 内置规则在本包 init 中注册；自定义规则调用 Register(typeName, builder)
// 即可被配置驱动。
type RuleBuilder func(config map[string]interface{}) (transform.Rule, error)

var (
	defaultBuilders   = make(map[string]RuleBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种变换规则的构建逻辑。
func Register(typeName string, builder RuleBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的规则类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BuildRule 按类型和配置构建变换规则；未注册的类型返回包含已支持列表的错误。
func BuildRule(typeName string, cfg map[string]interface{}) (transform.Rule, error) {
	defaultBuildersMu.RLock()
	builder, ok := defaultBuilders[typeName]
	defaultBuildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported transformation type %q (supported: %v)", typeName, SupportedTypes())
	}
	return builder(cfg)
}
