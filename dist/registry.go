package dist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/bagkit/core"
)

// 族注册表：model_spec 中的族名在此解析。
// 内置族在 init 中注册；自定义族调用 Register / RegisterVector 即可被配置驱动。

var (
	families       = make(map[string]Family)
	vectorFamilies = make(map[string]VectorFamily)
	familiesMu     sync.RWMutex
)

// Register 注册一个一元分布族。建议在包 init 中调用。
func Register(f Family) {
	if f == nil || f.Name() == "" {
		return
	}
	familiesMu.Lock()
	defer familiesMu.Unlock()
	families[f.Name()] = f
}

// RegisterVector 注册一个多元分布族（dependent=true 时选用）。
func RegisterVector(f VectorFamily) {
	if f == nil || f.Name() == "" {
		return
	}
	familiesMu.Lock()
	defer familiesMu.Unlock()
	vectorFamilies[f.Name()] = f
}

// SupportedFamilies 返回已注册的一元族名列表（排序），用于错误提示与校验。
func SupportedFamilies() []string {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup 按族名查找一元族；未注册的族名是 schema 错误，并附上已支持列表。
func Lookup(name string) (Family, error) {
	familiesMu.RLock()
	f, ok := families[name]
	familiesMu.RUnlock()
	if !ok {
		return nil, core.NewDomainError(core.ModuleDist, core.ErrorCodeSchema,
			fmt.Sprintf("unknown family %q (supported: %v)", name, SupportedFamilies()))
	}
	return f, nil
}

// LookupVector 按族名查找多元族。
func LookupVector(name string) (VectorFamily, error) {
	familiesMu.RLock()
	f, ok := vectorFamilies[name]
	familiesMu.RUnlock()
	if !ok {
		familiesMu.RLock()
		names := make([]string, 0, len(vectorFamilies))
		for n := range vectorFamilies {
			names = append(names, n)
		}
		familiesMu.RUnlock()
		sort.Strings(names)
		return nil, core.NewDomainError(core.ModuleDist, core.ErrorCodeSchema,
			fmt.Sprintf("unknown vector family %q (supported: %v)", name, names))
	}
	return f, nil
}

func init() {
	Register(PoissonGamma{})
	Register(NormalPlugin{})
	Register(NormalStochastic{})
	Register(NormalInverseGamma{})
	Register(BernoulliBeta{})
	RegisterVector(MVNormalInverseWishart{})
}
