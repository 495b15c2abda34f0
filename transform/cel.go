package transform

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("slots", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// CELColumn 定义一个由 CEL 表达式计算的特征列。
type CELColumn struct {
	Name string // 特征列名
	Expr string // CEL 表达式，必须返回数值
}

// CEL 是自定义变换规则：每个特征列由一条 CEL (Common Expression Language)
// 表达式计算，输入变量 slots 是各席位的属性摘要列表。
//
// 表达式语法（CEL 标准语法）：
//   - slots[0].P2M.mean                      第 1 席位 P2M 属性的均值
//   - slots[0].P2M.mean - slots[1].P2M.mean  两席位均值之差
//   - slots[0].P2M.variance > 4.0 ? 1.0 : 0.0
//
// 表达式在构造时编译并缓存；Apply 对每场比赛只做求值，完全确定。
type CEL struct {
	columns  []CELColumn
	programs []cel.Program
}

// NewCEL 编译全部列表达式并返回规则；任何一条编译失败立即报 schema 错误。
func NewCEL(columns []CELColumn) (*CEL, error) {
	if len(columns) == 0 {
		return nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeInvalidInput,
			"cel rule needs at least one column expression")
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
			fmt.Sprintf("cel environment: %v", err))
	}
	programs := make([]cel.Program, len(columns))
	for i, col := range columns {
		ast, issues := env.Compile(col.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
				fmt.Sprintf("column %q compile error: %v", col.Name, issues.Err()))
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
				fmt.Sprintf("column %q program error: %v", col.Name, err))
		}
		programs[i] = prg
	}
	return &CEL{columns: columns, programs: programs}, nil
}

func (r *CEL) Name() string { return "cel" }

func (r *CEL) Apply(slots []*ensemble.ObjectModel, _ rand.Source) ([]float64, []string, error) {
	input := map[string]interface{}{"slots": buildSlotInput(slots)}

	values := make([]float64, len(r.columns))
	columns := make([]string, len(r.columns))
	for i, col := range r.columns {
		out, _, err := r.programs[i].Eval(input)
		if err != nil {
			return nil, nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
				fmt.Sprintf("column %q eval error: %v", col.Name, err))
		}
		switch v := out.Value().(type) {
		case float64:
			values[i] = v
		case int64:
			values[i] = float64(v)
		case bool:
			if v {
				values[i] = 1
			}
		default:
			return nil, nil, core.NewDomainError(core.ModuleTransform, core.ErrorCodeSchema,
				fmt.Sprintf("column %q must evaluate to a number, got %T", col.Name, out.Value()))
		}
		columns[i] = col.Name
	}
	return values, columns, nil
}

// buildSlotInput 构建 CEL 求值输入：每个席位一个 attr -> {mean, variance} 的摘要。
func buildSlotInput(slots []*ensemble.ObjectModel) []interface{} {
	out := make([]interface{}, len(slots))
	for k, om := range slots {
		if om == nil {
			out[k] = map[string]interface{}{}
			continue
		}
		means := om.Mean()
		variances := om.Variance()
		attrs := make(map[string]interface{}, len(means))
		for _, attr := range om.Attributes() {
			attrs[attr] = map[string]interface{}{
				"mean":     means[attr],
				"variance": variances[attr],
			}
		}
		out[k] = attrs
	}
	return out
}
