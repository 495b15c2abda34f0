package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分类（见错误代码常量）：
//   - schema 错误：缺列、未知分布族、特征列不一致，在任何拟合开始前立即报出
//   - 数据不足错误：新对象无任何历史测量，按对象报出并中止该场预测
//   - 用户回调错误：trainer/predictor/自定义拟合回调的失败，原样透传并附带 draw 序号
type DomainError struct {
	Code    string // 错误代码（如 "SCHEMA", "INSUFFICIENT_DATA"）
	Message string // 错误消息
	Module  string // 模块名称（如 "dist", "ensemble", "bagging"）
	Err     error  // 被包装的底层错误（用户回调错误时非 nil）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap 返回被包装的底层错误，支持 errors.Is / errors.As。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapCallableError 包装用户回调（trainer/predictor/自定义拟合）抛出的错误。
// message 应包含出错的 draw 序号，便于调用方定位是第几个 ensemble 成员失败。
func WrapCallableError(module, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeCallable,
		Message: message,
		Err:     err,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeSchema           = "SCHEMA"            // 结构错误：缺列、未知族名、列不一致
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 数据不足：对象无历史测量可估计
	ErrorCodeCallable         = "CALLABLE"          // 用户回调失败，附带 draw 序号
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在（store 键未命中等）
	ErrorCodeInvalidInput     = "INVALID_INPUT"     // 输入无效（num_draws < 1 等）
)

// 模块名称常量
const (
	ModuleDist      = "dist"      // 属性分布模块
	ModuleEnsemble  = "ensemble"  // 对象模型拟合模块
	ModuleTransform = "transform" // 特征变换模块
	ModuleBagging   = "bagging"   // 袋装训练模块
	ModulePredict   = "predict"   // 预测模块
	ModuleStore     = "store"     // 存储模块
	ModuleSource    = "source"    // 测量来源模块
	ModuleConfig    = "config"    // 配置模块
)

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsSchema 检查错误是否为结构错误。
func IsSchema(err error) bool { return hasCode(err, ErrorCodeSchema) }

// IsInsufficientData 检查错误是否为数据不足错误。
func IsInsufficientData(err error) bool { return hasCode(err, ErrorCodeInsufficientData) }

// IsCallable 检查错误是否为用户回调错误。
func IsCallable(err error) bool { return hasCode(err, ErrorCodeCallable) }

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// ErrStoreNotFound 是 store 键未命中的哨兵错误。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "key not found")
