package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 目录加载：DATA_LOAD_ERROR
//   - 标题解析：UNKNOWN_TITLE
//   - 召回：INSUFFICIENT_SEEDS, INSUFFICIENT_SUPPORT
//   - Store：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "UNKNOWN_TITLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "catalog", "resolve", "recall"）
	Err     error  // 底层原因（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层原因的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用（如索引尚未构建完成）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐领域错误代码
	ErrorCodeDataLoad            = "DATA_LOAD_ERROR"      // 数据源缺列或不可读，启动期致命
	ErrorCodeUnknownTitle        = "UNKNOWN_TITLE"        // 种子标题无法解析
	ErrorCodeInsufficientSeeds   = "INSUFFICIENT_SEEDS"   // 可用种子数不足
	ErrorCodeInsufficientSupport = "INSUFFICIENT_SUPPORT" // 种子评分数据不足且回退失败
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleCatalog  = "catalog"  // 目录模块
	ModuleResolve  = "resolve"  // 标题解析
	ModuleRecall   = "recall"   // 召回引擎
	ModuleService  = "service"  // 服务模块
	ModulePipeline = "pipeline" // Pipeline
)

// NewDataLoadError 创建目录加载错误
func NewDataLoadError(message string, err error) *DomainError {
	return WrapDomainError(ModuleCatalog, ErrorCodeDataLoad, "catalog: "+message, err)
}

// NewUnknownTitleError 创建未知标题错误
func NewUnknownTitleError(title string) *DomainError {
	return NewDomainError(ModuleResolve, ErrorCodeUnknownTitle, fmt.Sprintf("resolve: unknown title %q", title))
}

// NewInsufficientSeedsError 创建种子不足错误
func NewInsufficientSeedsError(got, want int) *DomainError {
	return NewDomainError(ModuleRecall, ErrorCodeInsufficientSeeds,
		fmt.Sprintf("recall: insufficient seeds: got %d, need at least %d", got, want))
}

// NewInsufficientSupportError 创建评分支撑不足错误
func NewInsufficientSupportError(movieID int64, ratings, minSupport int) *DomainError {
	return NewDomainError(ModuleRecall, ErrorCodeInsufficientSupport,
		fmt.Sprintf("recall: movie %d has %d ratings, need %d", movieID, ratings, minSupport))
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsDataLoad 检查错误是否为 DATA_LOAD_ERROR
func IsDataLoad(err error) bool {
	return hasCode(err, ErrorCodeDataLoad)
}

// IsUnknownTitle 检查错误是否为 UNKNOWN_TITLE
func IsUnknownTitle(err error) bool {
	return hasCode(err, ErrorCodeUnknownTitle)
}

// IsInsufficientSeeds 检查错误是否为 INSUFFICIENT_SEEDS
func IsInsufficientSeeds(err error) bool {
	return hasCode(err, ErrorCodeInsufficientSeeds)
}

// IsInsufficientSupport 检查错误是否为 INSUFFICIENT_SUPPORT
func IsInsufficientSupport(err error) bool {
	return hasCode(err, ErrorCodeInsufficientSupport)
}
