package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Sink 错误：INVALID_INPUT
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NOT_SUPPORTED"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "index", "predict"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
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

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleIndex   = "index"   // 用户/物品索引
	ModuleSeen    = "seen"    // 已评分集合
	ModulePredict = "predict" // 预测文件解析
	ModuleFilter  = "filter"  // 过滤
	ModuleMapper  = "mapper"  // 结果映射
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// ErrorKind 区分致命错误的种类。
type ErrorKind string

const (
	// KindParse 输入行格式错误（索引行、评分行、预测行）。
	KindParse ErrorKind = "parse"
	// KindLookup 预测引用了用户索引表中不存在的用户。
	KindLookup ErrorKind = "lookup"
	// KindAssertion 分数无法解析为浮点数。
	KindAssertion ErrorKind = "assertion"
)

// JobError 是任务级致命错误：出现即中止整个任务，不做逐行恢复。
// Source/Line/Content 用于定位上游数据问题。
type JobError struct {
	Kind    ErrorKind
	Module  string
	Source  string // 文件路径，可为空
	Line    int    // 行号（从 1 开始），0 表示未知
	Content string // 出错行原文
	Message string
	Err     error
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if e.Source != "" {
		msg = fmt.Sprintf("%s (%s:%d)", msg, e.Source, e.Line)
	} else if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Content != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Content)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *JobError) Unwrap() error { return e.Err }

// NewParseError 创建格式错误。
func NewParseError(module, content, message string, err error) *JobError {
	return &JobError{Kind: KindParse, Module: module, Content: content, Message: message, Err: err}
}

// NewLookupError 创建查找错误。
func NewLookupError(module, content, message string) *JobError {
	return &JobError{Kind: KindLookup, Module: module, Content: content, Message: message}
}

// NewAssertionError 创建断言错误。
func NewAssertionError(module, content, message string, err error) *JobError {
	return &JobError{Kind: KindAssertion, Module: module, Content: content, Message: message, Err: err}
}

// WithPosition 补充文件与行号信息；已有的值不会被覆盖。
func WithPosition(err error, source string, line int) error {
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		return err
	}
	if jobErr.Source == "" {
		jobErr.Source = source
	}
	if jobErr.Line == 0 {
		jobErr.Line = line
	}
	return err
}

// GetJobError 获取 JobError，如果不是则返回 nil
func GetJobError(err error) *JobError {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return nil
}

func isKind(err error, kind ErrorKind) bool {
	if jobErr := GetJobError(err); jobErr != nil {
		return jobErr.Kind == kind
	}
	return false
}

// IsParseError 检查错误是否为格式错误
func IsParseError(err error) bool { return isKind(err, KindParse) }

// IsLookupError 检查错误是否为查找错误
func IsLookupError(err error) bool { return isKind(err, KindLookup) }

// IsAssertionError 检查错误是否为断言错误
func IsAssertionError(err error) bool { return isKind(err, KindAssertion) }
