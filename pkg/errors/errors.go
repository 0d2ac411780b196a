// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 求解引擎相关
	CodeValidationFail      Code = "VALIDATION_FAILED"
	CodeMalformedEdge       Code = "MALFORMED_EDGE"
	CodeNoFeasibleSolution  Code = "NO_FEASIBLE_SOLUTION"
	CodeTimeBudgetExceeded  Code = "TIME_BUDGET_EXCEEDED"
	CodeInternalConsistency Code = "INTERNAL_CONSISTENCY"
	CodeUnsupportedVariant  Code = "UNSUPPORTED_VARIANT"

	// 数据相关
	CodeDatabaseError Code = "DATABASE_ERROR"
	CodeCacheError    Code = "CACHE_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeMalformedEdge, CodeUnsupportedVariant:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeNoFeasibleSolution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason)).
		WithField("field", field)
}

// MalformedEdge 创建非法边错误
func MalformedEdge(index int, reason string) *AppError {
	return New(CodeMalformedEdge, fmt.Sprintf("边 edges[%d] 非法: %s", index, reason)).
		WithField("field", fmt.Sprintf("edges[%d]", index))
}

// NoFeasibleSolution 创建无可行解错误
func NoFeasibleSolution(reason string) *AppError {
	return New(CodeNoFeasibleSolution, reason)
}

// InternalConsistency 创建内部一致性错误（求解器传播缺陷）
func InternalConsistency(vehicle int, reason string) *AppError {
	return New(CodeInternalConsistency, fmt.Sprintf("车辆 %d 的路线复核失败: %s", vehicle, reason)).
		WithField("vehicle", vehicle)
}

// UnsupportedVariant 创建不支持的问题类型错误
func UnsupportedVariant(variant string) *AppError {
	return New(CodeUnsupportedVariant, fmt.Sprintf("不支持的问题类型 '%s'", variant)).
		WithField("field", "variant")
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// Addf 添加格式化的验证错误
func (ve *ValidationErrors) Addf(field, format string, args ...interface{}) {
	ve.Add(field, fmt.Sprintf(format, args...))
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// FirstField 返回第一个出错的字段
func (ve *ValidationErrors) FirstField() string {
	if len(ve.Errors) == 0 {
		return ""
	}
	return ve.Errors[0].Field
}

// ToAppError 转换为 AppError，首个出错字段写入 Fields["field"]
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeValidationFail, ve.Error())
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		if _, exists := err.Fields[e.Field]; !exists {
			err.Fields[e.Field] = e.Message
		}
	}
	err.Fields["field"] = ve.FirstField()
	return err
}

// FieldOf 返回错误中记录的出错字段
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Fields != nil {
		if f, ok := appErr.Fields["field"].(string); ok {
			return f
		}
	}
	return ""
}
