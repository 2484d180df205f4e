package domain

import (
	"errors"
	"net/http"
)

// 定义通用业务错误
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")

	// 借阅流程与库存
	ErrUnavailable           = errors.New("book unavailable")
	ErrDuplicatePending      = errors.New("duplicate request")
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// 登录
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoRoleAssigned     = errors.New("no role assigned")
)

// AppError 应用错误，包含错误码和消息
type AppError struct {
	Code    int               // HTTP 状态码
	Message string            // 用户友好的错误消息
	Err     error             // 原始错误
	Fields  map[string]string // 表单字段错误
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// 创建常见错误的便捷函数
func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg, Err: ErrNotFound}
}

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg, Err: ErrInvalidInput}
}

// NewValidationError reports form field errors.
func NewValidationError(fields map[string]string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: "validation failed", Err: ErrInvalidInput, Fields: fields}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: msg, Err: ErrAlreadyExists}
}

func NewForbiddenError(msg string) *AppError {
	return &AppError{Code: http.StatusForbidden, Message: msg, Err: ErrForbidden}
}

func NewUnauthorizedError(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: msg, Err: ErrUnauthorized}
}

// NewUnavailableError is returned when a student requests a book that cannot be lent.
func NewUnavailableError() *AppError {
	return &AppError{Code: http.StatusConflict, Message: "This book is not available for request.", Err: ErrUnavailable}
}

func NewDuplicatePendingError() *AppError {
	return &AppError{Code: http.StatusConflict, Message: "You have already requested this book.", Err: ErrDuplicatePending}
}

func NewInsufficientInventoryError() *AppError {
	return &AppError{Code: http.StatusConflict, Message: "No copies left to remove.", Err: ErrInsufficientInventory}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: "Invalid username or password", Err: ErrInvalidCredentials}
}

func NewNoRoleAssignedError() *AppError {
	return &AppError{Code: http.StatusForbidden, Message: "No role assigned to this account", Err: ErrNoRoleAssigned}
}

// StatusOf maps any error to an HTTP status code.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoRoleAssigned):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrDuplicatePending),
		errors.Is(err, ErrUnavailable), errors.Is(err, ErrInsufficientInventory):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
