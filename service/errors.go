package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind 业务错误分类，由 api 层映射为 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidInput
	KindConflict
	KindInvalidState
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConflict:
		return "Conflict"
	case KindInvalidState:
		return "InvalidState"
	default:
		return "Internal"
	}
}

// AppError 带分类的业务错误
type AppError struct {
	Kind     ErrorKind
	Message  string
	Details  string
	UserRole string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同一个哨兵错误的副本视为相等
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WithDetails 复制错误并附加详情
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithRole 复制错误并附加调用者角色
func (e *AppError) WithRole(role string) *AppError {
	cp := *e
	cp.UserRole = role
	return &cp
}

var (
	ErrUnauthorized      = newError(KindUnauthorized, "未登录或登录已过期")
	ErrAccessDenied      = newError(KindForbidden, "无权访问该预算计划")
	ErrForbidden         = newError(KindForbidden, "权限不足")
	ErrOwnerRequired     = newError(KindForbidden, "仅计划所有者可执行此操作")
	ErrNotFound          = newError(KindNotFound, "记录不存在")
	ErrPlanNotFound      = newError(KindNotFound, "预算计划不存在")
	ErrAccountNotFound   = newError(KindNotFound, "账户不存在")
	ErrCategoryNotFound  = newError(KindNotFound, "类别不存在")
	ErrGroupNotFound     = newError(KindNotFound, "类别分组不存在")
	ErrInvalidInput      = newError(KindInvalidInput, "参数错误")
	ErrInvalidTransfer   = newError(KindInvalidInput, "转出账户与转入账户不能相同")
	ErrInvalidOrExpired  = newError(KindInvalidInput, "邀请无效或已过期")
	ErrInvalidCode       = newError(KindInvalidInput, "验证码错误或已过期")
	ErrEmailTaken        = newError(KindConflict, "该邮箱已被注册")
	ErrAlreadyMember     = newError(KindConflict, "用户已是该计划成员")
	ErrPlanFull          = newError(KindInvalidState, "计划成员已满")
	ErrEmailMismatch     = newError(KindForbidden, "邀请邮箱与当前登录邮箱不一致")
	ErrLastOwner         = newError(KindInvalidState, "不能移除或降级最后一位所有者")
	ErrRemoveSelf        = newError(KindInvalidState, "不能移除自己")
	ErrLastPlan          = newError(KindInvalidState, "至少需要保留一个预算计划")
	ErrAccountInUse      = newError(KindInvalidState, "账户存在关联交易，请改为关闭账户")
	ErrPlanAccountsInUse = newError(KindInvalidState, "其他计划的交易仍在使用该计划的账户")
	ErrNoPlan            = newError(KindInvalidState, "尚未加入任何预算计划")
	ErrBadCredentials    = newError(KindUnauthorized, "邮箱或密码错误")
	ErrWrongPassword     = newError(KindInvalidInput, "原密码错误")
	ErrUserNotFound      = newError(KindNotFound, "用户不存在")
	ErrMessageNotFound   = newError(KindNotFound, "消息不存在")
	ErrMemberNotFound    = newError(KindNotFound, "成员不存在")
)

// KindOf 返回错误分类，未分类错误视为内部错误
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// notFoundAs 将 gorm 未找到错误转换为指定业务错误
func notFoundAs(err error, target *AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// invalidInput 构造参数错误
func invalidInput(format string, args ...any) *AppError {
	return newError(KindInvalidInput, fmt.Sprintf(format, args...))
}
