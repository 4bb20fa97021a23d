package session

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError 参数格式错误，在任何外部调用之前检出
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// CooldownError 距离上次请求验证码的间隔不足
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	seconds := int(e.Remaining.Seconds())
	if e.Remaining > time.Duration(seconds)*time.Second {
		seconds++
	}
	return fmt.Sprintf("请求过于频繁，请 %d 秒后再试", seconds)
}

// PreconditionError 当前会话阶段不允许执行该操作
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

// TransportError 底层 Telegram 调用失败
// Msg 为展示给用户的文案，Err 保留原始错误用于日志
type TransportError struct {
	Msg string
	Err error
}

func (e *TransportError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsCodeExpired reports whether err means the login code is no longer usable
// and the whole phone flow has to be restarted.
func IsCodeExpired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "PHONE_CODE_EXPIRED") || strings.Contains(msg, "CODE_HASH_EXPIRED")
}

// IsRateLimited reports whether err is a Telegram flood-wait style rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "FLOOD_WAIT") || strings.Contains(msg, "FLOOD_PREMIUM_WAIT")
}
