package apperrors

import (
	"errors"
	"fmt"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

// TriviaError 可以直接回给客户端的业务错误
type TriviaError struct {
	Code    int
	Message string
	cause   error
}

func (e *TriviaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *TriviaError) Unwrap() error {
	return e.cause
}

// Is 按错误码比较，使带原因的错误也能匹配预定义错误
func (e *TriviaError) Is(target error) bool {
	t, ok := target.(*TriviaError)
	return ok && t.Code == e.Code
}

// 预定义错误
var (
	ErrMalformedPayload = &TriviaError{Code: protocol.ErrCodeInvalidMsg, Message: "无效的消息格式"}
	ErrUnknownEvent     = &TriviaError{Code: protocol.ErrCodeUnknownEvent, Message: "未知的事件类型"}
	ErrNotHost          = &TriviaError{Code: protocol.ErrCodeNotHost, Message: "只有主持人可以出题"}
	ErrNoActiveQuestion = &TriviaError{Code: protocol.ErrCodeNoActiveQuestion, Message: "当前没有进行中的题目"}
	ErrMaintenance      = &TriviaError{Code: protocol.ErrCodeServerMaintenance, Message: "服务器维护中"}
)

// Malformed 包装载荷解析/校验错误
func Malformed(cause error) error {
	return &TriviaError{
		Code:    ErrMalformedPayload.Code,
		Message: ErrMalformedPayload.Message,
		cause:   cause,
	}
}

// Code 提取错误码，非 TriviaError 返回 ErrCodeUnknown
func Code(err error) int {
	var te *TriviaError
	if errors.As(err, &te) {
		return te.Code
	}
	return protocol.ErrCodeUnknown
}
