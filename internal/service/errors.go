package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 入参不合法（名称为空、概率越界、手机号格式错误等）
	ErrValidation = errors.New("validation failed")
	// ErrCapacityExceeded 奖品概率总和将超过 100
	ErrCapacityExceeded = errors.New("total prize probability would exceed 100")
	ErrPrizeNotFound    = errors.New("prize not found")
	ErrUserNotFound     = errors.New("user not found")
	// ErrInsufficientCredits 抽奖次数不足
	ErrInsufficientCredits = errors.New("insufficient draw credits")
	// ErrTransactionFailed 抽奖事务失败并已回滚（服务端错误，对调用方不透明）
	ErrTransactionFailed = errors.New("draw transaction failed")
	ErrStorage           = errors.New("storage error")
	// ErrDuplicateInFlight 相同 Idempotency-Key 的抽奖正在处理
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
