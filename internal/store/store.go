// Package store 持久化访问层：对奖品、用户、抽奖记录与 outbox 提供事务读写。
//
// 业务层只依赖 Store / Tx 接口；MySQL 实现用于线上，Memory 实现用于单测与本地无库运行。
package store

import (
	"context"
	"errors"

	"lottery-server/internal/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate 唯一键冲突（如手机号重复）
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrTxDone 事务已提交或已回滚
	ErrTxDone = errors.New("store: transaction already committed or rolled back")
)

// Store 非事务读操作与事务入口
type Store interface {
	// Begin 开启事务；ctx 取消或超时后事务不可再提交
	Begin(ctx context.Context) (Tx, error)

	ListPrizes(ctx context.Context) ([]model.Prize, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListDrawRecordsByPhone(ctx context.Context, phone string) ([]model.DrawRecord, error)

	ListOutboxPending(ctx context.Context, limit int) ([]model.OutboxRow, error)
	MarkOutboxSent(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, lastError string) error

	Ping(ctx context.Context) error
}

// Tx 事务内操作；调用方必须以 Commit 或 Rollback 结束
type Tx interface {
	// SumPrizeProbabilityForUpdate 统计概率总和并锁住奖品集合
	SumPrizeProbabilityForUpdate(ctx context.Context) (int, error)
	InsertPrize(ctx context.Context, p *model.Prize) error
	// DeletePrize 返回是否删除了记录
	DeletePrize(ctx context.Context, id int64) (bool, error)

	GetUserByIDForUpdate(ctx context.Context, id int64) (*model.User, error)
	GetUserByPhoneForUpdate(ctx context.Context, phone string) (*model.User, error)
	InsertUser(ctx context.Context, u *model.User) error
	AddCredits(ctx context.Context, userID int64, amount int64) error
	// ConsumeCredit 扣减一次抽奖次数，次数不足返回 false
	ConsumeCredit(ctx context.Context, userID int64) (bool, error)

	InsertDrawRecord(ctx context.Context, r *model.DrawRecord) error
	InsertOutbox(ctx context.Context, o *model.Outbox) error

	Commit() error
	Rollback() error
}
