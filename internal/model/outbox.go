package model

import (
	"context"

	"lottery-server/common"

	"github.com/jmoiron/sqlx"
)

// Outbox 状态
const (
	OutboxPending int8 = 1
	OutboxSent    int8 = 2
	OutboxFailed  int8 = 3

	// 超过该重试次数后不再投递
	OutboxMaxRetry = 10
)

// Outbox 对应 outbox 表（事务消息表），与业务数据在同一事务内写入
type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"` // 业务键，下游去重用
	Payload    string `db:"payload"` // JSON
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Insert 插入一条待发送记录
func (o *Outbox) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := getCurrentMillis()
	o.Status = OutboxPending
	o.CreatedAt, o.UpdatedAt = now, now

	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr, o.Topic, o.BizKey, o.Payload, o.Status, 0, "", now, now)
	if err != nil {
		return err
	}
	o.ID, _ = res.LastInsertId()
	return nil
}

// OutboxRow 是调度器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending 查询待发送且未超过重试上限的记录
func ListOutboxPending(ctx context.Context, exec sqlx.ExtContext, limit int) ([]OutboxRow, error) {
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"

	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, OutboxPending, OutboxMaxRetry, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 标记为已发送
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	sqlStr := "UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, OutboxSent, getCurrentMillis(), id)
	return err
}

// MarkOutboxFailed 记录失败并累加重试次数；第 OutboxMaxRetry 次失败后置为永久失败
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, OutboxMaxRetry-1, OutboxFailed, OutboxPending, lastError, getCurrentMillis(), id)
	return err
}

// NewOutbox 将 payload 序列化为 JSON 构造一条 Outbox
func NewOutbox(topic, bizKey string, payload any) (*Outbox, error) {
	s, err := common.JsonMarshalToString(payload)
	if err != nil {
		return nil, err
	}
	return &Outbox{Topic: topic, BizKey: bizKey, Payload: s}, nil
}
