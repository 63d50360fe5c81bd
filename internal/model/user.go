package model

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lottery-server/common/logger"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// User 用户表
// 手机号为唯一标识；password 为根据手机号派生的凭证摘要，不对外输出
type User struct {
	ID        int64  `db:"id" json:"id"`                 // 自增ID
	Name      string `db:"name" json:"name"`             // 姓名
	Phone     string `db:"phone" json:"phone"`           // 手机号（唯一）
	Password  string `db:"password" json:"-"`            // 凭证摘要
	Credits   int64  `db:"credits" json:"credits"`       // 剩余抽奖次数，非负
	CreatedAt int64  `db:"created_at" json:"created_at"` // 创建时间（13位毫秒时间戳）
	UpdatedAt int64  `db:"updated_at" json:"updated_at"` // 更新时间（13位毫秒时间戳）
}

const userColumns = "id, name, phone, password, credits, created_at, updated_at"

// GetUserByPhone 按手机号查询用户（不加锁）
func GetUserByPhone(ctx context.Context, exec sqlx.ExtContext, phone string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE phone = ? LIMIT 1"

	var u User
	if err := sqlx.GetContext(ctx, exec, &u, query, phone); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("get user by phone failed", zap.String("phone", phone), zap.Error(err))
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByPhoneForUpdate 按手机号查询用户并加行锁
// 必须在事务中调用
func GetUserByPhoneForUpdate(ctx context.Context, exec sqlx.ExtContext, phone string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE phone = ? FOR UPDATE"

	var u User
	if err := sqlx.GetContext(ctx, exec, &u, query, phone); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("get user by phone for update failed", zap.String("phone", phone), zap.Error(err))
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID 按ID查询用户（不加锁）
func GetUserByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ? LIMIT 1"

	var u User
	if err := sqlx.GetContext(ctx, exec, &u, query, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("get user by id failed", zap.Int64("user_id", id), zap.Error(err))
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByIDForUpdate 按ID查询用户并加行锁
// 必须在事务中调用
func GetUserByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ? FOR UPDATE"

	var u User
	if err := sqlx.GetContext(ctx, exec, &u, query, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("get user by id for update failed", zap.Int64("user_id", id), zap.Error(err))
		}
		return nil, err
	}
	return &u, nil
}

// Insert 插入用户，成功后回填 ID 与时间戳
func (u *User) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := getCurrentMillis()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `INSERT INTO users (name, phone, password, credits, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, query, u.Name, u.Phone, u.Password, u.Credits, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if !IsDuplicateKeyError(err) {
			logger.Error("insert user failed", zap.String("phone", u.Phone), zap.Error(err))
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id

	logger.Info("user created",
		zap.Int64("id", u.ID),
		zap.String("phone", u.Phone),
		zap.Int64("credits", u.Credits))
	return nil
}

// AddUserCredits 增加抽奖次数
func AddUserCredits(ctx context.Context, exec sqlx.ExtContext, id int64, amount int64) error {
	query := `UPDATE users SET credits = credits + ?, updated_at = ? WHERE id = ?`

	if _, err := exec.ExecContext(ctx, query, amount, getCurrentMillis(), id); err != nil {
		logger.Error("add user credits failed",
			zap.Int64("user_id", id),
			zap.Int64("amount", amount),
			zap.Error(err))
		return err
	}
	return nil
}

// ConsumeUserCredit 扣减一次抽奖次数；次数不足时不修改并返回 false
func ConsumeUserCredit(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error) {
	query := `UPDATE users SET credits = credits - 1, updated_at = ? WHERE id = ? AND credits >= 1`

	res, err := exec.ExecContext(ctx, query, getCurrentMillis(), id)
	if err != nil {
		logger.Error("consume user credit failed", zap.Int64("user_id", id), zap.Error(err))
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsDuplicateKeyError 判断是否为 MySQL 唯一键冲突（1062 Duplicate entry）
func IsDuplicateKeyError(err error) bool {
	var me *mysqlerr.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// getCurrentMillis 获取当前13位毫秒时间戳
func getCurrentMillis() int64 {
	return time.Now().UnixMilli()
}
