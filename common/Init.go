package common

import (
	"strconv"
	"strings"
	"time"

	"lottery-server/common/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DBOptions 连接池参数
type DBOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// 行锁等待上限（秒），抽奖事务依赖它避免长时间阻塞
	LockWaitTimeoutSec int
}

// InitDB 初始化 MySQL 连接，失败直接退出进程
func InitDB(dsn string, opt DBOptions) *sqlx.DB {
	if opt.LockWaitTimeoutSec <= 0 {
		opt.LockWaitTimeoutSec = 5
	}
	db, err := sqlx.Connect("mysql", withSessionParams(dsn, opt.LockWaitTimeoutSec))
	if err != nil {
		logger.Fatalf("InitDB sqlx.Connect", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(opt.MaxOpenConns)
	db.SetMaxIdleConns(opt.MaxIdleConns)
	if opt.ConnMaxLifetime <= 0 {
		opt.ConnMaxLifetime = 2 * time.Minute
	}
	db.SetConnMaxLifetime(opt.ConnMaxLifetime)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Fatalf("InitDB failed:", zap.Error(err))
	}

	return db
}

// withSessionParams 追加 parseTime/loc 以及会话级锁等待超时
// 写在 DSN 上，对连接池中每个连接生效
func withSessionParams(dsn string, lockWaitSec int) string {
	params := make([]string, 0, 2)
	if !strings.Contains(dsn, "parseTime=") {
		params = append(params, "parseTime=true&loc=Local")
	}
	if !strings.Contains(dsn, "innodb_lock_wait_timeout=") {
		params = append(params, "innodb_lock_wait_timeout="+strconv.Itoa(lockWaitSec))
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
