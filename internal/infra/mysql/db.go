package mysql

import (
	"time"

	"lottery-server/common"
	"lottery-server/internal/config"

	"github.com/jmoiron/sqlx"
)

// Open 按配置建立 MySQL 连接池，失败直接退出进程
func Open(cfg *config.Config) *sqlx.DB {
	return common.InitDB(cfg.Database.DSN, Options(cfg))
}

// Options 把配置映射为连接池参数
func Options(cfg *config.Config) common.DBOptions {
	opt := common.DBOptions{
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		LockWaitTimeoutSec: cfg.Database.LockWaitTimeoutSec,
	}
	if opt.MaxOpenConns <= 0 {
		opt.MaxOpenConns = 50
	}
	if opt.MaxIdleConns <= 0 || opt.MaxIdleConns > opt.MaxOpenConns {
		opt.MaxIdleConns = opt.MaxOpenConns / 2
	}
	return opt
}
