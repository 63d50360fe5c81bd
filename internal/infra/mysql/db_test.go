package mysql

import (
	"testing"
	"time"

	"lottery-server/internal/config"
)

func TestOptions(t *testing.T) {
	cfg := &config.Config{}
	opt := Options(cfg)
	if opt.MaxOpenConns != 50 || opt.MaxIdleConns != 25 {
		t.Fatalf("defaults = %+v", opt)
	}

	cfg.Database.MaxOpenConns = 10
	cfg.Database.MaxIdleConns = 20
	cfg.Database.ConnMaxLifetimeSec = 60
	cfg.Database.LockWaitTimeoutSec = 3
	opt = Options(cfg)
	if opt.MaxIdleConns != 5 {
		t.Fatalf("idle = %d", opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime != time.Minute || opt.LockWaitTimeoutSec != 3 {
		t.Fatalf("opt = %+v", opt)
	}
}
