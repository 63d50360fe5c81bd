// tokengen 为已有用户签发访问令牌，便于在没有登录流程时调用 /api/draw；-revoke 把令牌加入 Redis 黑名单
//
//	CONFIG_FILE=config/dev.yaml go run ./cmd/tokengen -phone 13800000000
//	go run ./cmd/tokengen -revoke <token>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"lottery-server/internal/auth"
	"lottery-server/internal/config"
	infmysql "lottery-server/internal/infra/mysql"
	infrds "lottery-server/internal/infra/redis"
	"lottery-server/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	var (
		phone  = flag.String("phone", "", "user phone, looked up in MySQL")
		userID = flag.Int64("user-id", 0, "user id, skips the lookup")
		revoke = flag.String("revoke", "", "revoke this token instead of issuing one")
	)
	flag.Parse()
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fail(err)
	}
	config.SetCurrent(cfg)

	if *revoke != "" {
		if cfg.Redis.Addr == "" {
			fail(fmt.Errorf("revoke needs redis.addr configured"))
		}
		infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer infrds.Close()
		// 黑名单保留到令牌可能的最晚过期时间
		ttl := time.Duration(cfg.Auth.JWT.AccessTokenTTL) * time.Second
		if err := auth.RevokeToken(ctx, *revoke, time.Now().Add(ttl)); err != nil {
			fail(err)
		}
		fmt.Println("revoked")
		return
	}

	id, ph := *userID, *phone
	if id <= 0 {
		if ph == "" || cfg.Database.DSN == "" {
			fail(fmt.Errorf("need -user-id, or -phone with database.dsn configured"))
		}
		db := infmysql.Open(cfg)
		defer db.Close()
		u, err := store.NewMySQL(db).GetUserByPhone(ctx, ph)
		if err != nil {
			fail(fmt.Errorf("lookup %s: %w", ph, err))
		}
		id = u.ID
	}

	tok, err := auth.GenerateAccessToken(id, ph)
	if err != nil {
		fail(err)
	}
	fmt.Println(tok)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "tokengen:", err)
	os.Exit(1)
}
