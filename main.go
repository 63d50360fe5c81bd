package main

import (
	"context"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"lottery-server/common/logger"
	"lottery-server/internal/config"
	"lottery-server/internal/controller/api"
	infmysql "lottery-server/internal/infra/mysql"
	infrds "lottery-server/internal/infra/redis"
	infmq "lottery-server/internal/infra/rocketmq"
	"lottery-server/internal/lottery"
	"lottery-server/internal/service"
	"lottery-server/internal/store"
	"lottery-server/internal/worker"
	"lottery-server/routers"

	"github.com/beego/beego/v2/server/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()
	logger.InitLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 存储：未配置 DSN 时使用进程内存储（仅单实例）
	var st store.Store
	if cfg.Database.DSN != "" {
		db := infmysql.Open(cfg)
		defer db.Close()
		st = store.NewMySQL(db)
	} else {
		logger.Warn("database dsn empty, using in-memory store (single instance only)")
		st = store.NewMemory()
	}

	drawOpts := []service.DrawOption{
		service.WithTxTimeout(time.Duration(cfg.Draw.TxTimeoutMs) * time.Millisecond),
		service.WithOutboxTopic(cfg.RocketMQ.TopicDraw),
	}
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer infrds.Close()
	if rdb := infrds.Client(); rdb != nil {
		if err := infrds.Ping(ctx, 2*time.Second); err != nil {
			logger.Warn("redis ping failed, idempotency lock and rate limit degrade to open", zap.Error(err))
		}
		drawOpts = append(drawOpts, service.WithIdempotency(infrds.NewDrawIdempotency(rdb)))
	}

	api.Register(api.Services{
		Catalog: service.NewCatalogService(st),
		Credit:  service.NewCreditService(st),
		Ledger:  service.NewLedgerService(st),
		Draw:    service.NewDrawService(st, randomSource(cfg), drawOpts...),
		Store:   st,
	})
	routers.Init(cfg)

	var wg sync.WaitGroup
	pub, mqEnabled := infmq.Start(infmq.OptionsFrom(cfg))
	if mqEnabled {
		worker.StartOutboxDispatcher(ctx, &wg, st, pub)
	}

	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if oldCfg == nil || newCfg.Server.LogLevel != oldCfg.Server.LogLevel {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	go web.Run(addr)
	logger.Info("lottery-server started", zap.String("addr", addr), zap.Bool("demo_mode", cfg.Auth.DemoMode), zap.Bool("mq", mqEnabled))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := web.BeeApp.Server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
	if p, ok := pub.(*infmq.Producer); ok {
		if err := p.Close(); err != nil {
			logger.Warn("rocketmq producer stop", zap.Error(err))
		}
	}
}

// randomSource 生产默认 crypto/rand；seeded 仅用于压测复现
func randomSource(cfg *config.Config) lottery.RandomSource {
	if cfg.Draw.RandomSource == "seeded" {
		seed := cfg.Draw.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		logger.Warn("draw uses seeded random source, do not enable in production", zap.Uint64("seed", seed))
		return lottery.NewSeededSource(seed)
	}
	return lottery.NewCryptoSource()
}
