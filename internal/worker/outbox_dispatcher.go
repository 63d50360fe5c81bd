package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"lottery-server/common"
	"lottery-server/common/logger"
	infmq "lottery-server/internal/infra/rocketmq"
	"lottery-server/internal/metrics"
	"lottery-server/internal/store"

	"go.uber.org/zap"
)

const (
	defaultInterval = time.Second
	defaultBatch    = 100
)

// OutboxDispatcher 轮询 outbox 表，把已提交抽奖的事件投递到 MQ
// 投递失败累加重试次数，超过上限后不再扫描
type OutboxDispatcher struct {
	st       store.Store
	pub      infmq.Publisher
	interval time.Duration
	batch    int
}

func NewOutboxDispatcher(st store.Store, pub infmq.Publisher) *OutboxDispatcher {
	return &OutboxDispatcher{st: st, pub: pub, interval: defaultInterval, batch: defaultBatch}
}

// StartOutboxDispatcher 启动 Outbox 分发器，支持通过 ctx 优雅退出
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup, st store.Store, pub infmq.Publisher) {
	d := NewOutboxDispatcher(st, pub)
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()
}

// Run 阻塞直到 ctx 结束
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce 扫描一批待发送记录并投递，返回成功与失败条数
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (sent, failed int) {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := d.st.ListOutboxPending(c, d.batch)
	cancel()
	if err != nil {
		logger.Warn("outbox: list pending failed", zap.Error(err))
		return 0, 0
	}
	for _, r := range rows {
		if err := d.pub.Publish(ctx, r.Topic, r.BizKey, []byte(r.Payload)); err != nil {
			if errors.Is(err, infmq.ErrDisabled) {
				// MQ 未启用时不消耗重试次数
				return sent, failed
			}
			failed++
			metrics.RecordOutboxPublish(r.Topic, "failed")
			if mErr := d.st.MarkOutboxFailed(ctx, r.ID, truncateErr(err)); mErr != nil {
				logger.Warn("outbox: mark failed failed", zap.Int64("id", r.ID), zap.Error(mErr))
			}
			continue
		}
		sent++
		metrics.RecordOutboxPublish(r.Topic, "sent")
		if err := d.st.MarkOutboxSent(ctx, r.ID); err != nil {
			logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
		}
	}
	return sent, failed
}

func truncateErr(err error) string {
	s, _ := common.JsonMarshalToString(map[string]string{"error": err.Error()})
	if len(s) > 240 {
		return s[:240]
	}
	return s
}
