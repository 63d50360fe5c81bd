package rocketmq

import (
	"context"
	"errors"
	"strings"
	"time"

	"lottery-server/common/logger"
	"lottery-server/internal/config"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"go.uber.org/zap"
)

// ErrDisabled MQ 未配置时由 stub 发布器返回，消息留在 outbox 中等待下次投递
var ErrDisabled = errors.New("rocketmq: disabled")

// Publisher 发送消息的最小接口
type Publisher interface {
	Publish(ctx context.Context, topic, key string, body []byte) error
}

// Options 生产者参数
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Topics    []string
}

// OptionsFrom 从服务配置构造生产者参数
func OptionsFrom(cfg *config.Config) Options {
	opt := Options{
		Endpoint:  normalizeEndpoint(cfg.RocketMQ.Endpoint),
		AccessKey: strings.TrimSpace(cfg.RocketMQ.AccessKey),
		SecretKey: strings.TrimSpace(cfg.RocketMQ.SecretKey),
	}
	if t := topicName(cfg.RocketMQ.TopicDraw); t != "" {
		opt.Topics = []string{t}
	}
	return opt
}

// Enabled 是否具备启动生产者的最小配置
func (o Options) Enabled() bool {
	// 缺少凭证时 SDK 会在签名阶段崩溃
	return o.Endpoint != "" && o.AccessKey != "" && o.SecretKey != ""
}

// Producer 基于 RocketMQ v5 客户端的发布器
type Producer struct {
	p rmq.Producer
}

func (r *Producer) Publish(ctx context.Context, topic, key string, body []byte) error {
	msg := &rmq.Message{Topic: topicName(topic), Body: body}
	if key != "" {
		msg.SetKeys(key)
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.p.Send(c, msg)
	return err
}

// Close 优雅关闭生产者
func (r *Producer) Close() error { return r.p.GracefulStop() }

// stubPublisher MQ 未启用时使用
type stubPublisher struct{}

func (stubPublisher) Publish(_ context.Context, topic, _ string, _ []byte) error {
	logger.Debug("[mq disabled] keep message in outbox", zap.String("topic", topic))
	return ErrDisabled
}

// Start 创建并启动生产者；未配置或启动失败时返回 stub 发布器与 enabled=false
func Start(opt Options) (pub Publisher, enabled bool) {
	if !opt.Enabled() {
		if opt.Endpoint != "" {
			logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		}
		return stubPublisher{}, false
	}
	// 避免 SDK 默认写 /logs
	rmq.ResetLogger()

	cfg := &rmq.Config{
		Endpoint:    opt.Endpoint,
		Credentials: &credentials.SessionCredentials{AccessKey: opt.AccessKey, AccessSecret: opt.SecretKey},
	}
	var opts []rmq.ProducerOption
	if len(opt.Topics) > 0 {
		opts = append(opts, rmq.WithTopics(opt.Topics...))
	}
	p, err := rmq.NewProducer(cfg, opts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		return stubPublisher{}, false
	}

	// 异步启动，最多等待 2 秒
	startDone := make(chan error, 1)
	go func() { startDone <- p.Start() }()
	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed (outbox will keep pending)", zap.Error(err))
			return stubPublisher{}, false
		}
	case <-time.After(2 * time.Second):
		logger.Warn("rocketmq: producer start timeout (outbox will keep pending)")
		return stubPublisher{}, false
	}
	logger.Info("rocketmq enabled", zap.String("endpoint", opt.Endpoint), zap.Strings("topics", opt.Topics))
	return &Producer{p: p}, true
}

// normalizeEndpoint 去掉协议头，多地址时取第一个
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	return endpoint
}

// topicName RocketMQ 5 的 topic 不允许 '.'
func topicName(t string) string {
	return strings.TrimSpace(strings.ReplaceAll(t, ".", "_"))
}
