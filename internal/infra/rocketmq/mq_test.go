package rocketmq

import (
	"context"
	"errors"
	"testing"

	"lottery-server/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{" 127.0.0.1:8081 ", "127.0.0.1:8081"},
		{"http://mq:8081", "mq:8081"},
		{"https://a:8081;b:8081", "a:8081"},
		{"a:8081, b:8081", "a:8081"},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.in); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionsFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.RocketMQ.Endpoint = "http://mq:8081"
	cfg.RocketMQ.TopicDraw = "lottery.draw_completed"

	opt := OptionsFrom(cfg)
	if opt.Endpoint != "mq:8081" {
		t.Fatalf("endpoint = %q", opt.Endpoint)
	}
	if len(opt.Topics) != 1 || opt.Topics[0] != "lottery_draw_completed" {
		t.Fatalf("topics = %v", opt.Topics)
	}
	if opt.Enabled() {
		t.Fatal("enabled without credentials")
	}

	cfg.RocketMQ.AccessKey, cfg.RocketMQ.SecretKey = "ak", "sk"
	if !OptionsFrom(cfg).Enabled() {
		t.Fatal("expected enabled")
	}
}

func TestStartDisabledReturnsStub(t *testing.T) {
	pub, enabled := Start(Options{})
	if enabled {
		t.Fatal("expected disabled")
	}
	err := pub.Publish(context.Background(), "draw_completed", "1", []byte("{}"))
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v", err)
	}
}
