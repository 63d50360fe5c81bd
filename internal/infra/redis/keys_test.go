package redis

import (
	"context"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	if got := DrawIdemLockKey(7, "abc"); got != "draw:idem:lock:7:abc" {
		t.Fatalf("DrawIdemLockKey = %s", got)
	}
	if got := DrawIdemResultKey(7, "abc"); got != "draw:idem:result:7:abc" {
		t.Fatalf("DrawIdemResultKey = %s", got)
	}
	if DrawIdemLockKey(7, "abc") == DrawIdemLockKey(8, "abc") {
		t.Fatal("same key for different users must not collide")
	}
	if got := RateLimitKey("ip", "1.2.3.4"); got != "ratelimit:ip:1.2.3.4" {
		t.Fatalf("RateLimitKey = %s", got)
	}
	if got := TokenBlacklistKey("t"); got != "token:blacklist:t" {
		t.Fatalf("TokenBlacklistKey = %s", got)
	}
}

func TestPingWithoutClient(t *testing.T) {
	if err := Ping(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("ping without client should be nil, got %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close without client should be nil, got %v", err)
	}
}
