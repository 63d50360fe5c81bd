package lottery

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"sync"

	xrand "golang.org/x/exp/rand"
)

// RandomSource 提供 [0, RollSpace) 内均匀分布的整数
type RandomSource interface {
	Roll() (int, error)
}

// CryptoSource 生产环境使用，基于 crypto/rand，调用方无法预测
type CryptoSource struct{}

func NewCryptoSource() CryptoSource { return CryptoSource{} }

func (CryptoSource) Roll() (int, error) {
	return secureIntn(RollSpace)
}

func secureIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid bound %d", n)
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// 随机源不可用时不能降级为可预测的值
		return 0, fmt.Errorf("crypto/rand: %w", err)
	}
	return int(v.Int64()), nil
}

// SeededSource 可复现的伪随机源，用于模拟与测试，不可用于线上抽奖
type SeededSource struct {
	mu  sync.Mutex
	rng *xrand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: xrand.New(xrand.NewSource(seed))}
}

func (s *SeededSource) Roll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(RollSpace), nil
}

// FixedSource 按顺序循环返回给定的值
type FixedSource struct {
	mu     sync.Mutex
	values []int
	i      int
}

func NewFixedSource(values ...int) *FixedSource {
	return &FixedSource{values: values}
}

func (f *FixedSource) Roll() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0, fmt.Errorf("fixed source is empty")
	}
	v := f.values[f.i%len(f.values)]
	f.i++
	return v, nil
}
