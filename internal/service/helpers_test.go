package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"lottery-server/internal/model"
	"lottery-server/internal/store"

	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// failingStore 在事务内按配置注入失败
type failingStore struct {
	store.Store
	failRecord bool
	failOutbox bool
	failCommit bool
}

func (s *failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, s: s}, nil
}

type failingTx struct {
	store.Tx
	s *failingStore
}

func (t *failingTx) InsertDrawRecord(ctx context.Context, r *model.DrawRecord) error {
	if t.s.failRecord {
		return errInjected
	}
	return t.Tx.InsertDrawRecord(ctx, r)
}

func (t *failingTx) InsertOutbox(ctx context.Context, o *model.Outbox) error {
	if t.s.failOutbox {
		return errInjected
	}
	return t.Tx.InsertOutbox(ctx, o)
}

func (t *failingTx) Commit() error {
	if t.s.failCommit {
		_ = t.Tx.Rollback()
		return errInjected
	}
	return t.Tx.Commit()
}

// fakeIdempotency 进程内的进行中锁与结果缓存，key 按用户隔离
type fakeIdempotency struct {
	mu      sync.Mutex
	held    map[string]bool
	results map[string][]byte
	err     error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{held: map[string]bool{}, results: map[string][]byte{}}
}

func idemKey(userID int64, key string) string { return strconv.FormatInt(userID, 10) + ":" + key }

func (f *fakeIdempotency) TryLock(_ context.Context, userID int64, key string, _ time.Duration) (func(), bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	k := idemKey(userID, key)
	if f.held[k] {
		return nil, false, nil
	}
	f.held[k] = true
	return func() {
		f.mu.Lock()
		delete(f.held, k)
		f.mu.Unlock()
	}, true, nil
}

func (f *fakeIdempotency) LoadResult(_ context.Context, userID int64, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[idemKey(userID, key)], nil
}

func (f *fakeIdempotency) SaveResult(_ context.Context, userID int64, key string, body []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.results[idemKey(userID, key)] = body
	return nil
}

func seedPrizes(t *testing.T, svc CatalogService, probs ...int) []*model.Prize {
	t.Helper()
	out := make([]*model.Prize, 0, len(probs))
	for i, p := range probs {
		pz, err := svc.AddPrize(context.Background(), "p"+string(rune('0'+i)), p)
		require.NoError(t, err)
		out = append(out, pz)
	}
	return out
}

func seedUser(t *testing.T, svc CreditService, phone string, credits int64) *GrantOutput {
	t.Helper()
	out, err := svc.GrantCredits(context.Background(), GrantInput{Name: "用户" + phone[7:], Phone: phone, Amount: credits})
	require.NoError(t, err)
	return out
}
