package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"lottery-server/internal/lottery"
	"lottery-server/internal/state"
	"lottery-server/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawFixture struct {
	st      *store.Memory
	catalog CatalogService
	credit  CreditService
	ledger  LedgerService
}

func newDrawFixture(t *testing.T, probs ...int) *drawFixture {
	t.Helper()
	st := store.NewMemory()
	f := &drawFixture{
		st:      st,
		catalog: NewCatalogService(st),
		credit:  NewCreditService(st),
		ledger:  NewLedgerService(st),
	}
	seedPrizes(t, f.catalog, probs...)
	return f
}

func TestDrawSelectsByRoll(t *testing.T) {
	tests := []struct {
		roll     int
		wantName string
		wantWin  bool
	}{
		{0, "p0", true},
		{30, "p0", true},
		{31, "p1", true},
		{81, "p1", true},
		{85, lottery.NoWinName, false},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			ctx := context.Background()
			f := newDrawFixture(t, 30, 50)
			u := seedUser(t, f.credit, "13800000000", 1)
			svc := NewDrawService(f.st, lottery.NewFixedSource(tt.roll))

			out, err := svc.Draw(ctx, DrawInput{UserID: u.ID, TraceID: "t-1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, out.Prize.Name)
			assert.Equal(t, tt.wantWin, out.Prize.Won())
			assert.Equal(t, int64(0), out.RemainingCredits)
			assert.Equal(t, state.StateCommitted, out.State)

			recs, err := f.ledger.ListWinRecords(ctx, u.Phone)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, out.RecordID, recs[0].ID)
			assert.Equal(t, out.Prize.ID, recs[0].PrizeID)
			assert.Equal(t, tt.wantName, recs[0].PrizeName)
			assert.Equal(t, u.Name, recs[0].UserName)
		})
	}
}

func TestDrawNTimes(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 30, 50)
	u := seedUser(t, f.credit, "13800000001", 10)
	svc := NewDrawService(f.st, lottery.NewSeededSource(42))

	const n = 7
	for i := 0; i < n; i++ {
		_, err := svc.Draw(ctx, DrawInput{UserID: u.ID})
		require.NoError(t, err)
	}

	snap, err := f.credit.GetCredits(ctx, u.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(10-n), snap.Credits)
	recs, err := f.ledger.ListWinRecords(ctx, u.Phone)
	require.NoError(t, err)
	assert.Len(t, recs, n)

	pending, err := f.st.ListOutboxPending(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, pending, n)
	assert.Equal(t, TopicDrawCompleted, pending[0].Topic)
}

func TestDrawConcurrentSingleCredit(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 100)
	u := seedUser(t, f.credit, "13800000002", 1)
	svc := NewDrawService(f.st, lottery.NewCryptoSource())

	const k = 16
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Draw(ctx, DrawInput{UserID: u.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrInsufficientCredits):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, k-1, insufficient)
	snap, err := f.credit.GetCredits(ctx, u.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Credits)
	recs, err := f.ledger.ListWinRecords(ctx, u.Phone)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestDrawErrors(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 50)
	u := seedUser(t, f.credit, "13800000003", 1)
	svc := NewDrawService(f.st, lottery.NewFixedSource(1))

	_, err := svc.Draw(ctx, DrawInput{UserID: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Draw(ctx, DrawInput{UserID: 999})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Draw(ctx, DrawInput{UserID: u.ID})
	require.NoError(t, err)
	_, err = svc.Draw(ctx, DrawInput{UserID: u.ID})
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// 随机源耗尽发生在次数检查之后，次数不变
	v := seedUser(t, f.credit, "13800000013", 1)
	broken := NewDrawService(f.st, lottery.NewFixedSource())
	_, err = broken.Draw(ctx, DrawInput{UserID: v.ID})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	snap, err := f.credit.GetCredits(ctx, v.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Credits)
}

func TestDrawRollbackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		fs   failingStore
	}{
		{"ledger append fails", failingStore{failRecord: true}},
		{"outbox fails", failingStore{failOutbox: true}},
		{"commit fails", failingStore{failCommit: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newDrawFixture(t, 30, 50)
			u := seedUser(t, f.credit, "13800000004", 3)

			fs := tt.fs
			fs.Store = f.st
			svc := NewDrawService(&fs, lottery.NewFixedSource(10))

			_, err := svc.Draw(ctx, DrawInput{UserID: u.ID})
			assert.ErrorIs(t, err, ErrTransactionFailed)

			snap, err := f.credit.GetCredits(ctx, u.Phone)
			require.NoError(t, err)
			assert.Equal(t, int64(3), snap.Credits)
			recs, err := f.ledger.ListWinRecords(ctx, u.Phone)
			require.NoError(t, err)
			assert.Empty(t, recs)
			pending, err := f.st.ListOutboxPending(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestDrawCancelledContext(t *testing.T) {
	f := newDrawFixture(t, 30)
	u := seedUser(t, f.credit, "13800000005", 2)
	svc := NewDrawService(f.st, lottery.NewFixedSource(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Draw(ctx, DrawInput{UserID: u.ID})
	assert.ErrorIs(t, err, ErrTransactionFailed)

	snap, err := f.credit.GetCredits(context.Background(), u.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Credits)
}

func TestDrawTxTimeoutWhileLocked(t *testing.T) {
	f := newDrawFixture(t, 30)
	u := seedUser(t, f.credit, "13800000006", 2)
	svc := NewDrawService(f.st, lottery.NewFixedSource(0), WithTxTimeout(30*time.Millisecond))

	// 另一事务长期持锁，抽奖应在超时后失败而不是一直等待
	held, err := f.st.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = held.Rollback() }()

	start := time.Now()
	_, err = svc.Draw(context.Background(), DrawInput{UserID: u.ID})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDrawIdempotencyKeyInFlight(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 30)
	u := seedUser(t, f.credit, "13800000007", 3)
	idem := newFakeIdempotency()
	svc := NewDrawService(f.st, lottery.NewFixedSource(0), WithIdempotency(idem))

	unlock, ok, err := idem.TryLock(ctx, u.ID, "k1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Draw(ctx, DrawInput{UserID: u.ID, IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, ErrDuplicateInFlight)
	unlock()

	// 锁服务异常时降级继续
	idem.err = errors.New("redis down")
	_, err = svc.Draw(ctx, DrawInput{UserID: u.ID, IdempotencyKey: "k2"})
	require.NoError(t, err)

	snap, err := f.credit.GetCredits(ctx, u.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Credits)
}

func TestDrawIdempotencyKeyReplay(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 30)
	u := seedUser(t, f.credit, "13800000008", 3)
	svc := NewDrawService(f.st, lottery.NewFixedSource(0, 90), WithIdempotency(newFakeIdempotency()))

	first, err := svc.Draw(ctx, DrawInput{UserID: u.ID, IdempotencyKey: "retry-1"})
	require.NoError(t, err)

	// 响应丢失后客户端用同一 key 重试：返回首次结果，不再扣次数
	again, err := svc.Draw(ctx, DrawInput{UserID: u.ID, IdempotencyKey: "retry-1"})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	snap, err := f.credit.GetCredits(ctx, u.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Credits)
	recs, err := f.ledger.ListWinRecords(ctx, u.Phone)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, first.RecordID, recs[0].ID)

	// 新 key 正常抽奖
	next, err := svc.Draw(ctx, DrawInput{UserID: u.ID, IdempotencyKey: "retry-2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RecordID, next.RecordID)
	assert.Equal(t, int64(1), next.RemainingCredits)
}

func TestDrawIdempotencyKeyScopedPerUser(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 30)
	a := seedUser(t, f.credit, "13800000009", 1)
	b := seedUser(t, f.credit, "13800000010", 1)
	idem := newFakeIdempotency()
	svc := NewDrawService(f.st, lottery.NewFixedSource(0), WithIdempotency(idem))

	// a 的请求进行中，不影响 b 使用相同 key
	unlock, ok, err := idem.TryLock(ctx, a.ID, "same", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	defer unlock()

	out, err := svc.Draw(ctx, DrawInput{UserID: b.ID, IdempotencyKey: "same"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.RemainingCredits)

	_, err = svc.Draw(ctx, DrawInput{UserID: a.ID, IdempotencyKey: "same"})
	assert.ErrorIs(t, err, ErrDuplicateInFlight)
}

func TestDrawFailureEndsRolledBack(t *testing.T) {
	ctx := context.Background()
	f := newDrawFixture(t, 30)
	rich := seedUser(t, f.credit, "13800000011", 2)
	poor := seedUser(t, f.credit, "13800000012", 1)
	_, err := NewDrawService(f.st, lottery.NewFixedSource(0)).Draw(ctx, DrawInput{UserID: poor.ID})
	require.NoError(t, err)

	tests := []struct {
		name    string
		st      store.Store
		rnd     lottery.RandomSource
		userID  int64
		wantErr error
	}{
		{"insufficient credits", f.st, lottery.NewFixedSource(0), poor.ID, ErrInsufficientCredits},
		{"unknown user", f.st, lottery.NewFixedSource(0), 999, ErrUserNotFound},
		{"random source exhausted", f.st, lottery.NewFixedSource(), rich.ID, ErrTransactionFailed},
		{"commit fails", &failingStore{Store: f.st, failCommit: true}, lottery.NewFixedSource(0), rich.ID, ErrTransactionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDrawService(tt.st, tt.rnd).(*drawService)
			m := state.NewMachine()
			_, err := svc.run(ctx, DrawInput{UserID: tt.userID}, m)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, state.StateRolledBack, m.Current())
		})
	}

	snap, err := f.credit.GetCredits(ctx, rich.Phone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Credits)
}

func TestDrawMySQLRollbackOnLedgerFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.NewMySQL(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `probability`, `created_at` FROM `prizes` ORDER BY `id` ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "probability", "created_at"}).AddRow(1, "p0", 30, 1))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "password", "credits", "created_at", "updated_at"}).
			AddRow(7, "Tom", "13800000000", "x", 2, 1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET credits = credits - 1")).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO draw_records")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	svc := NewDrawService(st, lottery.NewFixedSource(5))
	_, err = svc.Draw(context.Background(), DrawInput{UserID: 7})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrawMySQLInsufficientCredits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.NewMySQL(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM `prizes`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "probability", "created_at"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "password", "credits", "created_at", "updated_at"}).
			AddRow(7, "Tom", "13800000000", "x", 0, 1, 1))
	mock.ExpectRollback()

	svc := NewDrawService(st, lottery.NewFixedSource(5))
	_, err = svc.Draw(context.Background(), DrawInput{UserID: 7})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}
