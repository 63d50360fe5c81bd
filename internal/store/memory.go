package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"lottery-server/internal/model"
)

// Memory 进程内实现
// 写事务串行执行（等价于对整个库加锁），事务在数据副本上操作，提交时整体替换，回滚即丢弃副本。
// 仅适用于单实例：多实例部署必须使用 MySQL。
type Memory struct {
	sem  chan struct{} // 写事务锁
	mu   sync.RWMutex  // 保护 data
	data *memData
}

type memData struct {
	prizes  []model.Prize
	users   map[int64]model.User
	phones  map[string]int64
	records []model.DrawRecord
	outbox  []model.Outbox

	prizeSeq, userSeq, recordSeq, outboxSeq int64
}

func NewMemory() *Memory {
	return &Memory{
		sem: make(chan struct{}, 1),
		data: &memData{
			users:  make(map[int64]model.User),
			phones: make(map[string]int64),
		},
	}
}

func (d *memData) clone() *memData {
	c := *d
	c.prizes = append([]model.Prize(nil), d.prizes...)
	c.records = append([]model.DrawRecord(nil), d.records...)
	c.outbox = append([]model.Outbox(nil), d.outbox...)
	c.users = make(map[int64]model.User, len(d.users))
	for k, v := range d.users {
		c.users[k] = v
	}
	c.phones = make(map[string]int64, len(d.phones))
	for k, v := range d.phones {
		c.phones[k] = v
	}
	return &c
}

func (s *Memory) Begin(ctx context.Context) (Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.RLock()
	snap := s.data.clone()
	s.mu.RUnlock()
	return &memTx{s: s, ctx: ctx, data: snap}, nil
}

func (s *Memory) ListPrizes(ctx context.Context) ([]model.Prize, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.Prize, 0, len(s.data.prizes)), s.data.prizes...), nil
}

func (s *Memory) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.userByPhone(phone)
}

func (s *Memory) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.userByID(id)
}

func (s *Memory) ListDrawRecordsByPhone(ctx context.Context, phone string) ([]model.DrawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	list := make([]model.DrawRecord, 0)
	for _, r := range s.data.records {
		if r.UserPhone == phone {
			list = append(list, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt > list[j].CreatedAt
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (s *Memory) ListOutboxPending(ctx context.Context, limit int) ([]model.OutboxRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.OutboxRow, 0)
	for _, o := range s.data.outbox {
		if len(rows) >= limit {
			break
		}
		if o.Status == model.OutboxPending && o.RetryCount < model.OutboxMaxRetry {
			rows = append(rows, model.OutboxRow{ID: o.ID, Topic: o.Topic, BizKey: o.BizKey, Payload: o.Payload})
		}
	}
	return rows, nil
}

func (s *Memory) MarkOutboxSent(ctx context.Context, id int64) error {
	return s.updateOutbox(ctx, id, func(o *model.Outbox) {
		o.Status = model.OutboxSent
	})
}

func (s *Memory) MarkOutboxFailed(ctx context.Context, id int64, lastError string) error {
	return s.updateOutbox(ctx, id, func(o *model.Outbox) {
		if o.RetryCount >= model.OutboxMaxRetry-1 {
			o.Status = model.OutboxFailed
		}
		o.LastError = lastError
		o.RetryCount++
	})
}

func (s *Memory) updateOutbox(ctx context.Context, id int64, fn func(o *model.Outbox)) error {
	// 与写事务互斥，避免提交时覆盖这里的修改
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.outbox {
		if s.data.outbox[i].ID == id {
			fn(&s.data.outbox[i])
			s.data.outbox[i].UpdatedAt = time.Now().UnixMilli()
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) Ping(context.Context) error { return nil }

func (d *memData) userByPhone(phone string) (*model.User, error) {
	id, ok := d.phones[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return d.userByID(id)
}

func (d *memData) userByID(id int64) (*model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

type memTx struct {
	s    *Memory
	ctx  context.Context
	data *memData
	done bool
}

// check 事务已结束或 ctx 已取消时拒绝继续操作
func (t *memTx) check(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	if err := t.ctx.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

func (t *memTx) release() {
	t.done = true
	t.data = nil
	<-t.s.sem
}

func (t *memTx) SumPrizeProbabilityForUpdate(ctx context.Context) (int, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	sum := 0
	for _, p := range t.data.prizes {
		sum += p.Probability
	}
	return sum, nil
}

func (t *memTx) InsertPrize(ctx context.Context, p *model.Prize) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.data.prizeSeq++
	p.ID = t.data.prizeSeq
	p.CreatedAt = time.Now().UnixMilli()
	t.data.prizes = append(t.data.prizes, *p)
	return nil
}

func (t *memTx) DeletePrize(ctx context.Context, id int64) (bool, error) {
	if err := t.check(ctx); err != nil {
		return false, err
	}
	for i, p := range t.data.prizes {
		if p.ID == id {
			t.data.prizes = append(t.data.prizes[:i:i], t.data.prizes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetUserByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return t.data.userByID(id)
}

func (t *memTx) GetUserByPhoneForUpdate(ctx context.Context, phone string) (*model.User, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return t.data.userByPhone(phone)
}

func (t *memTx) InsertUser(ctx context.Context, u *model.User) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.data.phones[u.Phone]; ok {
		return ErrDuplicate
	}
	now := time.Now().UnixMilli()
	t.data.userSeq++
	u.ID = t.data.userSeq
	u.CreatedAt, u.UpdatedAt = now, now
	t.data.users[u.ID] = *u
	t.data.phones[u.Phone] = u.ID
	return nil
}

func (t *memTx) AddCredits(ctx context.Context, userID int64, amount int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	u, ok := t.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Credits += amount
	u.UpdatedAt = time.Now().UnixMilli()
	t.data.users[userID] = u
	return nil
}

func (t *memTx) ConsumeCredit(ctx context.Context, userID int64) (bool, error) {
	if err := t.check(ctx); err != nil {
		return false, err
	}
	u, ok := t.data.users[userID]
	if !ok || u.Credits < 1 {
		return false, nil
	}
	u.Credits--
	u.UpdatedAt = time.Now().UnixMilli()
	t.data.users[userID] = u
	return true, nil
}

func (t *memTx) InsertDrawRecord(ctx context.Context, r *model.DrawRecord) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.data.recordSeq++
	r.ID = t.data.recordSeq
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	t.data.records = append(t.data.records, *r)
	return nil
}

func (t *memTx) InsertOutbox(ctx context.Context, o *model.Outbox) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	t.data.outboxSeq++
	o.ID = t.data.outboxSeq
	o.Status = model.OutboxPending
	o.CreatedAt, o.UpdatedAt = now, now
	t.data.outbox = append(t.data.outbox, *o)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	// 与 database/sql 一致：开启事务的 ctx 结束后提交失败并回滚
	if err := t.ctx.Err(); err != nil {
		t.release()
		return err
	}
	t.s.mu.Lock()
	t.s.data = t.data
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.release()
	return nil
}
