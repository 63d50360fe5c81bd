package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"lottery-server/common"
	"lottery-server/common/helper"
	"lottery-server/common/logger"
	"lottery-server/internal/config"
	"lottery-server/internal/lottery"
	"lottery-server/internal/metrics"
	"lottery-server/internal/model"
	"lottery-server/internal/state"
	"lottery-server/internal/store"

	"go.uber.org/zap"
)

const (
	// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
	defaultTxTimeout = 3 * time.Second
	// 进行中锁 TTL：覆盖一次抽奖事务的最长耗时
	inflightLockTTL = 10 * time.Second
	// 结果缓存 TTL：窗口内用同一 Idempotency-Key 重放返回首次结果
	idemResultTTL = 24 * time.Hour

	// 动态阈值名（Nacos 热更新）
	thresholdDrawTxTimeoutMs = "draw_tx_timeout_ms"

	TopicDrawCompleted = "draw_completed"
)

// Idempotency 抽奖 Idempotency-Key 支撑：进行中锁吸收并发重复，结果缓存吸收完成后的重放
// key 按用户隔离
type Idempotency interface {
	TryLock(ctx context.Context, userID int64, key string, ttl time.Duration) (unlock func(), ok bool, err error)
	LoadResult(ctx context.Context, userID int64, key string) ([]byte, error)
	SaveResult(ctx context.Context, userID int64, key string, body []byte, ttl time.Duration) error
}

type DrawInput struct {
	UserID         int64
	TraceID        string
	IdempotencyKey string
}

type DrawOutput struct {
	Prize            lottery.Outcome `json:"prize"`
	RemainingCredits int64           `json:"remaining_credits"`
	RecordID         int64           `json:"record_id"`
	State            string          `json:"state"`
}

// DrawService 抽奖：扣一次次数并写入抽奖记录，二者在同一事务内原子完成
type DrawService interface {
	Draw(ctx context.Context, in DrawInput) (*DrawOutput, error)
}

type drawService struct {
	st        store.Store
	rnd       lottery.RandomSource
	idem      Idempotency
	txTimeout time.Duration
	topic     string
}

type DrawOption func(*drawService)

// WithIdempotency 启用 Idempotency-Key（通常为 Redis）
func WithIdempotency(i Idempotency) DrawOption {
	return func(s *drawService) { s.idem = i }
}

// WithTxTimeout 覆盖默认事务超时
func WithTxTimeout(d time.Duration) DrawOption {
	return func(s *drawService) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// WithOutboxTopic 覆盖 outbox 主题
func WithOutboxTopic(topic string) DrawOption {
	return func(s *drawService) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func NewDrawService(st store.Store, rnd lottery.RandomSource, opts ...DrawOption) DrawService {
	s := &drawService{st: st, rnd: rnd, txTimeout: defaultTxTimeout, topic: TopicDrawCompleted}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draw 带 Idempotency-Key 时先查结果缓存，命中直接返回首次结果；
// 再取进行中锁，被占用返回 ErrDuplicateInFlight；成功后缓存结果
func (s *drawService) Draw(ctx context.Context, in DrawInput) (*DrawOutput, error) {
	start := time.Now()
	result, outcome := "fail", "none"
	m := state.NewMachine()
	defer func() {
		metrics.RecordDraw(result, outcome, start)
		if m.Current() != state.StateIdle {
			metrics.RecordDrawState(m.Current())
		}
	}()

	if in.UserID <= 0 {
		return nil, validationf("invalid user id")
	}
	ctx = logger.WithTraceID(ctx, in.TraceID)

	useIdem := s.idem != nil && in.IdempotencyKey != ""
	if useIdem {
		if out := s.cachedResult(ctx, in); out != nil {
			result = "replay"
			return out, nil
		}
		unlock, ok, err := s.idem.TryLock(ctx, in.UserID, in.IdempotencyKey, inflightLockTTL)
		switch {
		case err != nil:
			// 锁服务不可用时降级为无锁，次数正确性仍由行锁保证
			logger.WarnCtx(ctx, "[Draw] 获取进行中锁失败，降级继续", zap.String("idem_key", in.IdempotencyKey), zap.Error(err))
			useIdem = false
		case !ok:
			// 首个请求可能刚完成
			if out := s.cachedResult(ctx, in); out != nil {
				result = "replay"
				return out, nil
			}
			result = "duplicate"
			logger.InfoCtx(ctx, "[Draw] 重复请求进行中", zap.String("idem_key", in.IdempotencyKey))
			return nil, ErrDuplicateInFlight
		default:
			defer unlock()
		}
	}

	out, err := s.run(ctx, in, m)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			result = "insufficient"
		}
		logger.InfoCtx(ctx, "[Draw] 抽奖未完成", zap.Int64("user_id", in.UserID),
			zap.String("state", m.Current()), zap.Error(err))
		return nil, err
	}

	result = "success"
	if out.Prize.Won() {
		outcome = "win"
	} else {
		outcome = "lose"
	}
	if useIdem {
		s.saveResult(ctx, in, out)
	}
	return out, nil
}

// run 按状态机推进：锁用户并检查次数 → 掷随机数选奖 → 扣次数、写记录与 outbox 并提交
// 任一步失败整体回滚，m 停在 rolled_back
func (s *drawService) run(ctx context.Context, in DrawInput, m *state.Machine) (*DrawOutput, error) {
	// 奖品目录在事务外读取，不占用行锁时间
	prizes, err := s.st.ListPrizes(ctx)
	if err != nil {
		m.Fail()
		logger.ErrorCtx(ctx, "[Draw] 读取奖品目录失败", zap.Error(err))
		return nil, ErrTransactionFailed
	}

	txCtx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	tx, err := s.st.Begin(txCtx)
	if err != nil {
		m.Fail()
		logger.ErrorCtx(ctx, "[Draw] 开启事务失败", zap.Error(err))
		return nil, ErrTransactionFailed
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
			m.Fail()
		}
	}()

	var u *model.User
	err = m.Step(state.EvtCreditOK, func() error {
		var err error
		u, err = tx.GetUserByIDForUpdate(txCtx, in.UserID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrUserNotFound
		case err != nil:
			logger.ErrorCtx(ctx, "[Draw] 锁定用户失败", zap.Int64("user_id", in.UserID), zap.Error(err))
			return ErrTransactionFailed
		case u.Credits < 1:
			return ErrInsufficientCredits
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		roll   int
		picked lottery.Outcome
	)
	err = m.Step(state.EvtSelect, func() error {
		r, err := s.rnd.Roll()
		if err != nil {
			logger.ErrorCtx(ctx, "[Draw] 生成随机数失败", zap.Error(err))
			return ErrTransactionFailed
		}
		roll, picked = r, lottery.Select(toLottery(prizes), r)
		logger.DebugCtx(ctx, "[Draw] 选奖", zap.Int("roll", r), zap.Int("prize_count", len(prizes)), zap.Int64("prize_id", picked.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 记录中冗余用户与奖品快照，奖品删除后历史记录不变
	rec := &model.DrawRecord{
		PrizeID:   picked.ID,
		PrizeName: picked.Name,
		UserID:    u.ID,
		UserName:  u.Name,
		UserPhone: u.Phone,
		TraceID:   in.TraceID,
		CreatedAt: time.Now().UnixMilli(),
	}
	err = m.Step(state.EvtCommit, func() error {
		ok, err := tx.ConsumeCredit(txCtx, u.ID)
		if err != nil {
			logger.ErrorCtx(ctx, "[Draw] 扣减次数失败", zap.Int64("user_id", u.ID), zap.Error(err))
			return ErrTransactionFailed
		}
		if !ok {
			return ErrInsufficientCredits
		}
		if err := tx.InsertDrawRecord(txCtx, rec); err != nil {
			logger.ErrorCtx(ctx, "[Draw] 写入抽奖记录失败", zap.Int64("user_id", u.ID), zap.Error(err))
			return ErrTransactionFailed
		}
		ob, err := model.NewOutbox(s.topic, strconv.FormatInt(rec.ID, 10), map[string]any{
			"event":      s.topic,
			"record_id":  rec.ID,
			"user_id":    u.ID,
			"user_phone": u.Phone,
			"prize_id":   picked.ID,
			"prize_name": picked.Name,
			"roll":       roll,
			"created_at": rec.CreatedAt,
			"trace_id":   in.TraceID,
		})
		if err != nil {
			logger.ErrorCtx(ctx, "[Draw] 构造 outbox 失败", zap.Error(err))
			return ErrTransactionFailed
		}
		if err := tx.InsertOutbox(txCtx, ob); err != nil {
			logger.ErrorCtx(ctx, "[Draw] 写入 outbox 失败", zap.Error(err))
			return ErrTransactionFailed
		}
		if err := tx.Commit(); err != nil {
			logger.ErrorCtx(ctx, "[Draw] 提交事务失败", zap.Int64("user_id", u.ID), zap.Error(err))
			return ErrTransactionFailed
		}
		committed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPrize(picked.ID)
	logger.InfoCtx(ctx, "[Draw] 抽奖完成",
		zap.Int64("user_id", u.ID), zap.String("phone", helper.MaskPhone(u.Phone)),
		zap.Int("roll", roll), zap.Int64("prize_id", picked.ID), zap.String("prize_name", picked.Name),
		zap.Int64("record_id", rec.ID), zap.Int64("remaining", u.Credits-1))

	return &DrawOutput{
		Prize:            picked,
		RemainingCredits: u.Credits - 1,
		RecordID:         rec.ID,
		State:            m.Current(),
	}, nil
}

// cachedResult 结果缓存不可用或解析失败时按未命中处理
func (s *drawService) cachedResult(ctx context.Context, in DrawInput) *DrawOutput {
	bs, err := s.idem.LoadResult(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		logger.WarnCtx(ctx, "[Draw] 读取幂等结果失败", zap.String("idem_key", in.IdempotencyKey), zap.Error(err))
		return nil
	}
	if len(bs) == 0 {
		return nil
	}
	var out DrawOutput
	if err := common.JsonUnmarshal(bs, &out); err != nil {
		logger.WarnCtx(ctx, "[Draw] 幂等结果格式错误", zap.String("idem_key", in.IdempotencyKey), zap.Error(err))
		return nil
	}
	logger.InfoCtx(ctx, "[Draw] 幂等结果命中", zap.String("idem_key", in.IdempotencyKey), zap.Int64("record_id", out.RecordID))
	return &out
}

// saveResult 已提交的结果写缓存；写失败只影响之后的重放
func (s *drawService) saveResult(ctx context.Context, in DrawInput, out *DrawOutput) {
	body, err := common.JsonMarshalToString(out)
	if err == nil {
		err = s.idem.SaveResult(ctx, in.UserID, in.IdempotencyKey, []byte(body), idemResultTTL)
	}
	if err != nil {
		logger.WarnCtx(ctx, "[Draw] 缓存幂等结果失败", zap.String("idem_key", in.IdempotencyKey), zap.Error(err))
	}
}

// withTxTimeout 上游已有 deadline 时沿用；否则使用动态阈值或默认超时
func (s *drawService) withTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	d := s.txTimeout
	if ms := config.GetThreshold(thresholdDrawTxTimeoutMs, 0); ms > 0 {
		d = time.Duration(ms) * time.Millisecond
	}
	return context.WithTimeout(ctx, d)
}
