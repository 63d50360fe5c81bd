package service

import (
	"context"
	"errors"
	"strings"

	"lottery-server/common/helper"
	"lottery-server/common/logger"
	"lottery-server/internal/metrics"
	"lottery-server/internal/model"
	"lottery-server/internal/store"

	"go.uber.org/zap"
)

// 单次发放上限，防止误操作
const maxGrantAmount = 1_000_000

// UserSnapshot 用户抽奖次数视图
type UserSnapshot struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Credits int64  `json:"credits"`
}

type GrantInput struct {
	Name    string
	Phone   string
	Amount  int64
	TraceID string
}

type GrantOutput struct {
	UserSnapshot
	Created bool `json:"created"` // 本次发放是否新建了用户
}

// CreditService 抽奖次数：按手机号发放与查询
type CreditService interface {
	GrantCredits(ctx context.Context, in GrantInput) (*GrantOutput, error)
	GetCredits(ctx context.Context, phone string) (*UserSnapshot, error)
}

type creditService struct {
	st store.Store
}

func NewCreditService(st store.Store) CreditService { return &creditService{st: st} }

func snapshot(u *model.User) UserSnapshot {
	return UserSnapshot{ID: u.ID, Name: u.Name, Phone: u.Phone, Credits: u.Credits}
}

// GrantCredits 用户不存在则创建（密码为手机号的 bcrypt 哈希），存在则累加次数
// 同一手机号始终只有一行：并发创建冲突时在同一事务内加锁重读后累加
func (s *creditService) GrantCredits(ctx context.Context, in GrantInput) (out *GrantOutput, err error) {
	created := false
	result := "fail"
	defer func() { metrics.RecordCreditGrant(result, created, in.Amount) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if !helper.ValidateName(in.Name) {
		result = "invalid"
		return nil, validationf("name must be 1-%d characters", helper.MaxNameLen)
	}
	if !helper.ValidateMobile(in.Phone) {
		result = "invalid"
		return nil, validationf("invalid phone number")
	}
	if in.Amount < 1 || in.Amount > maxGrantAmount {
		result = "invalid"
		return nil, validationf("amount must be in [1,%d]", maxGrantAmount)
	}

	tx, err := s.st.Begin(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "[Credit] 开启事务失败", zap.Error(err))
		return nil, ErrStorage
	}
	defer func() { _ = tx.Rollback() }()

	u, err := tx.GetUserByPhoneForUpdate(ctx, in.Phone)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u, created, err = s.createOrAccumulate(ctx, tx, in)
		if err != nil {
			return nil, err
		}
	case err != nil:
		logger.ErrorCtx(ctx, "[Credit] 查询用户失败", zap.String("phone", helper.MaskPhone(in.Phone)), zap.Error(err))
		return nil, ErrStorage
	default:
		if err := tx.AddCredits(ctx, u.ID, in.Amount); err != nil {
			logger.ErrorCtx(ctx, "[Credit] 累加次数失败", zap.Int64("user_id", u.ID), zap.Error(err))
			return nil, ErrStorage
		}
		u.Credits += in.Amount
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorCtx(ctx, "[Credit] 提交事务失败", zap.Error(err))
		created = false
		return nil, ErrStorage
	}

	result = "success"
	logger.InfoCtx(ctx, "[Credit] 次数已发放",
		zap.Int64("user_id", u.ID), zap.String("name", helper.MaskName(u.Name)), zap.String("phone", helper.MaskPhone(u.Phone)),
		zap.Int64("amount", in.Amount), zap.Int64("credits", u.Credits), zap.Bool("created", created))
	return &GrantOutput{UserSnapshot: snapshot(u), Created: created}, nil
}

func (s *creditService) createOrAccumulate(ctx context.Context, tx store.Tx, in GrantInput) (*model.User, bool, error) {
	hash, err := helper.HashPassword(in.Phone)
	if err != nil {
		logger.ErrorCtx(ctx, "[Credit] 生成密码哈希失败", zap.Error(err))
		return nil, false, ErrStorage
	}
	u := &model.User{Name: in.Name, Phone: in.Phone, Password: hash, Credits: in.Amount}
	err = tx.InsertUser(ctx, u)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		logger.ErrorCtx(ctx, "[Credit] 创建用户失败", zap.Error(err))
		return nil, false, ErrStorage
	}

	// 并发创建：对方已提交，加锁重读后累加
	logger.InfoCtx(ctx, "[Credit] 手机号并发创建冲突，改为累加", zap.String("phone", helper.MaskPhone(in.Phone)))
	existing, err := tx.GetUserByPhoneForUpdate(ctx, in.Phone)
	if err != nil {
		logger.ErrorCtx(ctx, "[Credit] 冲突后重读用户失败", zap.Error(err))
		return nil, false, ErrStorage
	}
	if err := tx.AddCredits(ctx, existing.ID, in.Amount); err != nil {
		logger.ErrorCtx(ctx, "[Credit] 累加次数失败", zap.Int64("user_id", existing.ID), zap.Error(err))
		return nil, false, ErrStorage
	}
	existing.Credits += in.Amount
	return existing, false, nil
}

// GetCredits 每次直接读库，不做缓存
func (s *creditService) GetCredits(ctx context.Context, phone string) (*UserSnapshot, error) {
	phone = strings.TrimSpace(phone)
	if !helper.ValidateMobile(phone) {
		return nil, validationf("invalid phone number")
	}
	u, err := s.st.GetUserByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.ErrorCtx(ctx, "[Credit] 查询用户失败", zap.String("phone", helper.MaskPhone(phone)), zap.Error(err))
		return nil, ErrStorage
	}
	snap := snapshot(u)
	return &snap, nil
}
