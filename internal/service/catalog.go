package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"lottery-server/common/logger"
	"lottery-server/internal/lottery"
	"lottery-server/internal/metrics"
	"lottery-server/internal/model"
	"lottery-server/internal/store"

	"go.uber.org/zap"
)

// 奖品名称最大字符数（与 prizes.name 列宽一致）
const maxPrizeNameLen = 64

// CatalogService 奖品目录：维护概率总和不超过 100
type CatalogService interface {
	AddPrize(ctx context.Context, name string, probability int) (*model.Prize, error)
	DeletePrize(ctx context.Context, id int64) error
	ListPrizes(ctx context.Context) ([]model.Prize, error)
}

type catalogService struct {
	st store.Store
}

func NewCatalogService(st store.Store) CatalogService { return &catalogService{st: st} }

// AddPrize 校验通过后在事务内锁定奖品集合，Σ+p ≤ 100 才写入
func (s *catalogService) AddPrize(ctx context.Context, name string, probability int) (p *model.Prize, err error) {
	result := "fail"
	defer func() { metrics.RecordCatalogOp("add", result) }()

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxPrizeNameLen {
		result = "invalid"
		return nil, validationf("prize name must be 1-%d characters", maxPrizeNameLen)
	}
	if probability < 0 || probability > lottery.MaxTotalProbability {
		result = "invalid"
		return nil, validationf("probability must be in [0,%d], got %d", lottery.MaxTotalProbability, probability)
	}

	tx, err := s.st.Begin(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 开启事务失败", zap.Error(err))
		return nil, ErrStorage
	}
	defer func() { _ = tx.Rollback() }()

	sum, err := tx.SumPrizeProbabilityForUpdate(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 统计概率总和失败", zap.Error(err))
		return nil, ErrStorage
	}
	if sum+probability > lottery.MaxTotalProbability {
		result = "capacity_exceeded"
		logger.InfoCtx(ctx, "[Catalog] 概率总和超限，拒绝添加",
			zap.String("name", name), zap.Int("probability", probability), zap.Int("current_sum", sum))
		return nil, ErrCapacityExceeded
	}

	p = &model.Prize{Name: name, Probability: probability}
	if err := tx.InsertPrize(ctx, p); err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 写入奖品失败", zap.Error(err))
		return nil, ErrStorage
	}
	if err := tx.Commit(); err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 提交事务失败", zap.Error(err))
		return nil, ErrStorage
	}

	result = "success"
	metrics.SetCatalogProbability(sum + probability)
	logger.InfoCtx(ctx, "[Catalog] 奖品已添加",
		zap.Int64("prize_id", p.ID), zap.String("name", name), zap.Int("probability", probability), zap.Int("sum", sum+probability))
	return p, nil
}

// DeletePrize 删除奖品；已有抽奖记录保留快照，不受影响
func (s *catalogService) DeletePrize(ctx context.Context, id int64) error {
	result := "fail"
	defer func() { metrics.RecordCatalogOp("delete", result) }()

	if id <= 0 {
		result = "not_found"
		return ErrPrizeNotFound
	}

	tx, err := s.st.Begin(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 开启事务失败", zap.Error(err))
		return ErrStorage
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := tx.DeletePrize(ctx, id)
	if err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 删除奖品失败", zap.Int64("prize_id", id), zap.Error(err))
		return ErrStorage
	}
	if !deleted {
		result = "not_found"
		return ErrPrizeNotFound
	}
	if err := tx.Commit(); err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 提交事务失败", zap.Error(err))
		return ErrStorage
	}

	result = "success"
	logger.InfoCtx(ctx, "[Catalog] 奖品已删除", zap.Int64("prize_id", id))
	return nil
}

// ListPrizes 按 id 升序返回
func (s *catalogService) ListPrizes(ctx context.Context) ([]model.Prize, error) {
	list, err := s.st.ListPrizes(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "[Catalog] 查询奖品失败", zap.Error(err))
		return nil, ErrStorage
	}
	return list, nil
}

// toLottery 转换为选择器使用的奖品列表，保持顺序
func toLottery(list []model.Prize) []lottery.Prize {
	out := make([]lottery.Prize, 0, len(list))
	for _, p := range list {
		out = append(out, lottery.Prize{ID: p.ID, Name: p.Name, Probability: p.Probability})
	}
	return out
}
