package service

import (
	"context"
	"strings"

	"lottery-server/common/helper"
	"lottery-server/common/logger"
	"lottery-server/internal/model"
	"lottery-server/internal/store"

	"go.uber.org/zap"
)

// LedgerService 抽奖记录查询；写入只发生在抽奖事务内
type LedgerService interface {
	ListWinRecords(ctx context.Context, phone string) ([]model.DrawRecord, error)
}

type ledgerService struct {
	st store.Store
}

func NewLedgerService(st store.Store) LedgerService { return &ledgerService{st: st} }

// ListWinRecords 按 created_at、id 倒序；无记录返回空切片
func (s *ledgerService) ListWinRecords(ctx context.Context, phone string) ([]model.DrawRecord, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validationf("phone required")
	}
	// GrantCredits 只接受合法手机号，格式不合法的号码不可能有记录
	if !helper.ValidateMobile(phone) {
		return []model.DrawRecord{}, nil
	}
	list, err := s.st.ListDrawRecordsByPhone(ctx, phone)
	if err != nil {
		logger.ErrorCtx(ctx, "[Ledger] 查询抽奖记录失败", zap.String("phone", helper.MaskPhone(phone)), zap.Error(err))
		return nil, ErrStorage
	}
	if list == nil {
		list = []model.DrawRecord{}
	}
	return list, nil
}
