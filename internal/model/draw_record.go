package model

import (
	"context"

	"lottery-server/common"
	"lottery-server/common/logger"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DrawRecord 对应 draw_records 表（追加式中奖记录）
// 奖品与用户信息在写入时冗余快照，后续奖品删除或用户改名不影响历史记录
// prize_id = 0 表示未中奖
type DrawRecord struct {
	ID        int64  `db:"id" json:"id"`
	PrizeID   int64  `db:"prize_id" json:"prize_id"`
	PrizeName string `db:"prize_name" json:"prize_name"`
	UserID    int64  `db:"user_id" json:"user_id"`
	UserName  string `db:"user_name" json:"user_name"`
	UserPhone string `db:"user_phone" json:"user_phone"`
	TraceID   string `db:"trace_id" json:"-"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

const tableDrawRecords = "draw_records"

// Insert 追加一条抽奖记录，成功后回填 ID
func (r *DrawRecord) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = getCurrentMillis()
	}

	query := `INSERT INTO draw_records (prize_id, prize_name, user_id, user_name, user_phone, trace_id, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, query, r.PrizeID, r.PrizeName, r.UserID, r.UserName, r.UserPhone, r.TraceID, r.CreatedAt)
	if err != nil {
		logger.Error("insert draw record failed",
			zap.Int64("user_id", r.UserID),
			zap.Int64("prize_id", r.PrizeID),
			zap.Error(err))
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// ListDrawRecordsByPhone 按手机号查询抽奖记录，按创建时间倒序
func ListDrawRecordsByPhone(ctx context.Context, db *sqlx.DB, phone string) ([]DrawRecord, error) {
	list := make([]DrawRecord, 0)
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  tableDrawRecords,
		Fields: common.EnumFields(DrawRecord{}),
		Ex:     []exp.Expression{g.C("user_phone").Eq(phone)},
		Order:  []exp.OrderedExpression{g.C("created_at").Desc(), g.C("id").Desc()},
	})
	if err != nil {
		logger.Error("list draw records failed", zap.Error(err))
		return nil, err
	}
	return list, nil
}
