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

// Prize 奖品表
// 奖品只增删不修改；probability 为百分比整数 [0,100]
type Prize struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Probability int    `db:"probability" json:"probability"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
}

const tablePrizes = "prizes"

// ListPrizes 查询全部奖品，按 id 升序（选奖区间依赖稳定顺序）
func ListPrizes(ctx context.Context, db *sqlx.DB) ([]Prize, error) {
	list := make([]Prize, 0)
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  tablePrizes,
		Fields: common.EnumFields(Prize{}),
		Order:  []exp.OrderedExpression{g.C("id").Asc()},
	})
	if err != nil {
		logger.Error("list prizes failed", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// SumPrizeProbabilityForUpdate 先锁 catalog_lock 哨兵行再统计概率总和，必须在事务中调用
// prizes 为空时 FOR UPDATE 锁不到任何行（READ COMMITTED 下也没有间隙锁），
// 所有新增奖品的事务都在哨兵行上串行，总和不会超过上限
func SumPrizeProbabilityForUpdate(ctx context.Context, exec sqlx.ExtContext) (int, error) {
	var lockID int64
	if err := sqlx.GetContext(ctx, exec, &lockID, "SELECT id FROM catalog_lock WHERE id = 1 FOR UPDATE"); err != nil {
		logger.Error("lock prize catalog failed", zap.Error(err))
		return 0, err
	}

	var sum int
	if err := sqlx.GetContext(ctx, exec, &sum, "SELECT COALESCE(SUM(probability), 0) FROM prizes"); err != nil {
		logger.Error("sum prize probability failed", zap.Error(err))
		return 0, err
	}
	return sum, nil
}

// Insert 新增奖品，成功后回填 ID
func (p *Prize) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	p.CreatedAt = getCurrentMillis()

	res, err := common.InsertCtx(ctx, exec, tablePrizes, g.Record{
		"name":        p.Name,
		"probability": p.Probability,
		"created_at":  p.CreatedAt,
	})
	if err != nil {
		logger.Error("insert prize failed", zap.String("name", p.Name), zap.Error(err))
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// DeletePrize 按 id 删除奖品，返回受影响行数
func DeletePrize(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error) {
	res, err := common.DeleteCtx(ctx, exec, tablePrizes, g.C("id").Eq(id))
	if err != nil {
		logger.Error("delete prize failed", zap.Int64("id", id), zap.Error(err))
		return 0, err
	}
	return res.RowsAffected()
}
