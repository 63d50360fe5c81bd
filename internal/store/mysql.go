package store

import (
	"context"
	"database/sql"

	"lottery-server/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// MySQL 基于 sqlx 的实现，SQL 细节在 model 包
type MySQL struct {
	db *sqlx.DB
}

func NewMySQL(db *sqlx.DB) *MySQL { return &MySQL{db: db} }

// DB 返回底层连接
func (s *MySQL) DB() *sqlx.DB { return s.db }

func (s *MySQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	return &mysqlTx{tx: tx}, nil
}

func (s *MySQL) ListPrizes(ctx context.Context) ([]model.Prize, error) {
	list, err := model.ListPrizes(ctx, s.db)
	if err != nil {
		return nil, errors.Wrap(err, "list prizes")
	}
	return list, nil
}

func (s *MySQL) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	u, err := model.GetUserByPhone(ctx, s.db, phone)
	return u, translate(err, "get user by phone")
}

func (s *MySQL) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := model.GetUserByID(ctx, s.db, id)
	return u, translate(err, "get user by id")
}

func (s *MySQL) ListDrawRecordsByPhone(ctx context.Context, phone string) ([]model.DrawRecord, error) {
	list, err := model.ListDrawRecordsByPhone(ctx, s.db, phone)
	if err != nil {
		return nil, errors.Wrap(err, "list draw records")
	}
	return list, nil
}

func (s *MySQL) ListOutboxPending(ctx context.Context, limit int) ([]model.OutboxRow, error) {
	list, err := model.ListOutboxPending(ctx, s.db, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list outbox pending")
	}
	return list, nil
}

func (s *MySQL) MarkOutboxSent(ctx context.Context, id int64) error {
	return errors.Wrap(model.MarkOutboxSent(ctx, s.db, id), "mark outbox sent")
}

func (s *MySQL) MarkOutboxFailed(ctx context.Context, id int64, lastError string) error {
	return errors.Wrap(model.MarkOutboxFailed(ctx, s.db, id, lastError), "mark outbox failed")
}

func (s *MySQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type mysqlTx struct {
	tx *sqlx.Tx
}

func (t *mysqlTx) SumPrizeProbabilityForUpdate(ctx context.Context) (int, error) {
	sum, err := model.SumPrizeProbabilityForUpdate(ctx, t.tx)
	return sum, errors.Wrap(err, "sum prize probability")
}

func (t *mysqlTx) InsertPrize(ctx context.Context, p *model.Prize) error {
	return errors.Wrap(p.Insert(ctx, t.tx), "insert prize")
}

func (t *mysqlTx) DeletePrize(ctx context.Context, id int64) (bool, error) {
	n, err := model.DeletePrize(ctx, t.tx, id)
	if err != nil {
		return false, errors.Wrap(err, "delete prize")
	}
	return n > 0, nil
}

func (t *mysqlTx) GetUserByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	u, err := model.GetUserByIDForUpdate(ctx, t.tx, id)
	return u, translate(err, "lock user by id")
}

func (t *mysqlTx) GetUserByPhoneForUpdate(ctx context.Context, phone string) (*model.User, error) {
	u, err := model.GetUserByPhoneForUpdate(ctx, t.tx, phone)
	return u, translate(err, "lock user by phone")
}

func (t *mysqlTx) InsertUser(ctx context.Context, u *model.User) error {
	return translate(u.Insert(ctx, t.tx), "insert user")
}

func (t *mysqlTx) AddCredits(ctx context.Context, userID int64, amount int64) error {
	return errors.Wrap(model.AddUserCredits(ctx, t.tx, userID, amount), "add credits")
}

func (t *mysqlTx) ConsumeCredit(ctx context.Context, userID int64) (bool, error) {
	ok, err := model.ConsumeUserCredit(ctx, t.tx, userID)
	return ok, errors.Wrap(err, "consume credit")
}

func (t *mysqlTx) InsertDrawRecord(ctx context.Context, r *model.DrawRecord) error {
	return errors.Wrap(r.Insert(ctx, t.tx), "insert draw record")
}

func (t *mysqlTx) InsertOutbox(ctx context.Context, o *model.Outbox) error {
	return errors.Wrap(o.Insert(ctx, t.tx), "insert outbox")
}

func (t *mysqlTx) Commit() error {
	return translate(t.tx.Commit(), "commit")
}

func (t *mysqlTx) Rollback() error {
	return translate(t.tx.Rollback(), "rollback")
}

// translate 将驱动层错误转换为 store 的哨兵错误，其余错误附带上下文
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, sql.ErrTxDone):
		return ErrTxDone
	case model.IsDuplicateKeyError(err):
		return errors.WithMessage(ErrDuplicate, err.Error())
	}
	return errors.Wrap(err, msg)
}
