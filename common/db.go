package common

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var dialect = g.Dialect("mysql")

// QueryArg 单表查询参数
type QueryArg struct {
	Db     sqlx.QueryerContext     // *sqlx.DB 或 *sqlx.Tx
	Table  string                  // 表名
	Fields []interface{}           // 查询字段，通常由 EnumFields 生成
	Ex     []exp.Expression        // where 条件
	Order  []exp.OrderedExpression // 排序
	Limit  uint                    // 0 表示不限制
}

// EnumFields 取结构体 db tag 作为查询字段
func EnumFields(obj interface{}) []interface{} {
	rt := reflect.TypeOf(obj)
	if rt.Kind() != reflect.Struct {
		return nil
	}
	fields := make([]interface{}, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		if tag := rt.Field(i).Tag.Get("db"); tag != "" && tag != "-" {
			fields = append(fields, tag)
		}
	}
	return fields
}

// InsertCtx 执行 goqu 生成的 INSERT
func InsertCtx(ctx context.Context, exec sqlx.ExtContext, table string, rows ...interface{}) (sql.Result, error) {
	query, args, err := dialect.Insert(table).Rows(rows...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// DeleteCtx 执行 goqu 生成的 DELETE
func DeleteCtx(ctx context.Context, exec sqlx.ExtContext, table string, ex ...exp.Expression) (sql.Result, error) {
	query, args, err := dialect.Delete(table).Where(ex...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// SelectAllCtx 查询多条记录到 data（切片指针）
func SelectAllCtx(ctx context.Context, data interface{}, args QueryArg) error {
	switch {
	case args.Db == nil:
		return errors.New("select: nil db")
	case args.Table == "":
		return errors.New("select: empty table")
	case len(args.Fields) == 0:
		return errors.New("select: no fields")
	}
	ds := dialect.From(args.Table).Select(args.Fields...)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}
	query, qargs, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, args.Db, data, query, qargs...)
}
