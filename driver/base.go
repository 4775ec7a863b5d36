package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// baseDriver 承载所有方言共享的逻辑：连接生命周期、行扫描、
// 分页查询和按主键的增删改。方言差异通过 dialect 和 introspect 注入。
type baseDriver struct {
	driverName string
	dsn        string
	dialect    dialect
	db         *sqlx.DB

	// introspect 由具体驱动注入，指向各自的 GetTableSchema
	introspect func(ctx context.Context, table string) ([]Column, error)
}

func (b *baseDriver) Connect(ctx context.Context) error {
	if b.db != nil {
		return nil
	}

	db, err := sqlx.Open(b.driverName, b.dsn)
	if err != nil {
		return errors.Wrapf(err, "sqlx.Open failed. driver: %s", b.driverName)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrapf(err, "ping failed. driver: %s", b.driverName)
	}

	b.db = db
	return nil
}

func (b *baseDriver) Disconnect() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *baseDriver) Query(ctx context.Context, sqlText string) ([]Row, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := b.db.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, errors.WithMessage(err, "query failed")
	}
	defer rows.Close()

	var results []Row
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, errors.WithMessage(err, "scan row failed")
		}
		results = append(results, normalizeScannedRow(row))
	}
	return results, rows.Err()
}

func (b *baseDriver) GetTableData(ctx context.Context, table string, options *TableQueryOptions) (*TableQueryResult, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}
	if options == nil {
		options = &TableQueryOptions{}
	}

	page := options.Page
	if page < 1 {
		page = defaultPage
	}
	pageSize := options.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	loader := &schemaLoader{load: func(ctx context.Context) ([]Column, error) {
		return b.introspect(ctx, table)
	}}

	where, err := b.dialect.buildWhereClause(ctx, options.Filters, loader)
	if err != nil {
		return nil, err
	}

	// COUNT 与数据查询复用同一份 WHERE 和参数，不允许各自重建
	countSQL := b.dialect.buildCountSQL(table, where)
	var total int64
	if err := b.db.GetContext(ctx, &total, countSQL, where.args...); err != nil {
		return nil, errors.WithMessage(err, "count query failed")
	}

	columns, err := loader.get(ctx)
	if err != nil {
		return nil, err
	}
	orderClause := b.dialect.buildOrderClause(options, columns)

	dataSQL := b.dialect.buildSelectSQL(table, where, orderClause)
	dataArgs := append(append([]any{}, where.args...), pageSize, (page-1)*pageSize)

	rows, err := b.db.QueryxContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, errors.WithMessage(err, "data query failed")
	}
	defer rows.Close()

	results := make([]Row, 0, pageSize)
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, errors.WithMessage(err, "scan row failed")
		}
		results = append(results, normalizeScannedRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &TableQueryResult{
		Rows:       results,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// findPrimaryKey 写操作的前置条件：必须能探测到主键，
// 否则写操作没有任何 WHERE 约束可言，直接拒绝
func (b *baseDriver) findPrimaryKey(ctx context.Context, table string) (string, error) {
	columns, err := b.introspect(ctx, table)
	if err != nil {
		return "", err
	}
	for _, column := range columns {
		if column.IsPrimaryKey {
			return column.Field, nil
		}
	}
	return "", errors.Wrapf(ErrNoPrimaryKey, "table: %s", table)
}

func (b *baseDriver) DeleteRows(ctx context.Context, table string, ids []any) error {
	if b.db == nil {
		return ErrNotConnected
	}

	pk, err := b.findPrimaryKey(ctx, table)
	if err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		b.dialect.quoteIdentifier(table), b.dialect.quoteIdentifier(pk), b.dialect.placeholder(1))

	// 逐行执行，失败即中止，已提交的行不回滚
	for _, id := range ids {
		value, err := NormalizeValue(id)
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx, deleteSQL, value); err != nil {
			return errors.WithMessagef(err, "delete row failed. table: %s", table)
		}
	}
	return nil
}

func (b *baseDriver) InsertRow(ctx context.Context, table string, row Row) error {
	if b.db == nil {
		return ErrNotConnected
	}

	if _, err := b.findPrimaryKey(ctx, table); err != nil {
		return err
	}

	normalized, err := NormalizeRow(row)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return errors.New("row is empty")
	}

	fields := make([]string, 0, len(normalized))
	for field := range normalized {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	quoted := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		quoted[i] = b.dialect.quoteIdentifier(field)
		placeholders[i] = b.dialect.placeholder(i + 1)
		args[i] = normalized[field]
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.dialect.quoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	if _, err := b.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return errors.WithMessagef(err, "insert row failed. table: %s", table)
	}
	return nil
}

func (b *baseDriver) UpdateRows(ctx context.Context, table string, rows []Row) error {
	if b.db == nil {
		return ErrNotConnected
	}

	pk, err := b.findPrimaryKey(ctx, table)
	if err != nil {
		return err
	}

	for _, row := range rows {
		normalized, err := NormalizeRow(row)
		if err != nil {
			return err
		}

		pkValue, ok := normalized[pk]
		if !ok {
			return errors.Errorf("row is missing primary key %s. table: %s", pk, table)
		}

		fields := make([]string, 0, len(normalized))
		for field := range normalized {
			if field == pk {
				continue
			}
			fields = append(fields, field)
		}
		sort.Strings(fields)
		if len(fields) == 0 {
			return errors.Errorf("row has no updatable fields. table: %s", table)
		}

		setParts := make([]string, len(fields))
		args := make([]any, 0, len(fields)+1)
		for i, field := range fields {
			setParts[i] = fmt.Sprintf("%s = %s", b.dialect.quoteIdentifier(field), b.dialect.placeholder(i+1))
			args = append(args, normalized[field])
		}
		args = append(args, pkValue)

		updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			b.dialect.quoteIdentifier(table),
			strings.Join(setParts, ", "),
			b.dialect.quoteIdentifier(pk),
			b.dialect.placeholder(len(fields)+1))

		if _, err := b.db.ExecContext(ctx, updateSQL, args...); err != nil {
			return errors.WithMessagef(err, "update row failed. table: %s", table)
		}
	}
	return nil
}

// normalizeScannedRow 把驱动返回的 []byte 文本统一转成 string，方便 JSON 序列化
func normalizeScannedRow(row Row) Row {
	for field, value := range row {
		if b, ok := value.([]byte); ok {
			row[field] = string(b)
		}
	}
	return row
}
