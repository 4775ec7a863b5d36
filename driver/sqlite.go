package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteDriver 内嵌 SQLite 驱动（modernc.org/sqlite，纯 Go 实现）
//
// 用于没有服务端数据库可用的宿主环境，数据库是进程内打开的本地文件
type SQLiteDriver struct {
	baseDriver
}

func NewSQLiteDriver(conn *Connection) *SQLiteDriver {
	d := &SQLiteDriver{
		baseDriver: baseDriver{
			driverName: "sqlite",
			dsn:        conn.Database,
			dialect:    dialectSQLite,
		},
	}
	d.introspect = d.GetTableSchema
	return d
}

func (d *SQLiteDriver) GetTables(ctx context.Context) ([]string, error) {
	return sqliteListTables(ctx, &d.baseDriver)
}

func (d *SQLiteDriver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	return sqliteTableSchema(ctx, &d.baseDriver, table)
}

// sqliteListTables SQLite 没有 information_schema，从 sqlite_master 取表名，
// 按名称模式排除 sqlite_ 前缀的内部表
func sqliteListTables(ctx context.Context, b *baseDriver) ([]string, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errors.WithMessage(err, "list tables failed")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.WithMessage(err, "scan table name failed")
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// sqliteTableSchema PRAGMA table_info 不支持占位符，表名转义后内嵌
func sqliteTableSchema(ctx context.Context, b *baseDriver, table string) ([]Column, error) {
	if b.db == nil {
		return nil, ErrNotConnected
	}

	query := fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(table, "'", "''"))
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WithMessagef(err, "get table schema failed. table: %s", table)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		// PRAGMA table_info 返回 cid, name, type, notnull, dflt_value, pk
		var cid, notNull, pk int
		var name, columnType string
		var defaultValue *string
		if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultValue, &pk); err != nil {
			return nil, errors.WithMessage(err, "scan column failed")
		}

		column := Column{
			Field:        name,
			Type:         columnType,
			Nullable:     notNull == 0,
			IsPrimaryKey: pk > 0,
		}
		if defaultValue != nil {
			column.Default = *defaultValue
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
