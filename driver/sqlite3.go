package driver

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite3Driver 本地 SQLite 文件驱动（mattn/go-sqlite3，cgo 绑定）
//
// Database 字段即文件路径，:memory: 表示内存库
type SQLite3Driver struct {
	baseDriver
}

func NewSQLite3Driver(conn *Connection) *SQLite3Driver {
	d := &SQLite3Driver{
		baseDriver: baseDriver{
			driverName: "sqlite3",
			dsn:        conn.Database,
			dialect:    dialectSQLite,
		},
	}
	d.introspect = d.GetTableSchema
	return d
}

func (d *SQLite3Driver) GetTables(ctx context.Context) ([]string, error) {
	return sqliteListTables(ctx, &d.baseDriver)
}

func (d *SQLite3Driver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	return sqliteTableSchema(ctx, &d.baseDriver, table)
}
