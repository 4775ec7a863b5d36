package driver

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const defaultMySQLPort = 3306

// MySQLDriver MySQL 驱动
type MySQLDriver struct {
	baseDriver
}

func NewMySQLDriver(conn *Connection, password string) *MySQLDriver {
	port := conn.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	d := &MySQLDriver{
		baseDriver: baseDriver{
			driverName: "mysql",
			dsn: fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				conn.Username, password, conn.Host, port, conn.Database),
			dialect: dialectMySQL,
		},
	}
	d.introspect = d.GetTableSchema
	return d
}

func (d *MySQLDriver) GetTables(ctx context.Context) ([]string, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
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

func (d *MySQLDriver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_key, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, errors.WithMessagef(err, "get table schema failed. table: %s", table)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, columnType, nullable, key, extra string
		var defaultValue *string
		if err := rows.Scan(&name, &columnType, &nullable, &key, &defaultValue, &extra); err != nil {
			return nil, errors.WithMessage(err, "scan column failed")
		}

		column := Column{
			Field:        name,
			Type:         columnType,
			Nullable:     nullable == "YES",
			IsPrimaryKey: key == "PRI",
			Extra:        extra,
		}
		if defaultValue != nil {
			column.Default = *defaultValue
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
