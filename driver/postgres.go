package driver

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const defaultPostgresPort = 5432

// PostgresDriver PostgreSQL 驱动
//
// 位置占位符方言，WHERE 参数之后的 LIMIT/OFFSET 必须接续编号
type PostgresDriver struct {
	baseDriver
}

func NewPostgresDriver(conn *Connection, password string) *PostgresDriver {
	port := conn.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	d := &PostgresDriver{
		baseDriver: baseDriver{
			driverName: "postgres",
			dsn: fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				conn.Host, port, conn.Username, password, conn.Database),
			dialect: dialectPostgres,
		},
	}
	d.introspect = d.GetTableSchema
	return d
}

func (d *PostgresDriver) GetTables(ctx context.Context) ([]string, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
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

func (d *PostgresDriver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN pk.column_name IS NOT NULL THEN true ELSE false END AS is_primary
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.table_schema = ku.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = 'public'
				AND tc.table_name = $1
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = 'public'
		  AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, errors.WithMessagef(err, "get table schema failed. table: %s", table)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, dataType, nullable string
		var defaultValue *string
		var isPrimary bool
		if err := rows.Scan(&name, &dataType, &nullable, &defaultValue, &isPrimary); err != nil {
			return nil, errors.WithMessage(err, "scan column failed")
		}

		column := Column{
			Field:        name,
			Type:         dataType,
			Nullable:     nullable == "YES",
			IsPrimaryKey: isPrimary,
		}
		if defaultValue != nil {
			column.Default = *defaultValue
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
