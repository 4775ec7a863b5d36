// Package driver 提供统一的关系型数据库访问接口。
//
// 同一套接口适配五种方言：TiDB、MySQL、PostgreSQL 以及两种 SQLite 驱动，
// 屏蔽分页、排序、过滤、行级增删改在方言之间的差异。
// 驱动实例按请求创建，connect → 操作 → disconnect，不跨请求持有连接。
package driver

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotConnected          = errors.New("driver is not connected")
	ErrMissingCredential     = errors.New("missing credential for connection")
	ErrNoPrimaryKey          = errors.New("table has no primary key, cannot mutate")
	ErrUnsupportedDriverType = errors.New("unsupported driver type")
	ErrUnsupportedValue      = errors.New("unsupported value type")
)

// 连接类型
const (
	DriverTypeTiDB     = "tidb"     // 分布式 MySQL 协议集群
	DriverTypeMySQL    = "mysql"    // MySQL
	DriverTypePostgres = "postgres" // PostgreSQL
	DriverTypeSQLite3  = "sqlite3"  // 本地 SQLite 文件（mattn/go-sqlite3，cgo 绑定）
	DriverTypeSQLite   = "sqlite"   // 内嵌 SQLite（modernc.org/sqlite，纯 Go）
)

// SearchFilterKey 自由文本 / 表达式搜索的保留过滤键
const SearchFilterKey = "_search"

// Connection 连接描述，由持久化层按值传入，核心不保存连接状态
type Connection struct {
	ID            string `cfg:"id" json:"id" yaml:"id"`
	Name          string `cfg:"name" json:"name" yaml:"name"`
	Type          string `cfg:"type" json:"type" yaml:"type" validate:"required"`
	Host          string `cfg:"host" json:"host" yaml:"host"`
	Port          int    `cfg:"port" json:"port" yaml:"port" validate:"min=0,max=65535"`
	Database      string `cfg:"database" json:"database" yaml:"database"`
	Username      string `cfg:"username" json:"username" yaml:"username"`
	CredentialRef string `cfg:"credentialRef" json:"credentialRef" yaml:"credentialRef"`
}

// Column 表列描述，由各方言的元数据查询归一化而来
type Column struct {
	Field        string `json:"field"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	Default      any    `json:"default,omitempty"`
	Extra        string `json:"extra,omitempty"`
}

// Row 单行数据，字段名到值的映射
type Row map[string]any

// TableQueryOptions 表数据分页查询选项
// Filters 中 _search 键保留给自由文本 / 表达式搜索，其余键按同名列做等值过滤
type TableQueryOptions struct {
	Page      int               `json:"page"`
	PageSize  int               `json:"pageSize"`
	SortField string            `json:"sortField,omitempty"`
	SortOrder string            `json:"sortOrder,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
}

// TableQueryResult 分页查询结果
// Total 与 Rows 由同一个 WHERE 条件的成对查询产生
type TableQueryResult struct {
	Rows       []Row `json:"rows"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// Driver 统一的表访问接口，五种方言各有一个实现
type Driver interface {
	// Connect 建立连接，幂等，已连接时为空操作
	Connect(ctx context.Context) error

	// Disconnect 断开连接，幂等，任何退出路径上都必须调用
	Disconnect() error

	// Query 执行任意 SQL 文本，仅供经过守卫校验的 AI 查询链路使用，
	// 不做任何隐式 LIMIT 或改写
	Query(ctx context.Context, sql string) ([]Row, error)

	// GetTables 列出用户表，系统表按名称模式排除
	GetTables(ctx context.Context) ([]string, error)

	// GetTableSchema 获取表结构，归一化为统一的列描述
	GetTableSchema(ctx context.Context, table string) ([]Column, error)

	// GetTableData 分页读取表数据，WHERE/ORDER/LIMIT 构造委托给查询构造器
	GetTableData(ctx context.Context, table string, options *TableQueryOptions) (*TableQueryResult, error)

	// DeleteRows 按主键批量删除，表无主键时拒绝执行
	DeleteRows(ctx context.Context, table string, ids []any) error

	// InsertRow 插入单行，表无主键时拒绝执行
	InsertRow(ctx context.Context, table string, row Row) error

	// UpdateRows 按主键批量更新，表无主键时拒绝执行
	UpdateRows(ctx context.Context, table string, rows []Row) error
}

// NormalizeValue 收敛 SQL 参数值类型
//
// 只接受 string、bool、nil、各种整型和浮点，其余类型直接报错，
// 不做静默字符串化。
func NormalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedValue, "type %T", v)
	}
}

// NormalizeRow 逐字段收敛一行数据的值类型，返回新的 Row，不原地修改
func NormalizeRow(row Row) (Row, error) {
	normalized := make(Row, len(row))
	for field, value := range row {
		v, err := NormalizeValue(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", field)
		}
		normalized[field] = v
	}
	return normalized, nil
}
