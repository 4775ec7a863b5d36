// Package schema 维护每个连接的表结构上下文缓存
//
// 完整的表结构探测需要对每张表各做一次查询，代价随表数量线性增长，
// 因此结果以固定 TTL 缓存在持久化存储里，跨进程共享。
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbx/driver"
	"github.com/hatlonely/dbx/log"
	"github.com/hatlonely/dbx/log/logger"
	"github.com/hatlonely/dbx/schema/store"
)

// NoTablesFound 空数据库的固定渲染结果
const NoTablesFound = "no tables found"

// DefaultTTL 缓存默认有效期
const DefaultTTL = 7 * 24 * time.Hour

type ContextOptions struct {
	// TTL 缓存有效期，为零时取 DefaultTTL
	TTL time.Duration `cfg:"ttl" yaml:"ttl" def:"168h"`

	// Store 缓存存储配置，Context 持有并负责关闭
	Store *store.StoreOptions `cfg:"store" yaml:"store"`
}

// Result 一次表结构上下文请求的结果
type Result struct {
	Schema    string `json:"schema"`
	UpdatedAt int64  `json:"updatedAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Cached    bool   `json:"cached"`
}

// Context 表结构上下文缓存
//
// now 和 newDriver 可注入，测试时用来固定时钟和替换驱动实现
type Context struct {
	store     store.Store
	ttl       time.Duration
	logger    logger.Logger
	now       func() time.Time
	newDriver func(conn *driver.Connection, password string) (driver.Driver, error)
}

func NewContextWithOptions(options *ContextOptions) (*Context, error) {
	if options == nil {
		options = &ContextOptions{}
	}

	ttl := options.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	storeOptions := options.Store
	if storeOptions == nil {
		storeOptions = &store.StoreOptions{Type: "freecache"}
	}
	s, err := store.NewStoreWithOptions(storeOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "create schema store failed")
	}

	return &Context{
		store:     s,
		ttl:       ttl,
		logger:    log.Default().WithGroup("schemaContext"),
		now:       time.Now,
		newDriver: driver.NewDriverWithOptions,
	}, nil
}

// GetSchemaContext 获取连接的表结构上下文
//
// 除非强制刷新，否则优先读缓存；缓存记录不存在、存储未初始化
// 和记录过期都按未命中处理，重新探测后回写。
// 回写失败只记日志不上抛，下次请求会重新计算。
func (c *Context) GetSchemaContext(ctx context.Context, conn *driver.Connection, password string, forceRefresh bool) (*Result, error) {
	now := c.now().UnixMilli()

	if !forceRefresh {
		entry, err := c.store.Get(ctx, conn.ID)
		switch {
		case err == nil:
			// 空的 SchemaText 视为损坏记录，按未命中重新计算
			if entry.ExpiresAt > now && entry.SchemaText != "" {
				return &Result{
					Schema:    entry.SchemaText,
					UpdatedAt: entry.UpdatedAt,
					ExpiresAt: entry.ExpiresAt,
					Cached:    true,
				}, nil
			}
			// 过期记录按未命中处理
		case errors.Is(err, store.ErrEntryNotFound), errors.Is(err, store.ErrNotProvisioned):
			// 缓存不可用不是失败，走重新计算
		default:
			return nil, errors.WithMessage(err, "read schema cache failed")
		}
	}

	text, err := c.introspect(ctx, conn, password)
	if err != nil {
		return nil, err
	}

	entry := &store.Entry{
		ConnectionID: conn.ID,
		SchemaText:   text,
		UpdatedAt:    now,
		ExpiresAt:    now + c.ttl.Milliseconds(),
	}
	if err := c.store.Upsert(ctx, entry); err != nil {
		c.logger.WarnContext(ctx, "upsert schema cache failed",
			"connection", conn.ID,
			"error", err.Error(),
		)
	}

	return &Result{
		Schema:    entry.SchemaText,
		UpdatedAt: entry.UpdatedAt,
		ExpiresAt: entry.ExpiresAt,
		Cached:    false,
	}, nil
}

// DeleteSchemaContext 连接删除时同步清理缓存
func (c *Context) DeleteSchemaContext(ctx context.Context, connectionID string) error {
	return c.store.Del(ctx, connectionID)
}

func (c *Context) Close() error {
	return c.store.Close()
}

// introspect 全量探测表结构并渲染为文本，每张表一次查询
func (c *Context) introspect(ctx context.Context, conn *driver.Connection, password string) (string, error) {
	d, err := c.newDriver(conn, password)
	if err != nil {
		return "", err
	}
	if err := d.Connect(ctx); err != nil {
		return "", err
	}
	defer d.Disconnect()

	tables, err := d.GetTables(ctx)
	if err != nil {
		return "", errors.WithMessage(err, "list tables failed")
	}
	if len(tables) == 0 {
		return NoTablesFound, nil
	}
	sort.Strings(tables)

	var builder strings.Builder
	for i, table := range tables {
		if i > 0 {
			builder.WriteByte('\n')
		}
		columns, err := d.GetTableSchema(ctx, table)
		if err != nil {
			return "", errors.WithMessagef(err, "introspect table failed. table: %s", table)
		}
		renderTable(&builder, table, columns)
	}
	return builder.String(), nil
}

func renderTable(builder *strings.Builder, table string, columns []driver.Column) {
	fmt.Fprintf(builder, "table: %s\n", table)
	for _, column := range columns {
		markers := columnMarkers(column)
		if markers == "" {
			fmt.Fprintf(builder, "  - %s: %s\n", column.Field, column.Type)
		} else {
			fmt.Fprintf(builder, "  - %s: %s (%s)\n", column.Field, column.Type, markers)
		}
	}
}

func columnMarkers(column driver.Column) string {
	var markers []string
	if column.IsPrimaryKey {
		markers = append(markers, "PRIMARY KEY")
	}
	if !column.Nullable {
		markers = append(markers, "NOT NULL")
	}
	if column.Default != nil {
		markers = append(markers, fmt.Sprintf("DEFAULT %v", column.Default))
	}
	if column.Extra != "" {
		markers = append(markers, column.Extra)
	}
	return strings.Join(markers, ", ")
}
