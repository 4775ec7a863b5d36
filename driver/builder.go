package driver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hatlonely/dbx/search"
)

// dialect 方言差异集中在两点：标识符引用符和占位符风格
//
// numericSearchGuard 针对 PostgreSQL：自由文本搜索命中数字列时，
// 搜索文本必须能解析为数字才参与比较，否则会产生非法数字字面量错误。
type dialect struct {
	quote              byte
	positional         bool
	numericSearchGuard bool
}

var (
	dialectMySQL    = dialect{quote: '`'}
	dialectPostgres = dialect{quote: '"', positional: true, numericSearchGuard: true}
	dialectSQLite   = dialect{quote: '"'}
)

func (d dialect) quoteIdentifier(name string) string {
	return string(d.quote) + name + string(d.quote)
}

// placeholder 返回第 index 个参数的占位符，index 从 1 开始计数
func (d dialect) placeholder(index int) string {
	if d.positional {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

// schemaLoader 包装列信息的惰性获取：一次调用内无论自由文本路径
// 和排序路径各需要几次列信息，实际只做一次表结构查询
type schemaLoader struct {
	load    func(ctx context.Context) ([]Column, error)
	loaded  bool
	columns []Column
	err     error
}

func (l *schemaLoader) get(ctx context.Context) ([]Column, error) {
	if !l.loaded {
		l.columns, l.err = l.load(ctx)
		l.loaded = true
	}
	return l.columns, l.err
}

// whereClause WHERE 构造结果
// nextIndex 是下一个可用的占位符编号，位置占位符方言下
// LIMIT/OFFSET 参数必须从这里继续编号，错位会静默执行出完全不同的查询
type whereClause struct {
	clause    string
	args      []any
	nextIndex int
}

// buildWhereClause 把过滤选项编译为 WHERE 片段
//
// 规则：
//  1. 无过滤项时不触发任何表结构查询
//  2. _search 优先尝试表达式编译，成功后直接采用，忽略其余过滤键；
//     失败则回退为按列类型区分的全列 OR 搜索（文本列 LIKE，数字列等值）
//  3. 其余过滤键按等值条件 AND 拼接，不做列存在性检查，
//     非法键由后端报错（这些键来自应用自身的表格 UI，不是自由输入）
func (d dialect) buildWhereClause(ctx context.Context, filters map[string]string, loader *schemaLoader) (*whereClause, error) {
	result := &whereClause{nextIndex: 1}
	if len(filters) == 0 {
		return result, nil
	}

	var parts []string
	var args []any
	index := 1

	if text := strings.TrimSpace(filters[SearchFilterKey]); text != "" {
		parsed := search.Parse(text)
		if parsed.IsExpression {
			columns, err := loader.get(ctx)
			if err != nil {
				return nil, err
			}
			columnSet := make(map[string]bool, len(columns))
			for _, column := range columns {
				columnSet[column.Field] = true
			}

			if d.positional {
				sql, exprArgs, next, ok := parsed.Expression.ToPositionalSQL(columnSet, d.quote, index)
				if ok {
					// 表达式搜索优先级最高，其余过滤键全部忽略
					return &whereClause{clause: sql, args: exprArgs, nextIndex: next}, nil
				}
			} else {
				sql, exprArgs, ok := parsed.Expression.ToSQL(columnSet, d.quote)
				if ok {
					return &whereClause{clause: sql, args: exprArgs, nextIndex: len(exprArgs) + 1}, nil
				}
			}
			// 表达式引用了不存在的列，整体回退为关键词搜索
		}

		group, groupArgs, next, err := d.buildFreeTextGroup(ctx, parsed.RawText, loader, index)
		if err != nil {
			return nil, err
		}
		if group != "" {
			parts = append(parts, group)
			args = append(args, groupArgs...)
			index = next
		}
	}

	// 其余过滤键按字典序处理，保证生成的 SQL 确定
	keys := make([]string, 0, len(filters))
	for key := range filters {
		if key == SearchFilterKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := filters[key]
		if value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = %s", d.quoteIdentifier(key), d.placeholder(index)))
		args = append(args, value)
		index++
	}

	result.clause = strings.Join(parts, " AND ")
	result.args = args
	result.nextIndex = index
	return result, nil
}

// buildFreeTextGroup 构造覆盖全部列的 OR 搜索组
// 文本和日期时间类列做子串 LIKE，数字类列做等值比较
func (d dialect) buildFreeTextGroup(ctx context.Context, text string, loader *schemaLoader, start int) (string, []any, int, error) {
	columns, err := loader.get(ctx)
	if err != nil {
		return "", nil, start, err
	}

	number, numberOK := parseNumber(text)

	var parts []string
	var args []any
	index := start
	for _, column := range columns {
		switch {
		case isTextLikeType(column.Type):
			parts = append(parts, fmt.Sprintf("%s LIKE %s", d.quoteIdentifier(column.Field), d.placeholder(index)))
			args = append(args, "%"+text+"%")
			index++
		case isNumericType(column.Type):
			if d.numericSearchGuard && !numberOK {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s = %s", d.quoteIdentifier(column.Field), d.placeholder(index)))
			if numberOK {
				args = append(args, number)
			} else {
				args = append(args, text)
			}
			index++
		}
	}

	if len(parts) == 0 {
		return "", nil, start, nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, index, nil
}

// buildCountSQL 拼装 COUNT 语句，和数据查询共用同一个 whereClause
func (d dialect) buildCountSQL(table string, where *whereClause) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", d.quoteIdentifier(table), wherePrefix(where))
}

// buildSelectSQL 拼装分页数据查询语句
// 位置占位符方言下 LIMIT/OFFSET 的编号紧接 WHERE 参数之后
func (d dialect) buildSelectSQL(table string, where *whereClause, orderClause string) string {
	return fmt.Sprintf("SELECT * FROM %s%s%s LIMIT %s OFFSET %s",
		d.quoteIdentifier(table), wherePrefix(where), orderClause,
		d.placeholder(where.nextIndex), d.placeholder(where.nextIndex+1))
}

func wherePrefix(where *whereClause) string {
	if where.clause == "" {
		return ""
	}
	return " WHERE " + where.clause
}

// buildOrderClause 构造排序片段
// 请求的排序列必须真实存在，否则回退为主键升序，再退为后端默认顺序
func (d dialect) buildOrderClause(options *TableQueryOptions, columns []Column) string {
	direction := "ASC"
	if strings.EqualFold(options.SortOrder, "desc") {
		direction = "DESC"
	}

	if options.SortField != "" {
		for _, column := range columns {
			if column.Field == options.SortField {
				return fmt.Sprintf(" ORDER BY %s %s", d.quoteIdentifier(column.Field), direction)
			}
		}
	}

	for _, column := range columns {
		if column.IsPrimaryKey {
			return fmt.Sprintf(" ORDER BY %s ASC", d.quoteIdentifier(column.Field))
		}
	}

	return ""
}

func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

var textLikeTypes = []string{
	"char", "text", "string", "enum", "set", "uuid", "json",
	"date", "time", "year", "interval",
}

var numericTypes = []string{
	"int", "serial", "decimal", "numeric", "float", "double", "real", "number", "money",
}

func isTextLikeType(columnType string) bool {
	lower := strings.ToLower(columnType)
	for _, t := range textLikeTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func isNumericType(columnType string) bool {
	lower := strings.ToLower(columnType)
	for _, t := range numericTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
