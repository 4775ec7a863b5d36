package search

import (
	"fmt"
	"strings"
)

// ToSQL 生成问号占位符风格的 WHERE 片段（MySQL / SQLite 方言）
//
// columns 是目标表的合法列名集合，任何条件引用了不在集合中的列，
// 整个表达式编译失败返回 ok=false，调用方需要回退到自己的关键词搜索逻辑。
// 这是防止列名注入的白名单检查，不能只跳过非法条件。
func (e *Expression) ToSQL(columns map[string]bool, quote byte) (string, []any, bool) {
	var sb strings.Builder
	var args []any

	for i, condition := range e.Conditions {
		if !columns[condition.Field] {
			return "", nil, false
		}

		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(e.Connectors[i-1])
			sb.WriteString(" ")
		}

		sb.WriteString(quoteIdentifier(condition.Field, quote))
		sb.WriteString(" ")
		sb.WriteString(condition.Operator)
		sb.WriteString(" ?")
		args = append(args, condition.Value)
	}

	return sb.String(), args, true
}

// ToPositionalSQL 生成 $N 占位符风格的 WHERE 片段（PostgreSQL 方言）
//
// start 是第一个占位符的编号，表达式参数可能拼接在语句中已有参数之后。
// 返回下一个可用的占位符编号，便于调用方继续拼接 LIMIT/OFFSET 等参数。
func (e *Expression) ToPositionalSQL(columns map[string]bool, quote byte, start int) (string, []any, int, bool) {
	var sb strings.Builder
	var args []any

	index := start
	for i, condition := range e.Conditions {
		if !columns[condition.Field] {
			return "", nil, start, false
		}

		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(e.Connectors[i-1])
			sb.WriteString(" ")
		}

		sb.WriteString(quoteIdentifier(condition.Field, quote))
		sb.WriteString(" ")
		sb.WriteString(condition.Operator)
		sb.WriteString(fmt.Sprintf(" $%d", index))
		args = append(args, condition.Value)
		index++
	}

	return sb.String(), args, index, true
}

func quoteIdentifier(name string, quote byte) string {
	return string(quote) + name + string(quote)
}
