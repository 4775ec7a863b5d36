package search

import (
	"strconv"
	"strings"
)

// 连接符
const (
	ConnectorAnd = "AND"
	ConnectorOr  = "OR"
)

// 操作符按优先级排列，必须先匹配长操作符，否则 ">=" 会被误判为 ">"
var operators = []string{">=", "<=", "!=", ">", "<", "="}

// Condition 单个过滤条件，Value 为 string、int64 或 float64
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Expression 结构化搜索表达式
// Connectors 数量恒等于 Conditions 数量减一
type Expression struct {
	Conditions []Condition `json:"conditions"`
	Connectors []string    `json:"connectors"`
}

// ParseResult 解析结果
// IsExpression 为 false 时表示普通关键词搜索，RawText 为原始文本
type ParseResult struct {
	IsExpression bool        `json:"isExpression"`
	RawText      string      `json:"rawText"`
	Expression   *Expression `json:"expression,omitempty"`
}

// Parse 解析过滤字符串，如 `id > 100 && name = 'Alice'`
//
// 不包含任何操作符和连接符的字符串走快速路径，直接按关键词搜索处理。
// 任何一个片段解析失败时整体回退为关键词搜索，不做部分应用。
func Parse(raw string) *ParseResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ParseResult{IsExpression: false, RawText: ""}
	}

	if !strings.ContainsAny(trimmed, "><=!") &&
		!strings.Contains(trimmed, "&&") && !strings.Contains(trimmed, "||") {
		return &ParseResult{IsExpression: false, RawText: trimmed}
	}

	fragments, connectors := splitConnectors(trimmed)

	var conditions []Condition
	for _, fragment := range fragments {
		condition, ok := parseCondition(fragment)
		if !ok {
			return &ParseResult{IsExpression: false, RawText: trimmed}
		}
		conditions = append(conditions, condition)
	}
	if len(conditions) == 0 {
		return &ParseResult{IsExpression: false, RawText: trimmed}
	}

	return &ParseResult{
		IsExpression: true,
		RawText:      trimmed,
		Expression: &Expression{
			Conditions: conditions,
			Connectors: connectors,
		},
	}
}

// splitConnectors 按 && 和 || 切分，按出现顺序记录连接符
func splitConnectors(s string) ([]string, []string) {
	var fragments []string
	var connectors []string

	begin := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '&' && s[i+1] == '&' {
			fragments = append(fragments, s[begin:i])
			connectors = append(connectors, ConnectorAnd)
			i++
			begin = i + 1
		} else if s[i] == '|' && s[i+1] == '|' {
			fragments = append(fragments, s[begin:i])
			connectors = append(connectors, ConnectorOr)
			i++
			begin = i + 1
		}
	}
	fragments = append(fragments, s[begin:])

	return fragments, connectors
}

// parseCondition 解析单个条件片段，操作符两侧必须都有内容
func parseCondition(fragment string) (Condition, bool) {
	for _, op := range operators {
		idx := strings.Index(fragment, op)
		if idx < 0 {
			continue
		}

		field := strings.TrimSpace(fragment[:idx])
		rest := strings.TrimSpace(fragment[idx+len(op):])
		if field == "" || rest == "" {
			return Condition{}, false
		}

		return Condition{
			Field:    field,
			Operator: op,
			Value:    parseValue(rest),
		}, true
	}

	return Condition{}, false
}

// parseValue 解析条件值：带引号的当字符串，其次尝试数字，否则保留原文
func parseValue(s string) any {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}
