// Package guard 对任意 SQL 文本（通常由 AI 生成）做只读校验和结果集限流。
package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRowLimit 未显式指定 LIMIT 时追加的硬上限
const DefaultRowLimit = 100

// 允许的语句前缀，只放行只读语句
var allowedPrefixes = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN"}

// 禁止的写操作关键词，使用单词边界匹配，
// 避免 updated_at 这类包含关键词子串的列名被误伤
var deniedKeywords = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])DELETE(?:[^a-zA-Z0-9_]|$)`), "DELETE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])DROP(?:[^a-zA-Z0-9_]|$)`), "DROP"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])UPDATE(?:[^a-zA-Z0-9_]|$)`), "UPDATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])INSERT(?:[^a-zA-Z0-9_]|$)`), "INSERT"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])ALTER(?:[^a-zA-Z0-9_]|$)`), "ALTER"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])TRUNCATE(?:[^a-zA-Z0-9_]|$)`), "TRUNCATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])CREATE(?:[^a-zA-Z0-9_]|$)`), "CREATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])GRANT(?:[^a-zA-Z0-9_]|$)`), "GRANT"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])REVOKE(?:[^a-zA-Z0-9_]|$)`), "REVOKE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z0-9_])EXEC(?:UTE)?(?:[^a-zA-Z0-9_]|$)`), "EXECUTE"},
}

var limitClausePattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)

// Result 校验结果
// 校验失败不是异常：Valid 为 false 时 SQL 恒为空，Err 携带拒绝原因，
// 调用方可以把被拒绝的语句连同原因一起展示给用户。
type Result struct {
	Valid bool   `json:"valid"`
	SQL   string `json:"sql,omitempty"`
	Err   string `json:"error,omitempty"`
}

// ValidateAndSanitizeSQL 判定 SQL 是否安全可执行，并做规范化
//
// 规则：
//  1. 空白文本直接拒绝
//  2. 语句必须以只读关键词开头（大小写不敏感）
//  3. 全文扫描写操作关键词，命中即拒绝
//  4. 没有 LIMIT 子句的 SELECT 追加 LIMIT 100，AI 生成的语句不可信任其自我限流
func ValidateAndSanitizeSQL(text string) *Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Result{Valid: false, Err: "sql is empty"}
	}

	upper := strings.ToUpper(trimmed)
	matched := ""
	for _, prefix := range allowedPrefixes {
		if upper == prefix || strings.HasPrefix(upper, prefix+" ") || strings.HasPrefix(upper, prefix+"\n") || strings.HasPrefix(upper, prefix+"\t") {
			matched = prefix
			break
		}
	}
	if matched == "" {
		return &Result{Valid: false, Err: fmt.Sprintf("only %s statements are allowed", strings.Join(allowedPrefixes, "/"))}
	}

	for _, dk := range deniedKeywords {
		if dk.pattern.MatchString(trimmed) {
			return &Result{Valid: false, Err: fmt.Sprintf("statement contains forbidden keyword: %s", dk.name)}
		}
	}

	// SHOW/DESCRIBE/EXPLAIN 不支持 LIMIT 子句，只对 SELECT 限流
	sanitized := trimmed
	if matched == "SELECT" && !limitClausePattern.MatchString(sanitized) {
		sanitized = strings.TrimRight(sanitized, "; \t\n")
		sanitized = fmt.Sprintf("%s LIMIT %d", sanitized, DefaultRowLimit)
	}

	return &Result{Valid: true, SQL: sanitized}
}
