package search

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("测试 Parse 解析过滤字符串", t, func() {
		Convey("空字符串", func() {
			result := Parse("")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "")
		})

		Convey("纯空白字符串", func() {
			result := Parse("   \t  ")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "")
		})

		Convey("普通关键词走快速路径", func() {
			result := Parse("alice")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "alice")
			So(result.Expression, ShouldBeNil)
		})

		Convey("包含空格的关键词", func() {
			result := Parse("hello world")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "hello world")
		})

		Convey("单个等值条件", func() {
			result := Parse("status = 'active'")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions, ShouldHaveLength, 1)
			So(result.Expression.Conditions[0].Field, ShouldEqual, "status")
			So(result.Expression.Conditions[0].Operator, ShouldEqual, "=")
			So(result.Expression.Conditions[0].Value, ShouldEqual, "active")
			So(result.Expression.Connectors, ShouldBeEmpty)
		})

		Convey("AND 连接的多个条件", func() {
			result := Parse("id > 100 && name = 'Alice'")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions, ShouldHaveLength, 2)
			So(result.Expression.Conditions[0].Field, ShouldEqual, "id")
			So(result.Expression.Conditions[0].Operator, ShouldEqual, ">")
			So(result.Expression.Conditions[0].Value, ShouldEqual, int64(100))
			So(result.Expression.Conditions[1].Field, ShouldEqual, "name")
			So(result.Expression.Conditions[1].Operator, ShouldEqual, "=")
			So(result.Expression.Conditions[1].Value, ShouldEqual, "Alice")
			So(result.Expression.Connectors, ShouldResemble, []string{ConnectorAnd})
		})

		Convey("OR 连接的多个条件", func() {
			result := Parse("status = 1 || status = 2")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions, ShouldHaveLength, 2)
			So(result.Expression.Connectors, ShouldResemble, []string{ConnectorOr})
		})

		Convey("混合连接符按出现顺序记录", func() {
			result := Parse("a = 1 && b = 2 || c = 3")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions, ShouldHaveLength, 3)
			So(result.Expression.Connectors, ShouldResemble, []string{ConnectorAnd, ConnectorOr})
		})

		Convey("长操作符优先匹配", func() {
			result := Parse("age >= 18 && score <= 90 && level != 3")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions[0].Operator, ShouldEqual, ">=")
			So(result.Expression.Conditions[1].Operator, ShouldEqual, "<=")
			So(result.Expression.Conditions[2].Operator, ShouldEqual, "!=")
		})

		Convey("双引号字符串值", func() {
			result := Parse(`name = "Bob"`)
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions[0].Value, ShouldEqual, "Bob")
		})

		Convey("浮点数值", func() {
			result := Parse("price > 19.99")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions[0].Value, ShouldEqual, 19.99)
		})

		Convey("无引号非数字的值保留原文", func() {
			result := Parse("status = active")
			So(result.IsExpression, ShouldBeTrue)
			So(result.Expression.Conditions[0].Value, ShouldEqual, "active")
		})

		Convey("孤立操作符回退为关键词搜索", func() {
			result := Parse(">")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, ">")
		})

		Convey("缺少右操作数回退为关键词搜索", func() {
			result := Parse("id >")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "id >")
		})

		Convey("缺少左操作数回退为关键词搜索", func() {
			result := Parse("> 100")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "> 100")
		})

		Convey("一个片段失败则整体回退", func() {
			result := Parse("id > 100 && broken")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "id > 100 && broken")
		})

		Convey("回退时保留原始文本的完整内容", func() {
			result := Parse("  id > 100 && broken  ")
			So(result.IsExpression, ShouldBeFalse)
			So(result.RawText, ShouldEqual, "id > 100 && broken")
		})
	})
}
