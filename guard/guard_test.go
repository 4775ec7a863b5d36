package guard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateAndSanitizeSQL(t *testing.T) {
	Convey("测试 ValidateAndSanitizeSQL", t, func() {
		Convey("普通查询追加 LIMIT", func() {
			result := ValidateAndSanitizeSQL("SELECT * FROM users")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "SELECT * FROM users LIMIT 100")
			So(result.Err, ShouldEqual, "")
		})

		Convey("带分号的查询先去掉分号再追加 LIMIT", func() {
			result := ValidateAndSanitizeSQL("SELECT * FROM users;")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "SELECT * FROM users LIMIT 100")
		})

		Convey("已有 LIMIT 的查询不重复追加", func() {
			result := ValidateAndSanitizeSQL("SELECT * FROM users LIMIT 10")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "SELECT * FROM users LIMIT 10")
		})

		Convey("小写 limit 同样能识别", func() {
			result := ValidateAndSanitizeSQL("select * from users limit 5")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "select * from users limit 5")
		})

		Convey("列名包含关键词子串不误伤", func() {
			result := ValidateAndSanitizeSQL("SELECT updated_at FROM users")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "SELECT updated_at FROM users LIMIT 100")
		})

		Convey("空文本拒绝", func() {
			result := ValidateAndSanitizeSQL("   ")
			So(result.Valid, ShouldBeFalse)
			So(result.SQL, ShouldEqual, "")
			So(result.Err, ShouldNotEqual, "")
		})

		Convey("DELETE 语句拒绝", func() {
			result := ValidateAndSanitizeSQL("DELETE FROM users")
			So(result.Valid, ShouldBeFalse)
			So(result.SQL, ShouldEqual, "")
		})

		Convey("UPDATE 语句拒绝", func() {
			result := ValidateAndSanitizeSQL("UPDATE users SET name = 'x'")
			So(result.Valid, ShouldBeFalse)
		})

		Convey("SELECT 中夹带 DROP 拒绝", func() {
			result := ValidateAndSanitizeSQL("SELECT * FROM users; DROP TABLE users")
			So(result.Valid, ShouldBeFalse)
			So(result.Err, ShouldContainSubstring, "DROP")
		})

		Convey("大小写混写的写操作同样拒绝", func() {
			result := ValidateAndSanitizeSQL("select * from users where id in (select id from t); TrUnCaTe TABLE t")
			So(result.Valid, ShouldBeFalse)
		})

		Convey("INSERT 开头直接被前缀检查拒绝", func() {
			result := ValidateAndSanitizeSQL("INSERT INTO users VALUES (1)")
			So(result.Valid, ShouldBeFalse)
		})

		Convey("SHOW 语句放行且不追加 LIMIT", func() {
			result := ValidateAndSanitizeSQL("SHOW TABLES")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "SHOW TABLES")
		})

		Convey("EXPLAIN 语句放行且不追加 LIMIT", func() {
			result := ValidateAndSanitizeSQL("EXPLAIN SELECT * FROM users")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "EXPLAIN SELECT * FROM users")
		})

		Convey("DESCRIBE 语句放行且不追加 LIMIT", func() {
			result := ValidateAndSanitizeSQL("DESCRIBE users")
			So(result.Valid, ShouldBeTrue)
			So(result.SQL, ShouldEqual, "DESCRIBE users")
		})
	})
}
