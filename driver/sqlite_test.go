package driver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestSQLiteDriver(t *testing.T) *SQLiteDriver {
	t.Helper()

	d := NewSQLiteDriver(&Connection{
		ID:       "test-sqlite",
		Name:     "test-sqlite",
		Type:     DriverTypeSQLite,
		Database: filepath.Join(t.TempDir(), "test.db"),
	})

	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Disconnect() })

	statements := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT,
			age INTEGER
		)`,
		`CREATE TABLE logs (message TEXT)`,
	}
	for _, statement := range statements {
		if _, err := d.db.ExecContext(ctx, statement); err != nil {
			t.Fatalf("create table failed: %v", err)
		}
	}
	return d
}

func seedUsers(t *testing.T, d *SQLiteDriver, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= count; i++ {
		status := "active"
		if i%2 == 0 {
			status = "inactive"
		}
		_, err := d.db.ExecContext(ctx,
			`INSERT INTO users (id, name, status, age) VALUES (?, ?, ?, ?)`,
			i, "user"+string(rune('a'+i%26)), status, 20+i)
		if err != nil {
			t.Fatalf("seed users failed: %v", err)
		}
	}
}

func TestSQLiteDriverLifecycle(t *testing.T) {
	Convey("测试 SQLiteDriver 连接生命周期", t, func() {
		ctx := context.Background()

		Convey("断开前不可查询", func() {
			d := NewSQLiteDriver(&Connection{
				ID: "x", Name: "x", Type: DriverTypeSQLite, Database: ":memory:",
			})
			_, err := d.Query(ctx, "SELECT 1")
			So(errors.Is(err, ErrNotConnected), ShouldBeTrue)
		})

		Convey("重复连接和断开是幂等的", func() {
			d := newTestSQLiteDriver(t)
			So(d.Connect(ctx), ShouldBeNil)
			So(d.Disconnect(), ShouldBeNil)
			So(d.Disconnect(), ShouldBeNil)
		})
	})
}

func TestSQLiteDriverMetadata(t *testing.T) {
	Convey("测试 SQLiteDriver 元数据查询", t, func() {
		d := newTestSQLiteDriver(t)
		ctx := context.Background()

		Convey("GetTables 返回按名称排序的表", func() {
			tables, err := d.GetTables(ctx)
			So(err, ShouldBeNil)
			So(tables, ShouldResemble, []string{"logs", "users"})
		})

		Convey("GetTableSchema 识别主键和可空性", func() {
			columns, err := d.GetTableSchema(ctx, "users")
			So(err, ShouldBeNil)
			So(len(columns), ShouldEqual, 4)
			So(columns[0].Field, ShouldEqual, "id")
			So(columns[0].IsPrimaryKey, ShouldBeTrue)
			So(columns[1].Field, ShouldEqual, "name")
			So(columns[1].Nullable, ShouldBeFalse)
			So(columns[2].Nullable, ShouldBeTrue)
		})
	})
}

func TestSQLiteDriverGetTableData(t *testing.T) {
	Convey("测试 SQLiteDriver 分页查询", t, func() {
		d := newTestSQLiteDriver(t)
		seedUsers(t, d, 25)
		ctx := context.Background()

		Convey("默认分页参数", func() {
			result, err := d.GetTableData(ctx, "users", nil)
			So(err, ShouldBeNil)
			So(result.Page, ShouldEqual, 1)
			So(result.PageSize, ShouldEqual, 20)
			So(result.Total, ShouldEqual, 25)
			So(result.TotalPages, ShouldEqual, 2)
			So(len(result.Rows), ShouldEqual, 20)
		})

		Convey("翻到最后一页", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{Page: 3, PageSize: 10})
			So(err, ShouldBeNil)
			So(result.Total, ShouldEqual, 25)
			So(result.TotalPages, ShouldEqual, 3)
			So(len(result.Rows), ShouldEqual, 5)
			So(result.Rows[0]["id"], ShouldEqual, int64(21))
		})

		Convey("超出范围的页返回空集但总数不变", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{Page: 9, PageSize: 10})
			So(err, ShouldBeNil)
			So(result.Total, ShouldEqual, 25)
			So(len(result.Rows), ShouldEqual, 0)
		})

		Convey("等值过滤键", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{
				PageSize: 100,
				Filters:  map[string]string{"status": "active"},
			})
			So(err, ShouldBeNil)
			So(result.Total, ShouldEqual, 13)
			for _, row := range result.Rows {
				So(row["status"], ShouldEqual, "active")
			}
		})

		Convey("表达式搜索", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{
				PageSize: 100,
				Filters:  map[string]string{SearchFilterKey: "id > 20 && status = 'active'"},
			})
			So(err, ShouldBeNil)
			So(result.Total, ShouldEqual, 3)
			for _, row := range result.Rows {
				So(row["id"], ShouldBeGreaterThan, 20)
			}
		})

		Convey("排序列", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{
				PageSize:  5,
				SortField: "id",
				SortOrder: "desc",
			})
			So(err, ShouldBeNil)
			So(result.Rows[0]["id"], ShouldEqual, int64(25))
		})

		Convey("非法排序列回退为主键升序", func() {
			result, err := d.GetTableData(ctx, "users", &TableQueryOptions{
				PageSize:  5,
				SortField: "nosuch",
				SortOrder: "desc",
			})
			So(err, ShouldBeNil)
			So(result.Rows[0]["id"], ShouldEqual, int64(1))
		})
	})
}

func TestSQLiteDriverMutations(t *testing.T) {
	Convey("测试 SQLiteDriver 写操作", t, func() {
		d := newTestSQLiteDriver(t)
		seedUsers(t, d, 3)
		ctx := context.Background()

		Convey("InsertRow 写入归一化后的行", func() {
			err := d.InsertRow(ctx, "users", Row{
				"id": 100, "name": "alice", "status": "active", "age": 30,
			})
			So(err, ShouldBeNil)

			rows, err := d.Query(ctx, "SELECT * FROM users WHERE id = 100")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0]["name"], ShouldEqual, "alice")
		})

		Convey("UpdateRows 按主键更新其余字段", func() {
			err := d.UpdateRows(ctx, "users", []Row{
				{"id": 1, "status": "banned"},
				{"id": 2, "status": "banned"},
			})
			So(err, ShouldBeNil)

			rows, err := d.Query(ctx, "SELECT status FROM users WHERE id IN (1, 2)")
			So(err, ShouldBeNil)
			So(rows[0]["status"], ShouldEqual, "banned")
			So(rows[1]["status"], ShouldEqual, "banned")
		})

		Convey("UpdateRows 缺少主键时失败", func() {
			err := d.UpdateRows(ctx, "users", []Row{{"status": "banned"}})
			So(err, ShouldNotBeNil)
		})

		Convey("UpdateRows 只有主键没有可更新字段时失败", func() {
			err := d.UpdateRows(ctx, "users", []Row{{"id": 1}})
			So(err, ShouldNotBeNil)
		})

		Convey("DeleteRows 按主键删除", func() {
			err := d.DeleteRows(ctx, "users", []any{1, 2})
			So(err, ShouldBeNil)

			rows, err := d.Query(ctx, "SELECT COUNT(*) AS c FROM users")
			So(err, ShouldBeNil)
			So(rows[0]["c"], ShouldEqual, int64(1))
		})

		Convey("无主键表拒绝所有写操作", func() {
			So(errors.Is(d.DeleteRows(ctx, "logs", []any{1}), ErrNoPrimaryKey), ShouldBeTrue)
			So(errors.Is(d.InsertRow(ctx, "logs", Row{"message": "x"}), ErrNoPrimaryKey), ShouldBeTrue)
			So(errors.Is(d.UpdateRows(ctx, "logs", []Row{{"message": "x"}}), ErrNoPrimaryKey), ShouldBeTrue)
		})

		Convey("不支持的值类型被拒绝", func() {
			err := d.InsertRow(ctx, "users", Row{
				"id": 200, "name": map[string]string{"bad": "value"},
			})
			So(errors.Is(err, ErrUnsupportedValue), ShouldBeTrue)
		})
	})
}
