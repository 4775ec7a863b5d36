package driver

import (
	"fmt"
)

const defaultTiDBPort = 4000

// TiDBDriver 分布式 MySQL 协议集群驱动
//
// TiDB 走 MySQL 线协议，元数据查询与 MySQL 完全一致，
// 差异只在默认端口和集群侧的执行语义，驱动层直接复用 MySQL 实现。
type TiDBDriver struct {
	MySQLDriver
}

func NewTiDBDriver(conn *Connection, password string) *TiDBDriver {
	port := conn.Port
	if port == 0 {
		port = defaultTiDBPort
	}

	d := &TiDBDriver{
		MySQLDriver: MySQLDriver{
			baseDriver: baseDriver{
				driverName: "mysql",
				dsn: fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
					conn.Username, password, conn.Host, port, conn.Database),
				dialect: dialectMySQL,
			},
		},
	}
	d.introspect = d.GetTableSchema
	return d
}
