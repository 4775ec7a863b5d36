package driver

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// NewDriverWithOptions 按连接类型选择驱动实现
//
// password 是解密后的明文凭据，远程后端声明了凭据引用却没有拿到
// 明文时属于前置条件错误，直接失败，不做重试。
// 未知连接类型返回 ErrUnsupportedDriverType，不做静默兜底。
func NewDriverWithOptions(conn *Connection, password string) (Driver, error) {
	if conn == nil {
		return nil, errors.New("connection is nil")
	}
	if err := validate.Struct(conn); err != nil {
		return nil, errors.WithMessage(err, "invalid connection")
	}

	switch conn.Type {
	case DriverTypeTiDB, DriverTypeMySQL, DriverTypePostgres:
		if conn.CredentialRef != "" && password == "" {
			return nil, errors.Wrapf(ErrMissingCredential, "connection: %s", conn.Name)
		}
	}

	switch conn.Type {
	case DriverTypeTiDB:
		return NewTiDBDriver(conn, password), nil
	case DriverTypeMySQL:
		return NewMySQLDriver(conn, password), nil
	case DriverTypePostgres:
		return NewPostgresDriver(conn, password), nil
	case DriverTypeSQLite3:
		return NewSQLite3Driver(conn), nil
	case DriverTypeSQLite:
		return NewSQLiteDriver(conn), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDriverType, "type: %s", conn.Type)
	}
}
