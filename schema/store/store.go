package store

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrEntryNotFound 连接没有缓存记录
	ErrEntryNotFound = errors.New("schema entry not found")

	// ErrNotProvisioned 存储后端尚未初始化（表或桶不存在）
	// 首次使用时属于正常状态，调用方应当视为缓存未命中而不是失败
	ErrNotProvisioned = errors.New("schema store not provisioned")
)

// Entry 单个连接的表结构缓存记录
//
// 时间戳统一为毫秒级 Unix 时间，避免跨存储后端的时区和精度差异
type Entry struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId" bson:"connection_id" gorm:"column:connection_id;primaryKey;size:64"`
	SchemaText   string `json:"schemaText" msgpack:"schemaText" bson:"schema_text" gorm:"column:schema_text;type:text"`
	UpdatedAt    int64  `json:"updatedAt" msgpack:"updatedAt" bson:"updated_at" gorm:"column:updated_at"`
	ExpiresAt    int64  `json:"expiresAt" msgpack:"expiresAt" bson:"expires_at" gorm:"column:expires_at"`
}

// Store 表结构缓存的存储接口
type Store interface {
	// Get 获取连接的缓存记录，记录不存在时返回 ErrEntryNotFound，
	// 存储后端未初始化时返回 ErrNotProvisioned
	Get(ctx context.Context, connectionID string) (*Entry, error)
	// Upsert 写入或覆盖连接的缓存记录
	Upsert(ctx context.Context, entry *Entry) error
	// Del 删除连接的缓存记录，记录不存在时也返回成功
	Del(ctx context.Context, connectionID string) error
	Close() error
}

type StoreOptions struct {
	// Type 存储类型，可选 gorm/boltdb/redis/mongo/freecache
	Type string `cfg:"type" yaml:"type" validate:"required,oneof=gorm boltdb redis mongo freecache"`

	Gorm      *GormStoreOptions      `cfg:"gorm" yaml:"gorm"`
	BoltDB    *BoltDBStoreOptions    `cfg:"boltdb" yaml:"boltdb"`
	Redis     *RedisStoreOptions     `cfg:"redis" yaml:"redis"`
	Mongo     *MongoStoreOptions     `cfg:"mongo" yaml:"mongo"`
	FreeCache *FreeCacheStoreOptions `cfg:"freecache" yaml:"freecache"`
}

// NewStoreWithOptions 按类型创建存储实现
func NewStoreWithOptions(options *StoreOptions) (Store, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Type {
	case "gorm":
		return NewGormStoreWithOptions(options.Gorm)
	case "boltdb":
		return NewBoltDBStoreWithOptions(options.BoltDB)
	case "redis":
		return NewRedisStoreWithOptions(options.Redis)
	case "mongo":
		return NewMongoStoreWithOptions(options.Mongo)
	case "freecache":
		return NewFreeCacheStoreWithOptions(options.FreeCache)
	default:
		return nil, errors.Errorf("unknown store type: %s", options.Type)
	}
}
