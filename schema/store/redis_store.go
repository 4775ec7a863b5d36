package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type RedisStoreOptions struct {
	// Endpoint host:port 地址
	Endpoint string `cfg:"endpoint" yaml:"endpoint" def:"127.0.0.1:6379"`

	// Username 连接用户名，Redis 6.0+ ACL 时使用
	Username string `cfg:"username" yaml:"username"`

	// Password 可选密码
	Password string `cfg:"password" yaml:"password"`

	// DB 连接后选择的数据库
	DB int `cfg:"db" yaml:"db" def:"0"`

	// KeyPrefix 缓存键前缀，避免和同实例上的其他业务键冲突
	KeyPrefix string `cfg:"keyPrefix" yaml:"keyPrefix" def:"schema:"`

	// DialTimeout 建立新连接的拨号超时时间
	DialTimeout time.Duration `cfg:"dialTimeout" yaml:"dialTimeout" def:"5s"`

	// ReadTimeout 套接字读取超时时间
	ReadTimeout time.Duration `cfg:"readTimeout" yaml:"readTimeout" def:"3s"`

	// WriteTimeout 套接字写入超时时间
	WriteTimeout time.Duration `cfg:"writeTimeout" yaml:"writeTimeout" def:"3s"`
}

// RedisStore 共享缓存存储，多实例部署时用来共用一份表结构缓存
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStoreWithOptions(options *RedisStoreOptions) (*RedisStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Endpoint == "" {
		options.Endpoint = "127.0.0.1:6379"
	}
	if options.KeyPrefix == "" {
		options.KeyPrefix = "schema:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
	})

	return &RedisStore{client: client, keyPrefix: options.KeyPrefix}, nil
}

func (s *RedisStore) key(connectionID string) string {
	return s.keyPrefix + connectionID
}

func (s *RedisStore) Get(ctx context.Context, connectionID string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(connectionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ErrEntryNotFound, "connection: %s", connectionID)
		}
		return nil, errors.WithMessage(err, "redis get failed")
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, errors.WithMessage(err, "unmarshal entry failed")
	}
	return &entry, nil
}

func (s *RedisStore) Upsert(ctx context.Context, entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return errors.WithMessage(err, "marshal entry failed")
	}

	// 过期时间交给 Redis 本身，键在逻辑过期后自动回收
	var ttl time.Duration
	if entry.ExpiresAt > 0 {
		ttl = time.Until(time.UnixMilli(entry.ExpiresAt))
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	if err := s.client.Set(ctx, s.key(entry.ConnectionID), data, ttl).Err(); err != nil {
		return errors.WithMessage(err, "redis set failed")
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, connectionID string) error {
	if err := s.client.Del(ctx, s.key(connectionID)).Err(); err != nil {
		return errors.WithMessage(err, "redis del failed")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
