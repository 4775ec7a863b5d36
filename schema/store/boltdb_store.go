package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStoreOptions struct {
	// DBPath 数据库文件路径，不存在时自动创建
	DBPath string `cfg:"dbPath" yaml:"dbPath" validate:"required"`

	// BucketName 存放缓存记录的桶
	BucketName string `cfg:"bucketName" yaml:"bucketName" def:"schema_cache"`

	// Timeout 获取文件锁的等待时间，为零时无限期等待
	Timeout time.Duration `cfg:"timeout" yaml:"timeout" def:"5s"`

	// ReadOnly 只读模式打开，桶不存在时 Get 返回 ErrNotProvisioned
	ReadOnly bool `cfg:"readOnly" yaml:"readOnly"`
}

// BoltDBStore 单文件嵌入式存储，宿主环境没有任何外部服务时的默认选择
type BoltDBStore struct {
	db         *bolt.DB
	bucketName []byte
}

func NewBoltDBStoreWithOptions(options *BoltDBStoreOptions) (*BoltDBStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.BucketName == "" {
		options.BucketName = "schema_cache"
	}

	db, err := bolt.Open(options.DBPath, 0600, &bolt.Options{
		Timeout:  options.Timeout,
		ReadOnly: options.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. path: %s", options.DBPath)
	}

	store := &BoltDBStore{db: db, bucketName: []byte(options.BucketName)}
	if !options.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(store.bucketName)
			return err
		})
		if err != nil {
			db.Close()
			return nil, errors.WithMessage(err, "create bucket failed")
		}
	}
	return store, nil
}

func (s *BoltDBStore) Get(ctx context.Context, connectionID string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.Wrapf(ErrNotProvisioned, "bucket: %s", s.bucketName)
		}
		data := bucket.Get([]byte(connectionID))
		if data == nil {
			return errors.Wrapf(ErrEntryNotFound, "connection: %s", connectionID)
		}
		entry = &Entry{}
		return msgpack.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *BoltDBStore) Upsert(ctx context.Context, entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return errors.WithMessage(err, "marshal entry failed")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(s.bucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(entry.ConnectionID), data)
	})
}

func (s *BoltDBStore) Del(ctx context.Context, connectionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(connectionID))
	})
}

func (s *BoltDBStore) Close() error {
	return s.db.Close()
}
