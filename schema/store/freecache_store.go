package store

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type FreeCacheStoreOptions struct {
	// Size 缓存占用的内存字节数，最小 512KB
	Size int `cfg:"size" yaml:"size" def:"10485760"`
}

// FreeCacheStore 进程内缓存存储，记录随进程退出丢失，适合测试和一次性任务
type FreeCacheStore struct {
	cache *freecache.Cache
}

func NewFreeCacheStoreWithOptions(options *FreeCacheStoreOptions) (*FreeCacheStore, error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	size := options.Size
	if size <= 0 {
		size = 10 * 1024 * 1024
	}
	return &FreeCacheStore{cache: freecache.NewCache(size)}, nil
}

func (s *FreeCacheStore) Get(ctx context.Context, connectionID string) (*Entry, error) {
	data, err := s.cache.Get([]byte(connectionID))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, errors.Wrapf(ErrEntryNotFound, "connection: %s", connectionID)
		}
		return nil, errors.WithMessage(err, "freecache get failed")
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, errors.WithMessage(err, "unmarshal entry failed")
	}
	return &entry, nil
}

func (s *FreeCacheStore) Upsert(ctx context.Context, entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return errors.WithMessage(err, "marshal entry failed")
	}

	// freecache 的过期秒数为 0 表示永不过期
	expireSeconds := 0
	if entry.ExpiresAt > 0 {
		remaining := time.Until(time.UnixMilli(entry.ExpiresAt))
		if remaining <= 0 {
			remaining = time.Second
		}
		expireSeconds = int(remaining / time.Second)
		if expireSeconds < 1 {
			expireSeconds = 1
		}
	}

	if err := s.cache.Set([]byte(entry.ConnectionID), data, expireSeconds); err != nil {
		return errors.WithMessage(err, "freecache set failed")
	}
	return nil
}

func (s *FreeCacheStore) Del(ctx context.Context, connectionID string) error {
	s.cache.Del([]byte(connectionID))
	return nil
}

func (s *FreeCacheStore) Close() error {
	s.cache.Clear()
	return nil
}
