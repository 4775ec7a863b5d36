package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStoreOptions struct {
	// URI 连接串，形如 mongodb://127.0.0.1:27017
	URI string `cfg:"uri" yaml:"uri" validate:"required"`

	// Database 数据库名
	Database string `cfg:"database" yaml:"database" def:"dbx"`

	// Collection 集合名
	Collection string `cfg:"collection" yaml:"collection" def:"schema_cache"`

	// ConnectTimeout 建立连接的超时时间
	ConnectTimeout time.Duration `cfg:"connectTimeout" yaml:"connectTimeout" def:"5s"`
}

// MongoStore 文档库存储
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStoreWithOptions(opts *MongoStoreOptions) (*MongoStore, error) {
	if opts == nil {
		return nil, errors.New("options is nil")
	}
	if opts.Database == "" {
		opts.Database = "dbx"
	}
	if opts.Collection == "" {
		opts.Collection = "schema_cache"
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.WithMessage(err, "mongo.Connect failed")
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, connectionID string) (*Entry, error) {
	var entry Entry
	err := s.collection.FindOne(ctx, bson.M{"connection_id": connectionID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrEntryNotFound, "connection: %s", connectionID)
		}
		return nil, errors.WithMessage(err, "mongo find failed")
	}
	return &entry, nil
}

func (s *MongoStore) Upsert(ctx context.Context, entry *Entry) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"connection_id": entry.ConnectionID},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.WithMessage(err, "mongo upsert failed")
	}
	return nil
}

func (s *MongoStore) Del(ctx context.Context, connectionID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"connection_id": connectionID}); err != nil {
		return errors.WithMessage(err, "mongo delete failed")
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
