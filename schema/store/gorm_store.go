package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type GormStoreOptions struct {
	// Driver 数据库驱动，可选 mysql/sqlite
	Driver string `cfg:"driver" yaml:"driver" def:"sqlite" validate:"omitempty,oneof=mysql sqlite"`

	// DSN 数据库连接串，sqlite 时为数据库文件路径
	DSN string `cfg:"dsn" yaml:"dsn" validate:"required"`

	// TableName 缓存表名
	TableName string `cfg:"tableName" yaml:"tableName" def:"schema_cache"`

	// AutoMigrate 启动时自动建表
	AutoMigrate bool `cfg:"autoMigrate" yaml:"autoMigrate" def:"true"`
}

// GormStore 关系库存储，适合缓存需要和业务数据同库持久化的场景
type GormStore struct {
	db        *gorm.DB
	tableName string
}

func NewGormStoreWithOptions(options *GormStoreOptions) (*GormStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.TableName == "" {
		options.TableName = "schema_cache"
	}

	var dialector gorm.Dialector
	switch options.Driver {
	case "mysql":
		dialector = gormmysql.Open(options.DSN)
	case "sqlite", "":
		dialector = gormsqlite.Open(options.DSN)
	default:
		return nil, errors.Errorf("unknown gorm driver: %s", options.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.WithMessage(err, "gorm.Open failed")
	}

	store := &GormStore{db: db, tableName: options.TableName}
	if options.AutoMigrate {
		if err := db.Table(options.TableName).AutoMigrate(&Entry{}); err != nil {
			return nil, errors.WithMessage(err, "auto migrate failed")
		}
	}
	return store, nil
}

func (s *GormStore) Get(ctx context.Context, connectionID string) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Table(s.tableName).
		Where("connection_id = ?", connectionID).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrEntryNotFound, "connection: %s", connectionID)
		}
		if isMissingTableError(err) {
			return nil, errors.Wrapf(ErrNotProvisioned, "table: %s", s.tableName)
		}
		return nil, errors.WithMessage(err, "get entry failed")
	}
	return &entry, nil
}

func (s *GormStore) Upsert(ctx context.Context, entry *Entry) error {
	err := s.db.WithContext(ctx).Table(s.tableName).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"schema_text", "updated_at", "expires_at"}),
		}).
		Create(entry).Error
	if err != nil {
		return errors.WithMessage(err, "upsert entry failed")
	}
	return nil
}

func (s *GormStore) Del(ctx context.Context, connectionID string) error {
	err := s.db.WithContext(ctx).Table(s.tableName).
		Where("connection_id = ?", connectionID).
		Delete(&Entry{}).Error
	if err != nil && !isMissingTableError(err) {
		return errors.WithMessage(err, "delete entry failed")
	}
	return nil
}

func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// isMissingTableError 各驱动报表不存在的文案不同，统一归为未初始化
func isMissingTableError(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "no such table") ||
		strings.Contains(message, "doesn't exist") ||
		strings.Contains(message, "does not exist")
}
