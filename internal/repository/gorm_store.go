package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

type documentModel struct {
	Key       string         `gorm:"column:doc_key;primaryKey"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (documentModel) TableName() string { return "documents" }

type listEntryModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	List      string         `gorm:"column:list;index:idx_list_id,priority:1"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (listEntryModel) TableName() string { return "list_entries" }

// GormStore is the embedded SQLite backend.
type GormStore struct {
	db *gorm.DB
}

var _ domrepo.DocumentStore = (*GormStore)(nil)

func NewGormStore(path string) (*GormStore, error) {
	if path == "" {
		return nil, errors.New("gorm store: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("gorm store: create dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm store: open: %w", err)
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&documentModel{}, &listEntryModel{}); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) LoadDocument(ctx context.Context, key string, dest any) error {
	var row documentModel
	err := s.db.WithContext(ctx).Where("doc_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("gorm store: load %s: %w", key, err)
	}
	if err := json.Unmarshal(row.Payload, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrConfigCorrupt, key, err)
	}
	return nil
}

func (s *GormStore) SaveDocument(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("gorm store: encode %s: %w", key, err)
	}
	row := documentModel{Key: key, Payload: datatypes.JSON(b), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("gorm store: save %s: %w", key, err)
	}
	return nil
}

// AppendCapped inserts and trims inside one transaction.
func (s *GormStore) AppendCapped(ctx context.Context, list string, entry any, limit int) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("gorm store: encode %s entry: %w", list, err)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := listEntryModel{List: list, Payload: datatypes.JSON(b), CreatedAt: time.Now().UTC()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("gorm store: append %s: %w", list, err)
		}
		if limit <= 0 {
			return nil
		}
		keep := tx.Model(&listEntryModel{}).Select("id").
			Where("list = ?", list).Order("id DESC").Limit(limit)
		err := tx.Where("list = ? AND id NOT IN (?)", list, keep).Delete(&listEntryModel{}).Error
		if err != nil {
			return fmt.Errorf("gorm store: trim %s: %w", list, err)
		}
		return nil
	})
}

func (s *GormStore) LoadList(ctx context.Context, list string, dest any) error {
	var rows []listEntryModel
	err := s.db.WithContext(ctx).Where("list = ?", list).Order("id ASC").Find(&rows).Error
	if err != nil {
		return fmt.Errorf("gorm store: load %s: %w", list, err)
	}
	if len(rows) == 0 {
		return decodeList(nil, dest)
	}
	items := make([]string, len(rows))
	for i, r := range rows {
		items[i] = string(r.Payload)
	}
	return decodeList(joinRaw(items), dest)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
