package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/rotrade-sync/internal/db"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

// GormStore keeps each key as a row of store_entries. Change notifications
// go through an in-process Broker, so only sessions sharing this process
// see them live; other processes pick writes up on their next poll.
type GormStore struct {
	DB     *gorm.DB
	ns     string
	broker *Broker
}

func NewGormStore(database *gorm.DB, namespace string) *GormStore {
	return &GormStore{DB: database, ns: namespace, broker: NewBroker()}
}

func (s *GormStore) key(k string) string { return s.ns + k }

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, int64, error) {
	var e db.Entry
	err := s.DB.WithContext(ctx).Where("entry_key = ?", s.key(key)).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("db get %s: %w", key, err)
	}
	return []byte(e.Value), e.Revision, nil
}

// CompareAndSwap inserts when revision is 0 and otherwise updates the row
// only if it still carries revision.
//
// Behavior:
//   - revision 0 + row exists → ErrConflict.
//   - revision N + row moved on (or was deleted) → ErrConflict.
//   - otherwise the row ends at revision+1.
func (s *GormStore) CompareAndSwap(ctx context.Context, key string, revision int64, value []byte) (int64, error) {
	full := s.key(key)

	if revision == 0 {
		res := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&db.Entry{Key: full, Value: string(value), Revision: 1})
		if res.Error != nil {
			return 0, fmt.Errorf("db cas %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, apperr.ErrConflict
		}
		return 1, nil
	}

	res := s.DB.WithContext(ctx).
		Model(&db.Entry{}).
		Where("entry_key = ? AND revision = ?", full, revision).
		Updates(map[string]any{"value": string(value), "revision": revision + 1})
	if res.Error != nil {
		return 0, fmt.Errorf("db cas %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.ErrConflict
	}
	return revision + 1, nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("entry_key = ?", s.key(key)).Delete(&db.Entry{}).Error
}

func (s *GormStore) Publish(_ context.Context, c Change) error {
	s.broker.Publish(c)
	return nil
}

func (s *GormStore) Subscribe(_ context.Context) (Subscription, error) {
	return s.broker.Subscribe(), nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	_, err := db.Reset(s.DB.WithContext(ctx), s.ns)
	return err
}

func (s *GormStore) Close() error {
	s.broker.Close()
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
