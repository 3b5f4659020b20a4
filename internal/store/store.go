// Package store is the persisted key-value store shared by every session.
//
// Each key holds one JSON document and a revision. Writers use
// compare-and-swap on the revision, and every committed write is announced
// on a change feed that other sessions subscribe to.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/db"
)

// Change announces a committed write. Key is un-namespaced.
type Change struct {
	Key      string    `json:"key"`
	Revision int64     `json:"revision"`
	Origin   string    `json:"origin,omitempty"`
	At       time.Time `json:"at"`
}

// Subscription delivers changes until Close is called.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Subscriber is anything that can open a change subscription: a Store, or
// a remote change feed client.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

type Store interface {
	Subscriber

	// Get returns the value and revision of key. A missing key yields a nil
	// value, revision 0 and no error.
	Get(ctx context.Context, key string) ([]byte, int64, error)

	// CompareAndSwap writes value only if key is still at revision (0 means
	// "does not exist yet") and returns the new revision. A lost race yields
	// errors.ErrConflict.
	CompareAndSwap(ctx context.Context, key string, revision int64, value []byte) (int64, error)

	Delete(ctx context.Context, key string) error
	Publish(ctx context.Context, c Change) error

	// Clear removes every key in the store's namespace.
	Clear(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// Open builds the Store selected by STORE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverRedis:
		s := NewRedisStore(NewRedisClient(cfg), cfg.Store.Namespace)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, nil

	case config.DriverSQLite, config.DriverMySQL:
		database, err := db.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		return NewGormStore(database, cfg.Store.Namespace), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
