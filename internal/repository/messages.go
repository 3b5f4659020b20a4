package repository

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// MessageRepository provides access to the flat messages collection.
type MessageRepository struct {
	col *Collection[model.Message]
}

func NewMessageRepository(s store.Store, origin string) *MessageRepository {
	return &MessageRepository{col: NewCollection[model.Message](s, model.KeyMessages, origin)}
}

func (r *MessageRepository) All(ctx context.Context) ([]model.Message, error) {
	return r.col.All(ctx)
}

func (r *MessageRepository) Create(ctx context.Context, m model.Message) error {
	return r.col.Append(ctx, m)
}

func (r *MessageRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.col.Filter(ctx, func(m model.Message) bool { return m.ID == id })
	return n > 0, err
}

// DeleteBetween removes the whole thread of the unordered pair (a, b).
func (r *MessageRepository) DeleteBetween(ctx context.Context, a, b int64) (int, error) {
	return r.col.Filter(ctx, func(m model.Message) bool { return m.Between(a, b) })
}
