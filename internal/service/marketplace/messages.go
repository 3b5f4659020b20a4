package marketplace

import (
	"context"
	"fmt"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
)

// SendMessage appends a direct message.
//
// Behavior:
//   - content is required; messaging yourself is rejected.
//   - rejected when the sender has blocked the recipient.
//   - an unknown sender or recipient is a silent no-op.
func (s *Service) SendMessage(ctx context.Context, in model.MessageInput) (*model.Message, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	blocked, err := s.repos.Blocks.IsBlocked(ctx, in.FromUserID, in.ToUserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.Validation("you have blocked this user")
	}

	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	if model.FindUser(users, in.FromUserID) == nil || model.FindUser(users, in.ToUserID) == nil {
		s.appCtx.Logger.Debug("SendMessage: party missing, ignoring", "from", in.FromUserID, "to", in.ToUserID)
		return nil, nil
	}

	return s.deliver(ctx, in.FromUserID, in.ToUserID, in.Content, in.ReplyToID)
}

// deliver is the shared write path of direct and support messages.
func (s *Service) deliver(ctx context.Context, from, to int64, content string, replyTo *int64) (*model.Message, error) {
	m := model.Message{
		ID:         s.appCtx.IDs.Next(),
		FromUserID: from,
		ToUserID:   to,
		Content:    content,
		ReplyToID:  replyTo,
		CreatedAt:  s.appCtx.Now().UTC(),
	}
	if err := s.repos.Messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &m, nil
}

func (s *Service) DeleteMessage(ctx context.Context, id int64) error {
	_, err := s.repos.Messages.Delete(ctx, id)
	return err
}

// GetMessages returns every message userID sent or received, or all
// messages for userID 0.
func (s *Service) GetMessages(ctx context.Context, userID int64) ([]model.Message, error) {
	all, err := s.repos.Messages.All(ctx)
	if err != nil {
		return nil, err
	}
	if userID != 0 {
		all = model.MessagesFor(all, userID)
	}
	if all == nil {
		all = []model.Message{}
	}
	return all, nil
}

// Thread returns the conversation between a and b.
func (s *Service) Thread(ctx context.Context, a, b int64) ([]model.Message, error) {
	all, err := s.repos.Messages.All(ctx)
	if err != nil {
		return nil, err
	}
	return model.Thread(all, a, b), nil
}

// Chats lists the conversations of userID, one per counterpart.
func (s *Service) Chats(ctx context.Context, userID int64) ([]model.Chat, error) {
	messages, err := s.repos.Messages.All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildChats(userID, messages, users), nil
}
