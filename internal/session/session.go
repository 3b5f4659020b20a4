// Package session is the explicit per-client context: who is logged in,
// which tab and conversation are open. Every user intent goes through it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/oggyb/rotrade-sync/internal/api"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/utils/emitter"
)

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Tab string

const (
	TabMarket  Tab = "market"
	TabChats   Tab = "chats"
	TabProfile Tab = "profile"
	TabSupport Tab = "support"
)

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State      State
	User       *model.User
	ActiveTab  Tab
	ActiveChat int64 // 0 when no conversation is open
}

// Remote is what the session needs from the gateway beyond api.API.
type Remote interface {
	api.API
	UsesRemote() bool
}

// Session holds the state machine
// LoggedOut → Authenticating → LoggedIn{tab, chat?} → LoggedOut.
//
// Entity operations and moderation go through the gateway; operations the
// remote surface does not offer (blocks, views, avatar, preferences) run on
// the local service.
type Session struct {
	ID string

	gw      Remote
	svc     *marketplace.Service
	catalog *marketplace.Catalog
	log     *slog.Logger

	mu    sync.RWMutex
	state State
	user  *model.User
	tab   Tab
	chat  int64

	changes emitter.Emitter[Snapshot]
}

func New(gw Remote, svc *marketplace.Service, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		gw:      gw,
		svc:     svc,
		catalog: marketplace.NewCatalog(gw),
		log:     log.With("session", id),
		tab:     TabMarket,
	}
}

// OnChange registers an observer of state transitions.
func (s *Session) OnChange(fn func(Snapshot)) (off func()) {
	return s.changes.On(fn)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, ActiveTab: s.tab, ActiveChat: s.chat}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Session) State() State { return s.Snapshot().State }

// User returns the logged-in user, or nil.
func (s *Session) User() *model.User { return s.Snapshot().User }

func (s *Session) ActiveChat() int64 { return s.Snapshot().ActiveChat }

// update mutates under the lock and notifies observers afterwards.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.changes.Emit(snap)
}

func (s *Session) requireUser() (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateLoggedIn || s.user == nil {
		return model.User{}, apperr.ErrUnauthenticated
	}
	return *s.user, nil
}

// Restore resumes a persisted session pointer, if any.
func (s *Session) Restore(ctx context.Context) error {
	u, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	s.update(func() {
		s.state, s.user, s.tab, s.chat = StateLoggedIn, u, TabMarket, 0
	})
	s.log.Info("session restored", "user_id", u.ID)
	return nil
}

func (s *Session) Register(ctx context.Context, in model.Credentials) (*model.User, error) {
	return s.authenticate(ctx, func() (*model.User, error) { return s.gw.Register(ctx, in) })
}

func (s *Session) Login(ctx context.Context, in model.Credentials) (*model.User, error) {
	return s.authenticate(ctx, func() (*model.User, error) { return s.gw.Login(ctx, in) })
}

func (s *Session) authenticate(ctx context.Context, fn func() (*model.User, error)) (*model.User, error) {
	var busy bool
	s.update(func() {
		if s.state == StateAuthenticating {
			busy = true
			return
		}
		s.state, s.user, s.chat = StateAuthenticating, nil, 0
	})
	if busy {
		return nil, apperr.Validation("authentication already in progress")
	}

	u, err := fn()
	if err == nil && u == nil {
		err = apperr.ErrUnauthenticated
	}
	if err == nil {
		err = s.svc.SetCurrentUser(ctx, *u)
	}
	if err != nil {
		s.update(func() { s.state = StateLoggedOut })
		return nil, err
	}

	s.update(func() {
		s.state, s.user, s.tab = StateLoggedIn, u, TabMarket
	})
	s.log.Info("logged in", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Logout clears the persisted session pointer only.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.svc.ClearCurrentUser(ctx); err != nil {
		return err
	}
	s.update(func() {
		s.state, s.user, s.tab, s.chat = StateLoggedOut, nil, TabMarket, 0
	})
	return nil
}

func (s *Session) SetTab(tab Tab) {
	s.update(func() { s.tab = tab })
}

func (s *Session) IsSupport() bool {
	u := s.User()
	return u != nil && u.Username == s.svc.SupportUsername()
}

// OpenChat opens the conversation with userID, counting a view when it was
// started from a listing (listingID != 0).
func (s *Session) OpenChat(ctx context.Context, userID, listingID int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	if userID == me.ID {
		return apperr.InvalidField("userId", "cannot message yourself")
	}
	if listingID != 0 {
		if err := s.svc.IncrementViews(ctx, listingID); err != nil {
			s.log.Warn("view count failed", "listing_id", listingID, "err", err)
		}
	}
	s.update(func() { s.chat, s.tab = userID, TabChats })
	return nil
}

func (s *Session) CloseChat() {
	s.update(func() { s.chat = 0 })
}

func (s *Session) activeChat() (model.User, int64, error) {
	me, err := s.requireUser()
	if err != nil {
		return me, 0, err
	}
	chat := s.ActiveChat()
	if chat == 0 {
		return me, 0, apperr.Validation("no conversation is open")
	}
	return me, chat, nil
}

// Conversation returns the messages of the open chat.
func (s *Session) Conversation(ctx context.Context) ([]model.Message, error) {
	me, chat, err := s.activeChat()
	if err != nil {
		return nil, err
	}
	msgs, err := s.gw.GetMessages(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	return model.Thread(msgs, me.ID, chat), nil
}

// Send writes to the open chat. Blocked recipients are refused here as
// well, since the remote endpoint does not know about blocks.
func (s *Session) Send(ctx context.Context, content string, replyTo *int64) (*model.Message, error) {
	me, chat, err := s.activeChat()
	if err != nil {
		return nil, err
	}
	blocked, err := s.svc.BlockedUsers(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(blocked, chat) {
		return nil, apperr.Validation("you have blocked this user")
	}
	return s.gw.SendMessage(ctx, model.MessageInput{FromUserID: me.ID, ToUserID: chat, Content: content, ReplyToID: replyTo})
}

func (s *Session) DeleteMessage(ctx context.Context, id int64) error {
	if _, err := s.requireUser(); err != nil {
		return err
	}
	return s.gw.DeleteMessage(ctx, id)
}

// Block blocks userID, wipes the thread and closes it if open.
func (s *Session) Block(ctx context.Context, userID int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	if err := s.svc.Block(ctx, me.ID, userID); err != nil {
		return err
	}
	if s.gw.UsesRemote() {
		s.deleteRemoteThread(ctx, me.ID, userID)
	}
	s.update(func() {
		if s.chat == userID {
			s.chat = 0
		}
	})
	return nil
}

// deleteRemoteThread mirrors the block cascade on the remote side, best
// effort.
func (s *Session) deleteRemoteThread(ctx context.Context, me, other int64) {
	msgs, err := s.gw.GetMessages(ctx, me)
	if err != nil {
		s.log.Warn("block: listing remote thread failed", "err", err)
		return
	}
	for _, m := range model.Thread(msgs, me, other) {
		if err := s.gw.DeleteMessage(ctx, m.ID); err != nil {
			s.log.Warn("block: deleting remote message failed", "message_id", m.ID, "err", err)
		}
	}
}

func (s *Session) Unblock(ctx context.Context, userID int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.svc.Unblock(ctx, me.ID, userID)
}

func (s *Session) BlockedUsers(ctx context.Context) ([]int64, error) {
	me, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.svc.BlockedUsers(ctx, me.ID)
}

// ReportActiveChat reports the user of the open conversation.
func (s *Session) ReportActiveChat(ctx context.Context, reason string) (*model.Report, error) {
	me, chat, err := s.activeChat()
	if err != nil {
		return nil, err
	}
	return s.gw.CreateReport(ctx, model.ReportInput{ReporterID: me.ID, ReportedUserID: &chat, Reason: reason})
}

func (s *Session) ReportListing(ctx context.Context, listingID int64, reason string) (*model.Report, error) {
	me, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.gw.CreateReport(ctx, model.ReportInput{ReporterID: me.ID, ListingID: &listingID, Reason: reason})
}

// ReviewActiveChat reviews the user of the open conversation.
func (s *Session) ReviewActiveChat(ctx context.Context, rating int, comment string) (*model.Review, error) {
	me, chat, err := s.activeChat()
	if err != nil {
		return nil, err
	}
	return s.gw.CreateReview(ctx, model.ReviewInput{FromUserID: me.ID, ToUserID: chat, Rating: rating, Comment: comment})
}

func (s *Session) CreateListing(ctx context.Context, in model.ListingInput) (*model.Listing, error) {
	me, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	in.UserID = me.ID
	return s.gw.CreateListing(ctx, in)
}

// DeleteListing removes one of the user's own listings; support may remove
// any listing. Unknown ids are a no-op.
func (s *Session) DeleteListing(ctx context.Context, id int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	listings, err := s.gw.GetListings(ctx)
	if err != nil {
		return err
	}
	for _, l := range listings {
		if l.ID != id {
			continue
		}
		if l.UserID != me.ID && !s.IsSupport() {
			return fmt.Errorf("listing %d belongs to another user: %w", id, apperr.ErrForbidden)
		}
		return s.gw.DeleteListing(ctx, id)
	}
	return nil
}

// MyListings returns the listings the logged-in user owns.
func (s *Session) MyListings(ctx context.Context) ([]model.Listing, error) {
	me, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.catalog.UserListings(ctx, me.ID)
}

// ListingTags returns the game names the market can be filtered by.
func (s *Session) ListingTags(ctx context.Context) ([]string, error) {
	return s.catalog.ListingTags(ctx)
}

func (s *Session) FilterListings(ctx context.Context, query, tag string) ([]model.Listing, error) {
	return s.catalog.FilterListings(ctx, query, tag)
}

// ListingsPage pages through the market newest first. Pass the returned
// token back for the next page; nil means the last page was served.
func (s *Session) ListingsPage(ctx context.Context, token string, limit int) ([]model.Listing, *string, error) {
	return s.catalog.ListingsPage(ctx, token, limit)
}

// Reports returns the moderation queue. Support only.
func (s *Session) Reports(ctx context.Context) ([]model.Report, error) {
	if _, err := s.requireUser(); err != nil {
		return nil, err
	}
	if !s.IsSupport() {
		return nil, apperr.ErrForbidden
	}
	return s.gw.GetReports(ctx)
}

func (s *Session) DismissReport(ctx context.Context, reportID int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.gw.DismissReport(ctx, me.ID, reportID)
}

func (s *Session) DeleteAccount(ctx context.Context, userID int64) error {
	me, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.gw.DeleteAccount(ctx, me.ID, userID)
}

// ToggleSound flips the notification sound preference and returns it.
func (s *Session) ToggleSound(ctx context.Context) (bool, error) {
	on, err := s.svc.SoundEnabled(ctx)
	if err != nil {
		return false, err
	}
	if err := s.svc.SetSoundEnabled(ctx, !on); err != nil {
		return false, err
	}
	return !on, nil
}

// UpdateAvatar replaces the user's avatar and the cached session user.
func (s *Session) UpdateAvatar(ctx context.Context, contentType string, data []byte) (*model.User, error) {
	me, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	u, err := s.svc.UpdateAvatar(ctx, me.ID, contentType, data)
	if err != nil || u == nil {
		return u, err
	}
	if err := s.svc.SetCurrentUser(ctx, *u); err != nil {
		return nil, err
	}
	s.update(func() { s.user = u })
	return u, nil
}
