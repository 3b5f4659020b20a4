// Package bridge keeps a session's view of the marketplace fresh. It
// replaces push with a single scheduler tick fanned out per concern, and
// reacts immediately to change events from the store or the change feed.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/jobs"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/session"
	"github.com/oggyb/rotrade-sync/internal/store"
	"github.com/oggyb/rotrade-sync/internal/utils/emitter"
)

// Concern is one independently refreshed part of the view.
type Concern string

const (
	ConcernListings     Concern = "listings"
	ConcernChats        Concern = "chats"
	ConcernMessages     Concern = "messages" // new-message check
	ConcernConversation Concern = "conversation"
	ConcernReviews      Concern = "reviews"
	ConcernReports      Concern = "reports"
)

// Periods are the refresh intervals of the polled concerns.
type Periods struct {
	Listings time.Duration
	Chats    time.Duration
	Messages time.Duration
	Reviews  time.Duration
}

func DefaultPeriods() Periods {
	return Periods{Listings: time.Second, Chats: 2 * time.Second, Messages: 3 * time.Second, Reviews: 5 * time.Second}
}

// base is the scheduler tick: the shortest period, at least one second.
func (p Periods) base() time.Duration {
	b := p.Listings
	for _, d := range []time.Duration{p.Chats, p.Messages, p.Reviews} {
		if d > 0 && (b <= 0 || d < b) {
			b = d
		}
	}
	if b < time.Second {
		b = time.Second
	}
	return b
}

// Prefs reads the notification sound preference.
type Prefs interface {
	SoundEnabled(ctx context.Context) (bool, error)
}

// Notifier plays the new-message signal.
type Notifier interface {
	Notify(m model.Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(model.Message)

func (f NotifierFunc) Notify(m model.Message) { f(m) }

// Options configure a Bridge. Source and Notifier are optional.
type Options struct {
	Periods  Periods
	Source   store.Subscriber
	Notifier Notifier
	Now      func() time.Time
}

// Bridge owns the session's view. Refreshes are serialized; the view is
// replaced per concern and observers get a copy.
type Bridge struct {
	sess  *session.Session
	api   api.API
	prefs Prefs
	opts  Options
	log   *slog.Logger

	runMu   sync.Mutex // serializes refresh passes
	lastRun map[Concern]time.Time
	known   map[int64]struct{}
	knownOf int64 // user the known set belongs to; 0 until primed

	mu   sync.RWMutex
	view View

	events emitter.Emitter[Event]

	cron   *cron.Cron
	cancel context.CancelFunc
	done   chan struct{}
	offSes func()
	kick   chan []Concern
}

func New(sess *session.Session, a api.API, prefs Prefs, opts Options, log *slog.Logger) *Bridge {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Periods == (Periods{}) {
		opts.Periods = DefaultPeriods()
	}
	return &Bridge{
		sess:    sess,
		api:     a,
		prefs:   prefs,
		opts:    opts,
		log:     log.With("sub", "bridge", "session", sess.ID),
		lastRun: make(map[Concern]time.Time),
		known:   make(map[int64]struct{}),
		kick:    make(chan []Concern, 16),
	}
}

// OnEvent registers an observer of view updates. Observers run on the
// refreshing goroutine and must not call Refresh.
func (b *Bridge) OnEvent(fn func(Event)) (off func()) {
	return b.events.On(fn)
}

// View returns a copy of the current view.
func (b *Bridge) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view.clone()
}

// Start runs an initial full refresh, then the scheduler and the change
// listener until Stop or ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	if b.done != nil {
		return fmt.Errorf("bridge already started")
	}
	ctx, cancel := context.WithCancel(ctx)

	var changes <-chan store.Change
	var sub store.Subscription
	if b.opts.Source != nil {
		s, err := b.opts.Source.Subscribe(ctx)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe to changes: %w", err)
		}
		sub, changes = s, s.Changes()
	}

	b.cron = cron.New(cron.WithLogger(jobs.NewCronLogger(b.log)))
	spec := "@every " + b.opts.Periods.base().String()
	if _, err := b.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() { b.Tick(ctx) }))); err != nil {
		cancel()
		if sub != nil {
			_ = sub.Close()
		}
		return fmt.Errorf("schedule bridge tick: %w", err)
	}

	var seenMu sync.Mutex
	lastChat := b.sess.ActiveChat()
	lastUser := userID(b.sess.User())
	b.offSes = b.sess.OnChange(func(snap session.Snapshot) {
		seenMu.Lock()
		defer seenMu.Unlock()
		var due []Concern
		if id := userID(snap.User); id != lastUser {
			lastUser = id
			due = append(due, ConcernChats, ConcernMessages, ConcernReviews, ConcernReports)
		}
		if snap.ActiveChat != lastChat {
			lastChat = snap.ActiveChat
			due = append(due, ConcernConversation)
		}
		if len(due) > 0 {
			select {
			case b.kick <- due:
			default:
			}
		}
	})

	b.cancel = cancel
	b.done = make(chan struct{})

	b.Focus(ctx)
	b.cron.Start()
	go b.loop(ctx, sub, changes)

	b.log.Info("bridge started", "tick", spec, "push", sub != nil)
	return nil
}

// Stop halts the scheduler and the listener and waits for them.
func (b *Bridge) Stop() {
	if b.done == nil {
		return
	}
	b.cancel()
	<-b.cron.Stop().Done()
	<-b.done
	if b.offSes != nil {
		b.offSes()
	}
	b.log.Info("bridge stopped")
}

func (b *Bridge) loop(ctx context.Context, sub store.Subscription, changes <-chan store.Change) {
	defer close(b.done)
	if sub != nil {
		defer sub.Close()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				b.log.Warn("change source closed, polling only")
				changes = nil
				continue
			}
			if due := ConcernsFor(c.Key); len(due) > 0 {
				b.log.Debug("change received", "key", c.Key, "rev", c.Revision)
				b.Refresh(ctx, due...)
			}
		case due := <-b.kick:
			b.Refresh(ctx, due...)
		}
	}
}

// ConcernsFor maps a changed store key to the concerns that read it.
func ConcernsFor(key string) []Concern {
	switch {
	case key == model.KeyListings:
		return []Concern{ConcernListings}
	case key == model.KeyMessages:
		return []Concern{ConcernMessages, ConcernChats, ConcernConversation}
	case key == model.KeyUsers:
		return []Concern{ConcernChats, ConcernListings}
	case key == model.KeyReviews:
		return []Concern{ConcernReviews}
	case key == model.KeyReports:
		return []Concern{ConcernReports}
	case model.IsBlockedKey(key):
		return []Concern{ConcernChats, ConcernConversation}
	}
	return nil
}

// Tick runs every concern whose period has elapsed.
func (b *Bridge) Tick(ctx context.Context) {
	now := b.opts.Now()
	p := b.opts.Periods

	b.runMu.Lock()
	var due []Concern
	for c, every := range map[Concern]time.Duration{
		ConcernListings: p.Listings,
		ConcernChats:    p.Chats,
		ConcernMessages: p.Messages,
		ConcernReviews:  p.Reviews,
	} {
		if every <= 0 {
			continue
		}
		if last, ok := b.lastRun[c]; !ok || now.Sub(last) >= every {
			due = append(due, c)
		}
	}
	b.runMu.Unlock()

	b.Refresh(ctx, due...)
}

// Focus refreshes everything at once, as after the window regains focus.
func (b *Bridge) Focus(ctx context.Context) {
	b.Refresh(ctx, ConcernListings, ConcernChats, ConcernMessages, ConcernReviews, ConcernReports, ConcernConversation)
}

// Refresh re-reads the given concerns and notifies observers of each.
func (b *Bridge) Refresh(ctx context.Context, concerns ...Concern) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	seen := make(map[Concern]bool, len(concerns))
	queue := append([]Concern(nil), concerns...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] {
			continue
		}
		seen[c] = true

		follow, err := b.refreshOne(ctx, c)
		b.lastRun[c] = b.opts.Now()
		if err != nil {
			b.log.Warn("refresh failed", "concern", c, "err", err)
			continue
		}
		queue = append(queue, follow...)
	}
}

// refreshOne reads one concern and returns the concerns it invalidates.
func (b *Bridge) refreshOne(ctx context.Context, c Concern) ([]Concern, error) {
	snap := b.sess.Snapshot()
	self := userID(snap.User)

	switch c {
	case ConcernListings:
		listings, err := b.api.GetListings(ctx)
		if err != nil {
			return nil, err
		}
		b.apply(Event{Concern: c}, func(v *View) { v.Listings = listings })

	case ConcernChats:
		if self == 0 {
			b.apply(Event{Concern: c}, func(v *View) { v.Chats = nil })
			return nil, nil
		}
		msgs, err := b.api.GetMessages(ctx, self)
		if err != nil {
			return nil, err
		}
		users, err := b.api.GetUsers(ctx)
		if err != nil {
			return nil, err
		}
		chats := model.BuildChats(self, msgs, users)
		b.apply(Event{Concern: c}, func(v *View) { v.Chats = chats })

	case ConcernMessages:
		if self == 0 {
			return nil, nil
		}
		msgs, err := b.api.GetMessages(ctx, self)
		if err != nil {
			return nil, err
		}
		fresh := b.detectNew(self, msgs)
		if len(fresh) == 0 {
			return nil, nil
		}
		b.notify(ctx, fresh)
		b.events.Emit(Event{Concern: c, NewMessages: fresh, View: b.View()})
		return []Concern{ConcernChats, ConcernConversation}, nil

	case ConcernConversation:
		if self == 0 || snap.ActiveChat == 0 {
			b.apply(Event{Concern: c}, func(v *View) { v.Conversation, v.ChatWith = nil, 0 })
			return nil, nil
		}
		msgs, err := b.api.GetMessages(ctx, self)
		if err != nil {
			return nil, err
		}
		thread := model.Thread(msgs, self, snap.ActiveChat)
		b.apply(Event{Concern: c}, func(v *View) { v.Conversation, v.ChatWith = thread, snap.ActiveChat })

	case ConcernReviews:
		if self == 0 {
			b.apply(Event{Concern: c}, func(v *View) { v.Reviews, v.Rating = nil, model.Rating{} })
			return nil, nil
		}
		reviews, err := b.api.GetReviews(ctx, self)
		if err != nil {
			return nil, err
		}
		rating := model.ComputeRating(reviews, self)
		b.apply(Event{Concern: c}, func(v *View) { v.Reviews, v.Rating = reviews, rating })

	case ConcernReports:
		if !b.sess.IsSupport() {
			return nil, nil
		}
		reports, err := b.api.GetReports(ctx)
		if err != nil {
			return nil, err
		}
		b.apply(Event{Concern: c}, func(v *View) { v.Reports = reports })
	}
	return nil, nil
}

// detectNew records the ids of msgs and returns those addressed to self
// that were not seen before. The first read for a user only primes the set.
func (b *Bridge) detectNew(self int64, msgs []model.Message) []model.Message {
	primed := b.knownOf == self
	if !primed {
		b.known = make(map[int64]struct{}, len(msgs))
		b.knownOf = self
	}
	fresh := model.NewSince(msgs, self, b.known)
	for _, m := range msgs {
		b.known[m.ID] = struct{}{}
	}
	if !primed {
		return nil
	}
	return fresh
}

func (b *Bridge) notify(ctx context.Context, fresh []model.Message) {
	b.log.Info("new messages", "count", len(fresh))
	if b.opts.Notifier == nil {
		return
	}
	on, err := b.prefs.SoundEnabled(ctx)
	if err != nil {
		b.log.Warn("reading sound preference failed", "err", err)
		return
	}
	if on {
		b.opts.Notifier.Notify(fresh[len(fresh)-1])
	}
}

func (b *Bridge) apply(ev Event, fn func(*View)) {
	b.mu.Lock()
	fn(&b.view)
	b.view.UpdatedAt = b.opts.Now()
	ev.View = b.view.clone()
	b.mu.Unlock()
	b.events.Emit(ev)
}

func userID(u *model.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
