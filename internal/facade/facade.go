// Package facade presents one points and views API over either a signed-in
// remote profile or the local guest store.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gameworld/internal/db"
	"gameworld/internal/events"
	"gameworld/internal/identity"
	"gameworld/internal/kv"
)

const (
	GuestPointsKey = "guest_total_points"
	SessionKey     = "gameworld_session"

	DefaultTimeout = 10 * time.Second
)

type State int

const (
	Guest State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Guest:
		return "guest"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Remote is the structured store behind signed-in users.
type Remote interface {
	GetProfile(ctx context.Context, id string) (*db.Profile, error)
	EnsureProfile(ctx context.Context, id, username, email string) (*db.Profile, error)
	AddPoints(ctx context.Context, id string, delta int) (int, error)
	DeleteProfile(ctx context.Context, id string) error
	RecordView(ctx context.Context, gameURL, userID string) error
	GetGameViews(ctx context.Context, gameURL string) (db.GameViews, error)
	ListGameViews(ctx context.Context) ([]db.GameViews, error)
}

type Options struct {
	Remote   Remote            // nil disables sign-in and views
	Identity identity.Provider // nil disables sign-in
	Local    kv.Store          // guest total, view markers, persisted session
	Bus      *events.Bus
	Timeout  time.Duration
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Authority is what a points operation runs against.
type Authority struct {
	State   State
	User    *identity.User
	Profile *db.Profile
}

func (a Authority) Signed() bool { return a.State == Authenticated }

func (a Authority) UserID() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

type Facade struct {
	remote   Remote
	identity identity.Provider
	local    kv.Store
	bus      *events.Bus
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	session *identity.Session
	profile *db.Profile
	gen     uint64
	ready   chan struct{} // closed when state leaves Authenticating

	guestMu sync.Mutex

	flight singleflight.Group

	viewFlight singleflight.Group
	markerMu   sync.Mutex
	markerDay  string
	markers    map[string]bool
}

func New(opts Options) *Facade {
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ready := make(chan struct{})
	close(ready)
	return &Facade{
		remote:   opts.Remote,
		identity: opts.Identity,
		local:    opts.Local,
		bus:      opts.Bus,
		timeout:  opts.Timeout,
		now:      opts.Clock,
		log:      opts.Logger.With("component", "facade"),
		ready:    ready,
		markers:  make(map[string]bool),
	}
}

func (f *Facade) Subscribe(fn events.Handler) (unsubscribe func()) {
	return f.bus.Subscribe(fn)
}

func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Resolve waits until no sign-in is in flight and returns the current
// authority. An expired session is dropped to guest here.
func (f *Facade) Resolve(ctx context.Context) (Authority, error) {
	for {
		f.mu.Lock()
		if f.state == Authenticating {
			ch := f.ready
			f.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return Authority{State: Authenticating}, ctx.Err()
			}
		}

		var ev *events.SessionChanged
		if f.state == Authenticated && f.session.Expired(f.now()) {
			f.log.Info("session expired", "user", f.session.User.ID)
			f.gen++
			ev = f.toGuestLocked()
		}
		a := f.authorityLocked()
		f.mu.Unlock()

		if ev != nil {
			f.forgetSession()
			f.bus.Publish(*ev)
		}
		return a, nil
	}
}

// authorityLocked must be called with f.mu held.
func (f *Facade) authorityLocked() Authority {
	a := Authority{State: f.state}
	if f.state == Authenticated {
		u := f.session.User
		p := *f.profile
		a.User = &u
		a.Profile = &p
	}
	return a
}

// beginAuth moves to Authenticating and returns the generation the caller
// must present to finishAuth.
func (f *Facade) beginAuth() uint64 {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	changed := f.state != Authenticating
	if changed {
		f.ready = make(chan struct{})
		f.state = Authenticating
	}
	f.mu.Unlock()

	if changed {
		f.bus.Publish(events.SessionChanged{State: Authenticating.String()})
	}
	return gen
}

// finishAuth applies the outcome of a sign-in. A result from a superseded
// generation is discarded.
func (f *Facade) finishAuth(ctx context.Context, gen uint64, sess *identity.Session, prof *db.Profile, authErr error) (Authority, error) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		if authErr == nil && f.identity != nil {
			// Nobody will use this session; release it.
			call(ctx, f, "sign out", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, f.identity.SignOut(ctx, sess.AccessToken)
			})
		}
		if authErr != nil {
			return Authority{}, authErr
		}
		return Authority{}, ErrSuperseded
	}

	var ev events.SessionChanged
	if authErr != nil {
		ev = *f.toGuestLocked()
	} else {
		f.state = Authenticated
		f.session = sess
		f.profile = prof
		close(f.ready)
		ev = events.SessionChanged{State: Authenticated.String(), UserID: sess.User.ID}
	}
	a := f.authorityLocked()
	f.mu.Unlock()

	if authErr != nil {
		f.bus.Publish(ev)
		return a, authErr
	}
	f.persistSession(sess)
	f.log.Info("signed in", "user", sess.User.ID)
	f.bus.Publish(ev)
	return a, nil
}

// toGuestLocked must be called with f.mu held. It returns the event to
// publish after unlocking.
func (f *Facade) toGuestLocked() *events.SessionChanged {
	wasAuthenticating := f.state == Authenticating
	f.state = Guest
	f.session = nil
	f.profile = nil
	if wasAuthenticating {
		close(f.ready)
	}
	return &events.SessionChanged{State: Guest.String()}
}

func (f *Facade) persistSession(s *identity.Session) {
	if f.local == nil {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		f.log.Error("encoding session", "error", err)
		return
	}
	if err := f.local.Set(SessionKey, string(b)); err != nil {
		f.log.Warn("persisting session", "error", err)
	}
}

func (f *Facade) storedSession() *identity.Session {
	if f.local == nil {
		return nil
	}
	raw, err := f.local.Get(SessionKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			f.log.Warn("reading session", "error", err)
		}
		return nil
	}
	var s identity.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.AccessToken == "" {
		f.log.Warn("discarding corrupt session slot")
		f.forgetSession()
		return nil
	}
	return &s
}

func (f *Facade) forgetSession() {
	if f.local == nil {
		return
	}
	if err := f.local.Delete(SessionKey); err != nil {
		f.log.Warn("clearing session", "error", err)
	}
}
