package facade

import (
	"context"
	"errors"
	"fmt"

	"gameworld/internal/db"
	"gameworld/internal/events"
	"gameworld/internal/identity"
)

func (f *Facade) canAuth() error {
	if f.identity == nil || f.remote == nil {
		return ErrRemoteUnavailable
	}
	return nil
}

// SignUp registers an account. When the provider signs the new user in
// straight away the facade becomes Authenticated; when it requires email
// confirmation the returned authority is unchanged.
func (f *Facade) SignUp(ctx context.Context, email, password string) (Authority, error) {
	if err := f.canAuth(); err != nil {
		return Authority{}, err
	}
	sess, err := call(ctx, f, "sign up", func(ctx context.Context) (*identity.Session, error) {
		return f.identity.SignUp(ctx, email, password)
	})
	if err != nil {
		return Authority{}, err
	}
	if sess == nil {
		f.log.Info("sign-up awaiting confirmation", "email", email)
		return f.Resolve(ctx)
	}

	gen := f.beginAuth()
	prof, err := f.loadProfile(ctx, sess.User)
	return f.finishAuth(ctx, gen, sess, prof, err)
}

func (f *Facade) SignIn(ctx context.Context, email, password string) (Authority, error) {
	if err := f.canAuth(); err != nil {
		return Authority{}, err
	}
	gen := f.beginAuth()
	sess, err := call(ctx, f, "sign in", func(ctx context.Context) (*identity.Session, error) {
		return f.identity.SignIn(ctx, email, password)
	})
	var prof *db.Profile
	if err == nil {
		prof, err = f.loadProfile(ctx, sess.User)
	}
	return f.finishAuth(ctx, gen, sess, prof, err)
}

// RestoreSession signs back in from the persisted session, refreshing it
// when it has expired. With nothing persisted it returns the current
// authority. Concurrent calls share one attempt.
func (f *Facade) RestoreSession(ctx context.Context) (Authority, error) {
	v, err, _ := f.flight.Do("restore", func() (any, error) {
		return f.restore(ctx)
	})
	a, _ := v.(Authority)
	return a, err
}

func (f *Facade) restore(ctx context.Context) (Authority, error) {
	f.mu.Lock()
	live := f.state == Authenticated && !f.session.Expired(f.now())
	f.mu.Unlock()
	if live {
		return f.Resolve(ctx)
	}

	stored := f.storedSession()
	if stored == nil || f.canAuth() != nil {
		return f.Resolve(ctx)
	}

	gen := f.beginAuth()
	sess := stored
	var err error
	if stored.Expired(f.now()) {
		sess, err = call(ctx, f, "refresh session", func(ctx context.Context) (*identity.Session, error) {
			return f.identity.Refresh(ctx, stored.RefreshToken)
		})
		if errors.Is(err, identity.ErrInvalidSession) {
			f.forgetSession()
		}
	}
	var prof *db.Profile
	if err == nil {
		prof, err = f.loadProfile(ctx, sess.User)
	}
	return f.finishAuth(ctx, gen, sess, prof, err)
}

// ReloadProfile refetches the signed-in profile. Concurrent calls share one
// fetch.
func (f *Facade) ReloadProfile(ctx context.Context) (*db.Profile, error) {
	v, err, _ := f.flight.Do("profile", func() (any, error) {
		a, err := f.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		if !a.Signed() {
			return nil, ErrNotAuthenticated
		}
		p, err := call(ctx, f, "load profile", func(ctx context.Context) (*db.Profile, error) {
			return f.remote.GetProfile(ctx, a.User.ID)
		})
		if err != nil {
			return nil, err
		}
		f.setProfile(a.User.ID, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*db.Profile)
	return &p, nil
}

// SignOut drops to guest. Local state is cleared even when the provider
// cannot be reached.
func (f *Facade) SignOut(ctx context.Context) error {
	f.mu.Lock()
	sess := f.session
	wasGuest := f.state == Guest
	f.gen++
	ev := f.toGuestLocked()
	f.mu.Unlock()

	f.forgetSession()
	if !wasGuest {
		f.bus.Publish(*ev)
	}
	if sess == nil || f.identity == nil {
		return nil
	}

	_, err := call(ctx, f, "sign out", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.identity.SignOut(ctx, sess.AccessToken)
	})
	if err != nil {
		f.log.Warn("remote sign-out failed; local session cleared", "error", err)
	} else {
		f.log.Info("signed out", "user", sess.User.ID)
	}
	return nil
}

func (f *Facade) ResetPassword(ctx context.Context, email string) error {
	if f.identity == nil {
		return ErrRemoteUnavailable
	}
	_, err := call(ctx, f, "reset password", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.identity.ResetPassword(ctx, email)
	})
	return err
}

func (f *Facade) UpdatePassword(ctx context.Context, password string) error {
	return f.withToken(ctx, "update password", func(ctx context.Context, token string) error {
		return f.identity.UpdatePassword(ctx, token, password)
	})
}

func (f *Facade) UpdateEmail(ctx context.Context, email string) error {
	return f.withToken(ctx, "update email", func(ctx context.Context, token string) error {
		return f.identity.UpdateEmail(ctx, token, email)
	})
}

// DeleteAccount soft-deletes the profile and signs out.
func (f *Facade) DeleteAccount(ctx context.Context) error {
	a, err := f.Resolve(ctx)
	if err != nil {
		return err
	}
	if !a.Signed() {
		return ErrNotAuthenticated
	}
	_, err = call(ctx, f, "delete profile", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.remote.DeleteProfile(ctx, a.User.ID)
	})
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	f.log.Info("account deleted", "user", a.User.ID)
	return f.SignOut(ctx)
}

func (f *Facade) withToken(ctx context.Context, op string, fn func(context.Context, string) error) error {
	if _, err := f.Resolve(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	var token string
	if f.state == Authenticated {
		token = f.session.AccessToken
	}
	f.mu.Unlock()
	if token == "" {
		return ErrNotAuthenticated
	}
	_, err := call(ctx, f, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, token)
	})
	return err
}

// loadProfile fetches the user's profile, creating it on first sign-in.
func (f *Facade) loadProfile(ctx context.Context, u identity.User) (*db.Profile, error) {
	p, err := call(ctx, f, "load profile", func(ctx context.Context) (*db.Profile, error) {
		return f.remote.GetProfile(ctx, u.ID)
	})
	if errors.Is(err, db.ErrNotFound) {
		p, err = call(ctx, f, "create profile", func(ctx context.Context) (*db.Profile, error) {
			return f.remote.EnsureProfile(ctx, u.ID, u.Username, u.Email)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// setProfile replaces the cached profile if userID is still signed in.
func (f *Facade) setProfile(userID string, p *db.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Authenticated && f.session.User.ID == userID {
		cp := *p
		f.profile = &cp
	}
}

func (f *Facade) publish(ev events.Event) {
	f.bus.Publish(ev)
}
