package facade

import (
	"context"
	"errors"
	"time"

	"gameworld/internal/db"
	"gameworld/internal/kv"
)

func markerKey(gameKey string, day time.Time) string {
	return "view_" + gameKey + "_" + day.Format(time.DateOnly)
}

// IncrementGameView records at most one view of gameKey per local calendar
// day. It reports whether a remote insert happened; callers that join an
// in-flight insert share its result. The day's marker is only set once the
// insert succeeded, so a failed call can be retried.
func (f *Facade) IncrementGameView(ctx context.Context, gameKey string) (bool, error) {
	if gameKey == "" {
		return false, errors.New("empty game key")
	}
	if f.remote == nil {
		return false, ErrRemoteUnavailable
	}
	now := f.now()
	key := markerKey(gameKey, now)
	if f.hasMarker(key, now) {
		return false, nil
	}

	// The shared insert outlives any one caller; each caller stops waiting
	// when its own ctx is done.
	ch := f.viewFlight.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		if f.hasMarker(key, now) {
			return false, nil
		}
		a, err := f.Resolve(ctx)
		if err != nil {
			return false, err
		}
		_, err = call(ctx, f, "record view", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, f.remote.RecordView(ctx, gameKey, a.UserID())
		})
		if err != nil {
			return false, err
		}
		f.setMarker(key, now)
		f.log.Debug("view recorded", "game", gameKey)
		return true, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return false, r.Err
		}
		return r.Val.(bool), nil
	}
}

// GameViews returns zero counts for a game nobody has viewed.
func (f *Facade) GameViews(ctx context.Context, gameKey string) (db.GameViews, error) {
	if f.remote == nil {
		return db.GameViews{GameURL: gameKey}, ErrRemoteUnavailable
	}
	v, err := call(ctx, f, "get game views", func(ctx context.Context) (db.GameViews, error) {
		return f.remote.GetGameViews(ctx, gameKey)
	})
	if errors.Is(err, db.ErrNotFound) {
		return db.GameViews{GameURL: gameKey}, nil
	}
	return v, err
}

func (f *Facade) AllGameViews(ctx context.Context) ([]db.GameViews, error) {
	if f.remote == nil {
		return nil, ErrRemoteUnavailable
	}
	return call(ctx, f, "list game views", func(ctx context.Context) ([]db.GameViews, error) {
		return f.remote.ListGameViews(ctx)
	})
}

func (f *Facade) hasMarker(key string, now time.Time) bool {
	f.markerMu.Lock()
	f.rollMarkersLocked(now)
	seen := f.markers[key]
	f.markerMu.Unlock()
	if seen {
		return true
	}
	if f.local == nil {
		return false
	}
	_, err := f.local.Get(key)
	if err == nil {
		return true
	}
	if !errors.Is(err, kv.ErrNotFound) {
		f.log.Warn("reading view marker", "error", err)
	}
	return false
}

func (f *Facade) setMarker(key string, now time.Time) {
	f.markerMu.Lock()
	f.rollMarkersLocked(now)
	f.markers[key] = true
	f.markerMu.Unlock()
	if f.local == nil {
		return
	}
	if err := f.local.Set(key, "true"); err != nil {
		f.log.Warn("writing view marker", "error", err)
	}
}

// rollMarkersLocked forgets yesterday's in-memory markers.
func (f *Facade) rollMarkersLocked(now time.Time) {
	day := now.Format(time.DateOnly)
	if day != f.markerDay {
		f.markerDay = day
		clear(f.markers)
	}
}
