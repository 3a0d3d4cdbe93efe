package facade

import (
	"context"
	"errors"
	"strconv"

	"gameworld/internal/events"
	"gameworld/internal/kv"
	"gameworld/internal/ledger"
)

type PointsResult struct {
	Points   int  `json:"points"`
	NewTotal int  `json:"newTotal"`
	Remote   bool `json:"remote"`
}

// CurrentPoints is the signed-in profile total, or the guest total.
func (f *Facade) CurrentPoints(ctx context.Context) (int, error) {
	a, err := f.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	if a.Signed() {
		return a.Profile.TotalPoints, nil
	}
	if f.local == nil {
		return 0, ErrNoAuthority
	}
	f.guestMu.Lock()
	defer f.guestMu.Unlock()
	return f.guestTotal(), nil
}

// StartingScore is the total a game seeds its score from. Nothing is spent.
func (f *Facade) StartingScore(ctx context.Context) (int, error) {
	return f.CurrentPoints(ctx)
}

// AddGamePoints credits floor(rawScore), clamped to [0, ledger.MaxScore], to
// the current authority. Remote failures are returned, never absorbed into
// the guest total.
func (f *Facade) AddGamePoints(ctx context.Context, rawScore float64, gameID string) (PointsResult, error) {
	points := ledger.ClampScore(rawScore)

	a, err := f.Resolve(ctx)
	if err != nil {
		return PointsResult{}, err
	}

	if a.Signed() {
		total, err := call(ctx, f, "add points", func(ctx context.Context) (int, error) {
			return f.remote.AddPoints(ctx, a.User.ID, points)
		})
		if err != nil {
			return PointsResult{}, err
		}
		f.mu.Lock()
		if f.state == Authenticated && f.session.User.ID == a.User.ID {
			f.profile.TotalPoints = total
		}
		f.mu.Unlock()
		f.publish(events.PointsEarned{Points: points, NewTotal: total, GameID: gameID})
		return PointsResult{Points: points, NewTotal: total, Remote: true}, nil
	}

	if f.local == nil {
		return PointsResult{}, ErrNoAuthority
	}
	f.guestMu.Lock()
	total := ledger.AddSat(f.guestTotal(), points)
	if err := f.local.Set(GuestPointsKey, strconv.Itoa(total)); err != nil {
		f.log.Error("writing guest points", "error", err)
	}
	f.guestMu.Unlock()

	f.publish(events.PointsEarned{Points: points, NewTotal: total, GameID: gameID})
	return PointsResult{Points: points, NewTotal: total}, nil
}

// guestTotal must be called with f.guestMu held.
func (f *Facade) guestTotal() int {
	raw, err := f.local.Get(GuestPointsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			f.log.Warn("reading guest points", "error", err)
		}
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
