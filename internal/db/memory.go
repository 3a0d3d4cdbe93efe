package db

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

type memProfile struct {
	Profile
	deleted bool
}

type memViews struct {
	logged    int
	anonymous int
}

// Memory is an in-process remote store for local development and tests.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]*memProfile
	views    map[string]*memViews
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]*memProfile),
		views:    make(map[string]*memViews),
	}
}

func (m *Memory) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.deleted {
		return nil, ErrNotFound
	}
	cp := p.Profile
	return &cp, nil
}

func (m *Memory) EnsureProfile(ctx context.Context, id, username, email string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if _, ok := m.profiles[id]; !ok {
		now := time.Now()
		m.profiles[id] = &memProfile{Profile: Profile{
			ID:        id,
			Username:  username,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}}
	}
	m.mu.Unlock()
	return m.GetProfile(ctx, id)
}

func (m *Memory) AddPoints(ctx context.Context, id string, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.deleted {
		return 0, ErrNotFound
	}
	// Same bounds as the INTEGER column.
	delta = min(max(delta, -math.MaxInt32), math.MaxInt32)
	total := int64(p.TotalPoints) + int64(delta)
	p.TotalPoints = int(min(max(total, 0), math.MaxInt32))
	p.UpdatedAt = time.Now()
	return p.TotalPoints, nil
}

func (m *Memory) DeleteProfile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.deleted {
		return ErrNotFound
	}
	p.deleted = true
	return nil
}

func (m *Memory) RecordView(ctx context.Context, gameURL, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[gameURL]
	if !ok {
		v = &memViews{}
		m.views[gameURL] = v
	}
	if userID == "" {
		v.anonymous++
	} else {
		v.logged++
	}
	return nil
}

func (m *Memory) GetGameViews(ctx context.Context, gameURL string) (GameViews, error) {
	if err := ctx.Err(); err != nil {
		return GameViews{GameURL: gameURL}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[gameURL]
	if !ok {
		return GameViews{GameURL: gameURL}, ErrNotFound
	}
	return v.row(gameURL), nil
}

func (m *Memory) ListGameViews(ctx context.Context) ([]GameViews, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	out := make([]GameViews, 0, len(m.views))
	for url, v := range m.views {
		out = append(out, v.row(url))
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalViews != out[j].TotalViews {
			return out[i].TotalViews > out[j].TotalViews
		}
		return out[i].GameURL < out[j].GameURL
	})
	return out, nil
}

func (v *memViews) row(url string) GameViews {
	return GameViews{
		GameURL:        url,
		TotalViews:     v.logged + v.anonymous,
		LoggedViews:    v.logged,
		AnonymousViews: v.anonymous,
	}
}
