package events

import "sync"

type Kind string

const (
	KindPointsEarned        = Kind("pointsEarned")
	KindAchievementUnlocked = Kind("achievementUnlocked")
	KindSessionChanged      = Kind("sessionChanged")
)

// Event is one of PointsEarned, AchievementUnlocked or SessionChanged.
type Event interface {
	Kind() Kind
}

type PointsEarned struct {
	Points   int    `json:"points"`
	NewTotal int    `json:"newTotal"`
	GameID   string `json:"gameId"`
}

func (PointsEarned) Kind() Kind { return KindPointsEarned }

type AchievementUnlocked struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
}

func (AchievementUnlocked) Kind() Kind { return KindAchievementUnlocked }

type SessionChanged struct {
	State  string `json:"state"`
	UserID string `json:"userId,omitempty"`
}

func (SessionChanged) Kind() Kind { return KindSessionChanged }

type Handler func(Event)

// Bus dispatches events synchronously, in subscription order.
type Bus struct {
	mu       sync.Mutex
	handlers []subscription
	nextID   int
}

type subscription struct {
	id int
	fn Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler with ev. Handlers may subscribe, unsubscribe or
// publish from inside a callback.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	for i, s := range b.handlers {
		handlers[i] = s.fn
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
