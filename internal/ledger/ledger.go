package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gameworld/internal/achievements"
	"gameworld/internal/events"
	"gameworld/internal/kv"
)

const (
	PointsKey = "gameworld_points"
	StatsKey  = "gameworld_stats"

	// AchievementGameID credits milestone bonuses; each bonus counts as a play.
	AchievementGameID = "achievement"

	PointsPerLevel = 1000
	StreakWindow   = 24 * time.Hour
)

// Ledger keeps the local points total and play statistics in a kv.Store.
// Storage failures are logged and read back as absence.
type Ledger struct {
	mu    sync.Mutex
	store kv.Store
	bus   *events.Bus
	log   *slog.Logger
	now   func() time.Time
}

// New returns a ledger over store. A nil bus gets a private one.
func New(store kv.Store, bus *events.Bus, logger *slog.Logger) *Ledger {
	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store: store,
		bus:   bus,
		log:   logger.With("component", "ledger"),
		now:   time.Now,
	}
}

func (l *Ledger) Subscribe(fn events.Handler) (unsubscribe func()) {
	return l.bus.Subscribe(fn)
}

func (l *Ledger) TotalPoints() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadTotal()
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadStats().Clone()
}

// CalculateGamePoints scores a game against the current streak.
func (l *Ledger) CalculateGamePoints(rawScore float64, gameID string, info GameInfo) int {
	l.mu.Lock()
	streak := l.loadStats().Streak
	l.mu.Unlock()
	return CalculatePoints(rawScore, gameID, info, streak)
}

// AddPoints credits points, records the play and awards any milestones
// reached. It returns the total right after the credit, before milestone
// bonuses. Negative points are treated as 0.
func (l *Ledger) AddPoints(points int, gameID string, info GameInfo) int {
	var out []events.Event
	l.mu.Lock()
	total := l.addPoints(points, gameID, info, &out)
	l.mu.Unlock()
	l.dispatch(out)
	return total
}

// AddGameScore scores rawScore and credits the result.
func (l *Ledger) AddGameScore(rawScore float64, gameID string, info GameInfo) int {
	var out []events.Event
	l.mu.Lock()
	points := CalculatePoints(rawScore, gameID, info, l.loadStats().Streak)
	info.Score = rawScore
	total := l.addPoints(points, gameID, info, &out)
	l.mu.Unlock()
	l.dispatch(out)
	return total
}

// CheckAchievements awards every milestone reached by totalPoints and the
// stored stats that has not been awarded yet.
func (l *Ledger) CheckAchievements(totalPoints int, gameID string) {
	var out []events.Event
	l.mu.Lock()
	l.checkAchievements(totalPoints, gameID, &out)
	l.mu.Unlock()
	l.dispatch(out)
}

func (l *Ledger) CurrentLevel() int {
	return Level(l.TotalPoints())
}

func (l *Ledger) PointsToNextLevel() int {
	return PointsToNextLevel(l.TotalPoints())
}

func (l *Ledger) ResetPoints() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saveTotal(0)
}

func (l *Ledger) ResetStats() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saveStats(DefaultStats())
}

type Snapshot struct {
	Points int   `json:"points" yaml:"points"`
	Stats  Stats `json:"stats" yaml:"stats"`
}

// ImportData overwrites whichever parts are present.
type ImportData struct {
	Points *int   `json:"points,omitempty" yaml:"points,omitempty"`
	Stats  *Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

func (l *Ledger) Export() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{Points: l.loadTotal(), Stats: l.loadStats().Clone()}
}

func (l *Ledger) Import(data ImportData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if data.Points != nil {
		l.saveTotal(max(*data.Points, 0))
	}
	if data.Stats != nil {
		l.saveStats(migrate(data.Stats.Clone()))
	}
}

func (l *Ledger) addPoints(points int, gameID string, info GameInfo, out *[]events.Event) int {
	points = max(points, 0)
	total := AddSat(l.loadTotal(), points)
	l.saveTotal(total)

	stats := l.loadStats()
	recordPlay(&stats, points, gameID, info, l.now())
	l.saveStats(stats)

	*out = append(*out, events.PointsEarned{Points: points, NewTotal: total, GameID: gameID})
	l.checkAchievements(total, gameID, out)
	return total
}

func (l *Ledger) checkAchievements(totalPoints int, gameID string, out *[]events.Event) {
	stats := l.loadStats()
	progress := achievements.Progress{
		TotalPoints: totalPoints,
		GamesPlayed: stats.TotalGamesPlayed,
		Streak:      stats.Streak,
	}

	for _, def := range achievements.Evaluate(progress, awarded(stats)) {
		// Bonus credits below recurse and may already have awarded def.
		stats = l.loadStats()
		if stats.HasAchievement(def.ID) {
			continue
		}
		stats.Achievements = append(stats.Achievements, def.ID)
		l.saveStats(stats)
		l.log.Info("achievement unlocked", "id", def.ID, "game", gameID, "bonus", def.Bonus)

		l.addPoints(def.Bonus, AchievementGameID, GameInfo{}, out)
		*out = append(*out, events.AchievementUnlocked{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Icon:        def.Icon,
			Points:      def.Bonus,
		})
	}
}

func awarded(s Stats) map[string]bool {
	set := make(map[string]bool, len(s.Achievements))
	for _, id := range s.Achievements {
		set[id] = true
	}
	return set
}

func (l *Ledger) dispatch(out []events.Event) {
	for _, ev := range out {
		l.bus.Publish(ev)
	}
}

func (l *Ledger) loadTotal() int {
	raw, err := l.store.Get(PointsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			l.log.Warn("reading points", "error", err)
		}
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		l.log.Warn("corrupt points slot, using 0", "value", raw)
		return 0
	}
	return n
}

func (l *Ledger) saveTotal(n int) {
	if err := l.store.Set(PointsKey, strconv.Itoa(n)); err != nil {
		l.log.Error("writing points", "error", err)
	}
}

func (l *Ledger) loadStats() Stats {
	raw, err := l.store.Get(StatsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			l.log.Warn("reading stats", "error", err)
		}
		return DefaultStats()
	}
	var s Stats
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		l.log.Warn("corrupt stats slot, using defaults", "error", err)
		return DefaultStats()
	}
	return migrate(s)
}

func (l *Ledger) saveStats(s Stats) {
	b, err := json.Marshal(s)
	if err != nil {
		l.log.Error("encoding stats", "error", err)
		return
	}
	if err := l.store.Set(StatsKey, string(b)); err != nil {
		l.log.Error("writing stats", "error", err)
	}
}
