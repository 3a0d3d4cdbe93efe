package ledger

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// StatsVersion is the current on-disk schema of Stats.
const StatsVersion = 1

// Seconds is a whole number of seconds. Older records stored fractional
// values; those are rounded when decoded.
type Seconds int

func secondsOf(f float64) Seconds {
	return Seconds(ClampScore(math.Round(f)))
}

func (s *Seconds) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = secondsOf(f)
	return nil
}

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err != nil {
		return err
	}
	*s = secondsOf(f)
	return nil
}

type GameStat struct {
	PlayCount     int     `json:"playCount" yaml:"playCount"`
	TotalPoints   int     `json:"totalPoints" yaml:"totalPoints"`
	BestScore     int     `json:"bestScore" yaml:"bestScore"`
	TotalPlayTime Seconds `json:"totalPlayTime" yaml:"totalPlayTime"`
}

type Stats struct {
	Version          int                 `json:"version" yaml:"version"`
	TotalGamesPlayed int                 `json:"totalGamesPlayed" yaml:"totalGamesPlayed"`
	TotalPlayTime    Seconds             `json:"totalPlayTime" yaml:"totalPlayTime"`
	FavoriteGame     string              `json:"favoriteGame,omitempty" yaml:"favoriteGame,omitempty"`
	Streak           int                 `json:"streak" yaml:"streak"`
	LastPlayDate     *time.Time          `json:"lastPlayDate" yaml:"lastPlayDate"`
	Achievements     []string            `json:"achievements" yaml:"achievements"`
	GameStats        map[string]GameStat `json:"gameStats" yaml:"gameStats"`
}

func DefaultStats() Stats {
	return Stats{
		Version:      StatsVersion,
		Achievements: []string{},
		GameStats:    map[string]GameStat{},
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	c := s
	c.Achievements = append([]string{}, s.Achievements...)
	c.GameStats = make(map[string]GameStat, len(s.GameStats))
	for k, v := range s.GameStats {
		c.GameStats[k] = v
	}
	if s.LastPlayDate != nil {
		t := *s.LastPlayDate
		c.LastPlayDate = &t
	}
	return c
}

func (s Stats) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// migrate brings s up to StatsVersion and repairs values a hand-edited or
// older record may carry.
func migrate(s Stats) Stats {
	if s.Version < 1 {
		s.Version = 1
	}
	if s.GameStats == nil {
		s.GameStats = map[string]GameStat{}
	}

	seen := make(map[string]bool, len(s.Achievements))
	achievements := make([]string, 0, len(s.Achievements))
	for _, id := range s.Achievements {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		achievements = append(achievements, id)
	}
	s.Achievements = achievements

	s.TotalGamesPlayed = max(s.TotalGamesPlayed, 0)
	s.TotalPlayTime = max(s.TotalPlayTime, 0)
	s.Streak = max(s.Streak, 0)
	for id, gs := range s.GameStats {
		if id == "" {
			delete(s.GameStats, id)
			continue
		}
		gs.PlayCount = max(gs.PlayCount, 0)
		gs.TotalPoints = max(gs.TotalPoints, 0)
		gs.TotalPlayTime = max(gs.TotalPlayTime, 0)
		gs.BestScore = max(gs.BestScore, 0)
		s.GameStats[id] = gs
	}
	if s.FavoriteGame == "" || s.GameStats[s.FavoriteGame].PlayCount == 0 {
		s.FavoriteGame = favoriteGame(s.GameStats)
	}
	return s
}

// recordPlay applies one finished game to s.
func recordPlay(s *Stats, points int, gameID string, info GameInfo, now time.Time) {
	switch {
	case s.LastPlayDate == nil:
		s.Streak = 1
	case now.Sub(*s.LastPlayDate) <= StreakWindow:
		s.Streak++
	default:
		s.Streak = 1
	}
	s.LastPlayDate = &now
	s.TotalGamesPlayed = AddSat(s.TotalGamesPlayed, 1)

	playTime := secondsOf(info.PlayTime)
	s.TotalPlayTime = Seconds(AddSat(int(s.TotalPlayTime), int(playTime)))

	if gameID == "" {
		return
	}
	gs := s.GameStats[gameID]
	gs.PlayCount = AddSat(gs.PlayCount, 1)
	gs.TotalPoints = AddSat(gs.TotalPoints, points)
	gs.TotalPlayTime = Seconds(AddSat(int(gs.TotalPlayTime), int(playTime)))
	if score := ClampScore(info.Score); score > gs.BestScore {
		gs.BestScore = score
	}
	s.GameStats[gameID] = gs
	s.FavoriteGame = favoriteGame(s.GameStats)
}

// favoriteGame is the most played game; ties go to the smallest id.
func favoriteGame(games map[string]GameStat) string {
	ids := make([]string, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best, count := "", 0
	for _, id := range ids {
		if n := games[id].PlayCount; n > count {
			best, count = id, n
		}
	}
	return best
}
