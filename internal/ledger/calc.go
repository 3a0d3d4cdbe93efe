package ledger

import "math"

// GameInfo describes a finished game. Unset fields never earn a bonus.
type GameInfo struct {
	Accuracy     float64 `json:"accuracy,omitempty"`
	Combo        int     `json:"combo,omitempty"`
	MaxCombo     int     `json:"maxCombo,omitempty"`
	PerfectRatio float64 `json:"perfectRatio,omitempty"`
	IsNewRecord  bool    `json:"isNewRecord,omitempty"`
	Score        float64 `json:"score,omitempty"`
	PlayTime     float64 `json:"playTime,omitempty"` // seconds
}

const (
	maxStreakBonus = 100
	streakBonusPer = 5
)

// MaxScore caps any score or point delta taken from a float.
const MaxScore = math.MaxInt32

// ClampScore converts a reported score to an int in [0, MaxScore]. NaN and
// negative scores count as 0.
func ClampScore(raw float64) int {
	switch {
	case raw <= 0 || math.IsNaN(raw):
		return 0
	case raw >= MaxScore:
		return MaxScore
	}
	return int(math.Floor(raw))
}

// AddSat adds two non-negative counters, saturating at math.MaxInt.
func AddSat(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// CalculatePoints converts a raw game score into ledger points for a player on
// the given streak.
func CalculatePoints(rawScore float64, gameID string, info GameInfo, streak int) int {
	score := ClampScore(rawScore)
	base := score / 10
	bonus := 0

	switch gameID {
	case "galaxy_war":
		if info.Accuracy > 90 {
			bonus += 50
		}
		if info.Combo > 20 {
			bonus += 30
		}
	case "drum_beat":
		if info.Accuracy > 95 {
			bonus += 100
		}
		if info.MaxCombo > 50 {
			bonus += 75
		}
	case "piano_tiles":
		if info.PerfectRatio > 0.8 {
			bonus += 80
		}
	default:
		if rawScore > 10000 {
			bonus += 20
		}
		if rawScore > 50000 {
			bonus += 50
		}
	}

	if info.IsNewRecord {
		bonus += base / 2
	}
	if streak > 0 {
		bonus += min(streak*streakBonusPer, maxStreakBonus)
	}
	return base + bonus
}

// Level is floor(total/1000)+1.
func Level(total int) int {
	return max(total, 0)/PointsPerLevel + 1
}

func PointsToNextLevel(total int) int {
	return PointsPerLevel - max(total, 0)%PointsPerLevel
}
