package achievements

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Family string

const (
	FamilyPoints = Family("points")
	FamilyGames  = Family("games")
	FamilyStreak = Family("streak")
)

var (
	PointThresholds  = []int{1000, 5000, 10000, 25000, 50000, 100000}
	GameThresholds   = []int{10, 50, 100, 500, 1000}
	StreakThresholds = []int{7, 30, 100}
)

type Definition struct {
	ID          string
	Family      Family
	Threshold   int
	Title       string
	Description string
	Icon        string
	Bonus       int
}

// Progress is the set of metrics milestones are measured against.
type Progress struct {
	TotalPoints int
	GamesPlayed int
	Streak      int
}

func (d Definition) Reached(p Progress) bool {
	switch d.Family {
	case FamilyPoints:
		return p.TotalPoints >= d.Threshold
	case FamilyGames:
		return p.GamesPlayed >= d.Threshold
	case FamilyStreak:
		return p.Streak >= d.Threshold
	}
	return false
}

// All lists every definition, points first, each family in ascending threshold order.
var All = buildCatalog()

var byID = indexCatalog(All)

func buildCatalog() []Definition {
	en := message.NewPrinter(language.English)
	var defs []Definition
	for _, n := range PointThresholds {
		defs = append(defs, Definition{
			ID:          fmt.Sprintf("points_%d", n),
			Family:      FamilyPoints,
			Threshold:   n,
			Title:       en.Sprintf("Point Master %d", n),
			Description: en.Sprintf("Reached %d total points!", n),
			Icon:        "🏆",
			Bonus:       n / 10,
		})
	}
	for _, n := range GameThresholds {
		defs = append(defs, Definition{
			ID:          fmt.Sprintf("games_%d", n),
			Family:      FamilyGames,
			Threshold:   n,
			Title:       fmt.Sprintf("Game Lover %d", n),
			Description: fmt.Sprintf("Played %d games!", n),
			Icon:        "🎮",
			Bonus:       n,
		})
	}
	for _, n := range StreakThresholds {
		defs = append(defs, Definition{
			ID:          fmt.Sprintf("streak_%d", n),
			Family:      FamilyStreak,
			Threshold:   n,
			Title:       fmt.Sprintf("%d-Day Streak", n),
			Description: fmt.Sprintf("Played %d days in a row!", n),
			Icon:        "🔥",
			Bonus:       n * 10,
		})
	}
	return defs
}

func indexCatalog(defs []Definition) map[string]Definition {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return m
}

func Lookup(id string) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}

// Evaluate returns the definitions reached by p that are not in awarded,
// in catalog order.
func Evaluate(p Progress, awarded map[string]bool) []Definition {
	var earned []Definition
	for _, d := range All {
		if awarded[d.ID] {
			continue
		}
		if d.Reached(p) {
			earned = append(earned, d)
		}
	}
	return earned
}
