package ledger

import (
	"math"
	"testing"
)

func TestCalculatePoints(t *testing.T) {
	tests := []struct {
		name   string
		raw    float64
		game   string
		info   GameInfo
		streak int
		want   int
	}{
		{"base only", 1000, "snake", GameInfo{}, 0, 100},
		{"floors base", 1009, "snake", GameInfo{}, 0, 100},
		{"high score", 15000, "snake", GameInfo{}, 0, 1520},
		{"very high score", 60000, "snake", GameInfo{}, 0, 6070},
		{"galaxy_war accuracy and combo", 500, "galaxy_war", GameInfo{Accuracy: 95, Combo: 25}, 0, 130},
		{"galaxy_war ignores score bonus", 20000, "galaxy_war", GameInfo{}, 0, 2000},
		{"drum_beat", 0, "drum_beat", GameInfo{Accuracy: 96, MaxCombo: 60}, 0, 175},
		{"drum_beat at threshold", 0, "drum_beat", GameInfo{Accuracy: 95, MaxCombo: 50}, 0, 0},
		{"piano_tiles", 100, "piano_tiles", GameInfo{PerfectRatio: 0.9}, 0, 90},
		{"new record", 1010, "snake", GameInfo{IsNewRecord: true}, 0, 151},
		{"streak", 100, "snake", GameInfo{}, 3, 25},
		{"streak capped", 100, "snake", GameInfo{}, 50, 110},
		{"negative score", -500, "snake", GameInfo{}, 0, 0},
		{"NaN score", math.NaN(), "snake", GameInfo{}, 0, 0},
		{"huge score", 1e300, "snake", GameInfo{}, 0, MaxScore/10 + 70},
		{"infinite score", math.Inf(1), "snake", GameInfo{}, 0, MaxScore/10 + 70},
		{"huge new record", 1e300, "snake", GameInfo{IsNewRecord: true}, 0, MaxScore/10 + MaxScore/20 + 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePoints(tt.raw, tt.game, tt.info, tt.streak)
			if got != tt.want {
				t.Errorf("CalculatePoints = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{-1, 0},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
		{0.9, 0},
		{1234.7, 1234},
		{MaxScore + 0.5, MaxScore},
		{1e300, MaxScore},
		{math.Inf(1), MaxScore},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.raw); got != tt.want {
			t.Errorf("ClampScore(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestAddSat(t *testing.T) {
	if got := AddSat(2, 3); got != 5 {
		t.Errorf("AddSat(2, 3) = %d, want 5", got)
	}
	if got := AddSat(math.MaxInt-1, 1); got != math.MaxInt {
		t.Errorf("AddSat(MaxInt-1, 1) = %d, want MaxInt", got)
	}
	if got := AddSat(math.MaxInt, MaxScore); got != math.MaxInt {
		t.Errorf("AddSat(MaxInt, MaxScore) = %d, want MaxInt", got)
	}
}

func TestLevel(t *testing.T) {
	for total := 0; total <= 12000; total += 37 {
		level := Level(total)
		if level != total/1000+1 {
			t.Fatalf("Level(%d) = %d", total, level)
		}
		next := PointsToNextLevel(total)
		if next <= 0 || next > PointsPerLevel {
			t.Fatalf("PointsToNextLevel(%d) = %d, want in (0, %d]", total, next, PointsPerLevel)
		}
		if total+next != level*PointsPerLevel {
			t.Fatalf("total %d + next %d != %d", total, next, level*PointsPerLevel)
		}
	}
}

func TestLevel_Boundaries(t *testing.T) {
	if got := Level(999); got != 1 {
		t.Errorf("Level(999) = %d, want 1", got)
	}
	if got := Level(1000); got != 2 {
		t.Errorf("Level(1000) = %d, want 2", got)
	}
	if got := PointsToNextLevel(1000); got != 1000 {
		t.Errorf("PointsToNextLevel(1000) = %d, want 1000", got)
	}
}
