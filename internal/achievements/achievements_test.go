package achievements

import "testing"

func TestCatalog_Size(t *testing.T) {
	want := len(PointThresholds) + len(GameThresholds) + len(StreakThresholds)
	if len(All) != want {
		t.Errorf("catalog size = %d, want %d", len(All), want)
	}
}

func TestCatalog_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range All {
		if seen[d.ID] {
			t.Errorf("duplicate id %q", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestLookup_Payouts(t *testing.T) {
	cases := []struct {
		id    string
		bonus int
	}{
		{"points_1000", 100},
		{"points_100000", 10000},
		{"games_10", 10},
		{"games_1000", 1000},
		{"streak_7", 70},
		{"streak_100", 1000},
	}
	for _, c := range cases {
		d, ok := Lookup(c.id)
		if !ok {
			t.Errorf("Lookup(%q) not found", c.id)
			continue
		}
		if d.Bonus != c.bonus {
			t.Errorf("%s bonus = %d, want %d", c.id, d.Bonus, c.bonus)
		}
	}

	if _, ok := Lookup("points_1"); ok {
		t.Error("Lookup(points_1) should not be found")
	}
}

func TestDefinition_Title(t *testing.T) {
	d, _ := Lookup("points_25000")
	if d.Title != "Point Master 25,000" {
		t.Errorf("Title = %q, want %q", d.Title, "Point Master 25,000")
	}
	if d.Description != "Reached 25,000 total points!" {
		t.Errorf("Description = %q", d.Description)
	}
	if d, _ := Lookup("points_100000"); d.Title != "Point Master 100,000" {
		t.Errorf("Title = %q, want %q", d.Title, "Point Master 100,000")
	}
	if d.Icon != "🏆" {
		t.Errorf("Icon = %q", d.Icon)
	}
}

func TestDefinition_Reached(t *testing.T) {
	d, _ := Lookup("games_10")
	if d.Reached(Progress{GamesPlayed: 9}) {
		t.Error("games_10 should not be reached at 9 games")
	}
	if !d.Reached(Progress{GamesPlayed: 10}) {
		t.Error("games_10 should be reached at 10 games")
	}
}

func TestEvaluate_PointsOnly(t *testing.T) {
	earned := Evaluate(Progress{TotalPoints: 5000}, nil)
	if len(earned) != 2 {
		t.Fatalf("earned %d, want 2", len(earned))
	}
	if earned[0].ID != "points_1000" || earned[1].ID != "points_5000" {
		t.Errorf("earned = %s, %s", earned[0].ID, earned[1].ID)
	}
}

func TestEvaluate_SkipsAwarded(t *testing.T) {
	awarded := map[string]bool{"points_1000": true}
	earned := Evaluate(Progress{TotalPoints: 1500}, awarded)
	if len(earned) != 0 {
		t.Errorf("earned %d, want 0", len(earned))
	}
}

func TestEvaluate_AllFamilies(t *testing.T) {
	earned := Evaluate(Progress{TotalPoints: 1000, GamesPlayed: 10, Streak: 7}, nil)
	if len(earned) != 3 {
		t.Errorf("earned %d, want 3", len(earned))
	}
}

func TestEvaluate_Nothing(t *testing.T) {
	if earned := Evaluate(Progress{}, nil); len(earned) != 0 {
		t.Errorf("earned %d, want 0", len(earned))
	}
}
