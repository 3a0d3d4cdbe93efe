package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"gameworld/internal/events"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_Attach(t *testing.T) {
	m := New()
	bus := events.NewBus()
	detach := m.Attach(bus)

	bus.Publish(events.PointsEarned{Points: 120, NewTotal: 120, GameID: "galaxy_war"})
	bus.Publish(events.PointsEarned{Points: 30, NewTotal: 150, GameID: "galaxy_war"})
	bus.Publish(events.AchievementUnlocked{ID: "points_1000"})
	bus.Publish(events.SessionChanged{State: "authenticated"})

	out := scrape(t, m)
	for _, want := range []string{
		`gameworld_points_awarded_total{game="galaxy_war"} 150`,
		`gameworld_achievements_unlocked_total{achievement="points_1000"} 1`,
		`gameworld_session_transitions_total{state="authenticated"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape missing %q", want)
		}
	}

	detach()
	bus.Publish(events.AchievementUnlocked{ID: "points_5000"})
	if strings.Contains(scrape(t, m), `achievement="points_5000"`) {
		t.Error("events after detach should not be counted")
	}
}

func TestMetrics_UnknownGame(t *testing.T) {
	m := New()
	m.Observe(events.PointsEarned{Points: 5})
	if !strings.Contains(scrape(t, m), `gameworld_points_awarded_total{game="unknown"} 5`) {
		t.Error("empty game id should be labelled unknown")
	}
}
