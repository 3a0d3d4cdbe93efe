package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gameworld/internal/events"
)

// Metrics counts ledger and session activity seen on an event bus.
type Metrics struct {
	Registry *prometheus.Registry

	pointsAwarded        *prometheus.CounterVec
	achievementsUnlocked *prometheus.CounterVec
	sessionTransitions   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameworld_points_awarded_total",
			Help: "Points credited, by game.",
		}, []string{"game"}),
		achievementsUnlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameworld_achievements_unlocked_total",
			Help: "Achievements unlocked, by id.",
		}, []string{"achievement"}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameworld_session_transitions_total",
			Help: "Session state transitions, by new state.",
		}, []string{"state"}),
	}
	reg.MustRegister(
		m.pointsAwarded,
		m.achievementsUnlocked,
		m.sessionTransitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Attach counts events published on bus until the returned function is called.
func (m *Metrics) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(m.Observe)
}

func (m *Metrics) Observe(ev events.Event) {
	switch e := ev.(type) {
	case events.PointsEarned:
		game := e.GameID
		if game == "" {
			game = "unknown"
		}
		m.pointsAwarded.WithLabelValues(game).Add(float64(e.Points))
	case events.AchievementUnlocked:
		m.achievementsUnlocked.WithLabelValues(e.ID).Inc()
	case events.SessionChanged:
		m.sessionTransitions.WithLabelValues(e.State).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
