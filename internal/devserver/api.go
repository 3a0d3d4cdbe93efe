package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gameworld/internal/db"
	"gameworld/internal/facade"
	"gameworld/internal/identity"
	"gameworld/internal/ledger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// statusFor maps facade and identity errors onto HTTP statuses.
func statusFor(err error) int {
	var remoteErr *facade.RemoteError
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInvalidSession),
		errors.Is(err, facade.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrUserExists),
		errors.Is(err, facade.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, facade.ErrNoAuthority),
		errors.Is(err, facade.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger().Warn(op+" failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.Facade.CurrentPoints(r.Context())
	if err != nil {
		s.fail(w, r, "current points", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"points":  points,
		"state":   s.Facade.State().String(),
	})
}

type addPointsRequest struct {
	Score  float64 `json:"score"`
	GameID string  `json:"gameId"`
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	var req addPointsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	res, err := s.Facade.AddGamePoints(r.Context(), req.Score, req.GameID)
	if err != nil {
		s.fail(w, r, "add points", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"points":   res.Points,
		"newTotal": res.NewTotal,
		"remote":   res.Remote,
	})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"points":            s.Ledger.TotalPoints(),
		"level":             s.Ledger.CurrentLevel(),
		"pointsToNextLevel": s.Ledger.PointsToNextLevel(),
		"stats":             s.Ledger.Stats(),
	})
}

type scoreRequest struct {
	Score  float64         `json:"score"`
	GameID string          `json:"gameId"`
	Info   ledger.GameInfo `json:"info"`
}

func (s *Server) handleLedgerScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	total := s.Ledger.AddGameScore(req.Score, req.GameID, req.Info)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"newTotal": total,
		"level":    ledger.Level(total),
	})
}

func (s *Server) handleAllViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.Facade.AllGameViews(r.Context())
	if err != nil {
		s.fail(w, r, "list views", err)
		return
	}
	if views == nil {
		views = []db.GameViews{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "views": views})
}

func (s *Server) handleGameViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.Facade.GameViews(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		s.fail(w, r, "game views", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "views": views})
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	recorded, err := s.Facade.IncrementGameView(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		s.fail(w, r, "record view", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "recorded": recorded})
}

func authorityJSON(a facade.Authority) map[string]any {
	out := map[string]any{
		"success": true,
		"state":   a.State.String(),
	}
	if a.User != nil {
		out["user"] = a.User
	}
	if a.Profile != nil {
		out["profile"] = a.Profile
	}
	return out
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	a, err := s.Facade.Resolve(r.Context())
	if err != nil {
		s.fail(w, r, "resolve session", err)
		return
	}
	writeJSON(w, http.StatusOK, authorityJSON(a))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if !decode(w, r, &c) {
		return c, false
	}
	if c.Email == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return c, false
	}
	return c, true
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	c, ok := s.credentials(w, r)
	if !ok {
		return
	}
	a, err := s.Facade.SignUp(r.Context(), c.Email, c.Password)
	if err != nil {
		s.fail(w, r, "sign up", err)
		return
	}
	writeJSON(w, http.StatusOK, authorityJSON(a))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	c, ok := s.credentials(w, r)
	if !ok {
		return
	}
	a, err := s.Facade.SignIn(r.Context(), c.Email, c.Password)
	if err != nil {
		s.fail(w, r, "sign in", err)
		return
	}
	writeJSON(w, http.StatusOK, authorityJSON(a))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.Facade.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": s.Facade.State().String()})
}
