package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"squadmarket/internal/auth"
	"squadmarket/internal/market"
	"squadmarket/internal/provision"
)

type contextKey string

const userContextKey contextKey = "user"

type Server struct {
	log       *slog.Logger
	auth      *auth.Service
	market    *market.Service
	provision *provision.Service
	mux       *chi.Mux
}

func New(logger *slog.Logger, authSvc *auth.Service, marketSvc *market.Service, provisionSvc *provision.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:       logger,
		auth:      authSvc,
		market:    marketSvc,
		provision: provisionSvc,
		mux:       chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		// The market is browsable without a token; a token merely
		// hides the viewer's own listings.
		r.Get("/transfer/market", s.handleMarket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/team/status", s.handleTeamStatus)
			r.Post("/transfer/add", s.handleListPlayer)
			r.Post("/transfer/remove", s.handleDelistPlayer)
			r.Post("/transfer/buy", s.handleBuyPlayer)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		userID, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userContextKey).(int64)
	if !ok || userID == 0 {
		return 0, errors.New("missing auth context")
	}
	return userID, nil
}

// handleLogin registers unknown emails and logs known ones in. For a
// new user, team provisioning is queued but never awaited; a queue
// failure is logged and the login still succeeds.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required")
		return
	}
	if len(in.Password) < 6 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "password must be at least 6 characters")
		return
	}

	user, isNew, err := s.auth.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}
		s.log.Error("authentication failed", "err", err)
		writeError(w, http.StatusInternalServerError, "STORAGE_FAILURE", "authentication failed")
		return
	}

	if isNew {
		teamName := fmt.Sprintf("%s's Team", in.Email)
		if err := s.provision.RequestTeam(r.Context(), user.ID, teamName); err != nil {
			s.log.Error("failed to queue team creation", "user_id", user.ID, "err", err)
		}
	}

	token, err := s.auth.MintToken(user)
	if err != nil {
		s.log.Error("token mint failed", "err", err)
		writeError(w, http.StatusInternalServerError, "STORAGE_FAILURE", "authentication failed")
		return
	}

	message := "Login successful"
	if isNew {
		message = "User registered successfully. Team creation in progress."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		},
		"is_new_user": isNew,
		"message":     message,
	})
}

func (s *Server) handleTeamStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}

	team, players, err := s.market.TeamOfUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, market.ErrNoTeam) {
			writeJSON(w, http.StatusOK, map[string]any{
				"team_created": false,
				"message":      "Team creation is in progress",
			})
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"team_created": true,
		"team":         team,
		"players":      players,
		"message":      "Team found",
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := market.BrowseFilter{
		TeamName:   strings.TrimSpace(q.Get("team_name")),
		PlayerName: strings.TrimSpace(q.Get("player_name")),
	}

	if pos := strings.TrimSpace(q.Get("position")); pos != "" {
		filter.Position = market.Position(strings.ToUpper(pos))
		if !filter.Position.Valid() {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid position")
			return
		}
	}
	var err error
	if filter.MinPrice, err = priceParam(q.Get("min_price")); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid min_price")
		return
	}
	if filter.MaxPrice, err = priceParam(q.Get("max_price")); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid max_price")
		return
	}

	// A valid token hides the viewer's own listings; no token is fine.
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		if userID, err := s.auth.VerifyToken(token); err == nil {
			filter.ExcludeOwnerID = userID
		}
	}

	listings, err := s.market.Browse(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": listings})
}

func (s *Server) handleListPlayer(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	var in struct {
		PlayerID    int64 `json:"player_id"`
		AskingPrice int64 `json:"asking_price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if in.PlayerID <= 0 || in.AskingPrice <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "player_id and asking_price must be positive integers")
		return
	}

	if err := s.market.ListPlayer(r.Context(), in.PlayerID, in.AskingPrice, userID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Player added to transfer list successfully"})
}

func (s *Server) handleDelistPlayer(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	var in struct {
		PlayerID int64 `json:"player_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if in.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "player_id must be a positive integer")
		return
	}

	if err := s.market.DelistPlayer(r.Context(), in.PlayerID, userID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Player removed from transfer list successfully"})
}

func (s *Server) handleBuyPlayer(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	var in struct {
		PlayerID int64 `json:"player_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if in.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "player_id must be a positive integer")
		return
	}

	receipt, err := s.market.Purchase(r.Context(), in.PlayerID, userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *market.Error
	if !errors.As(err, &domainErr) {
		s.log.Error("storage failure", "err", err)
		writeError(w, http.StatusInternalServerError, string(market.CodeStorageFailure), "temporary storage failure, try again")
		return
	}

	status := http.StatusBadRequest
	switch domainErr.Code {
	case market.CodeNotFound, market.CodeNoTeam:
		status = http.StatusNotFound
	case market.CodeForbidden:
		status = http.StatusForbidden
	case market.CodeConflict:
		status = http.StatusConflict
	case market.CodeStorageFailure:
		status = http.StatusInternalServerError
	}
	writeError(w, status, string(domainErr.Code), domainErr.Message)
}

func priceParam(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid price %q", raw)
	}
	return &v, nil
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
