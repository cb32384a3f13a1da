package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Prajwal-k-tech/Battle-CP/internal/auth"
	"github.com/Prajwal-k-tech/Battle-CP/internal/logger"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

// MatchHandler serves match creation, join tokens and summaries.
type MatchHandler struct {
	svc     *service.MatchService
	archive *service.ArchiveService
	jwtMgr  *auth.JWTManager
}

// NewMatchHandler creates a MatchHandler. archive may be nil.
func NewMatchHandler(svc *service.MatchService, archive *service.ArchiveService, jwtMgr *auth.JWTManager) *MatchHandler {
	return &MatchHandler{svc: svc, archive: archive, jwtMgr: jwtMgr}
}

type seatResponse struct {
	MatchID  string              `json:"match_id"`
	PlayerID string              `json:"player_id"`
	Token    string              `json:"token"`
	Config   *battle.MatchConfig `json:"config,omitempty"`
}

// CreateMatch handles POST /api/v1/matches.
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.CreateMatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := h.jwtMgr.GenerateToken(created.PlayerID, created.MatchID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rl := logger.ForRequest(r.Context())
	rl.Info().Str("matchId", created.MatchID).Msg("Match created via API")
	writeJSON(w, http.StatusCreated, seatResponse{
		MatchID:  created.MatchID,
		PlayerID: created.PlayerID,
		Token:    token,
		Config:   &created.Config,
	})
}

// IssueToken handles POST /api/v1/matches/{id}/tokens, minting the guest seat
// identity. The guest still has to send JoinGame to take the seat.
func (h *MatchHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	playerID, err := h.svc.NewGuest(matchID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := h.jwtMgr.GenerateToken(playerID, matchID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, seatResponse{MatchID: matchID, PlayerID: playerID, Token: token})
}

// GetMatch handles GET /api/v1/matches/{id} for a bearer-authenticated
// participant. Once a finished match is evicted the archived result is
// served instead.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.MatchID != matchID {
		writeError(w, http.StatusForbidden, "token is for a different match")
		return
	}
	summary, err := h.svc.Summary(matchID, claims.PlayerID)
	if errors.Is(err, battle.ErrMatchNotFound) && h.archive != nil {
		res, aerr := h.archive.Find(r.Context(), matchID, claims.PlayerID)
		if aerr == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}
		if !errors.Is(aerr, service.ErrArchiveDisabled) {
			err = aerr
		}
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListProblems handles GET /api/v1/contests/{contestId}/problems.
func (h *MatchHandler) ListProblems(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.Atoi(chi.URLParam(r, "contestId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "contest id must be a number")
		return
	}
	problems, err := h.svc.Problems(r.Context(), contestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}
