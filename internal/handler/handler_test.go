package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prajwal-k-tech/Battle-CP/internal/auth"
	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
	"github.com/Prajwal-k-tech/Battle-CP/internal/repository"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

type stubVerifier struct {
	mu      sync.Mutex
	handles map[string]bool
	err     error
}

func (v *stubVerifier) setErr(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

func (v *stubVerifier) HandleExists(_ context.Context, handle string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.handles[strings.ToLower(handle)], v.err
}

func (v *stubVerifier) HasAcceptedSubmission(context.Context, string, int, string, int) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return false, v.err
}

func (v *stubVerifier) FetchProblemsByContest(_ context.Context, contestID int) ([]model.Problem, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return []model.Problem{{ContestID: contestID, Index: "A", Name: "Theatre Square", Rating: 1000}}, nil
}

type memStats struct{}

func (memStats) RecordResult(context.Context, *model.MatchResult) error { return nil }
func (memStats) GetStats(_ context.Context, handle string) (*model.PlayerStats, error) {
	return &model.PlayerStats{Handle: handle, Wins: 3, Losses: 1}, nil
}
func (memStats) RecentMatches(context.Context, string, int) ([]string, error) { return nil, nil }

type testServer struct {
	*httptest.Server
	verifier *stubVerifier
	jwt      *auth.JWTManager
}

type memResults struct {
	saved []model.MatchResult
}

func (m *memResults) Save(_ context.Context, r *model.MatchResult) error {
	m.saved = append(m.saved, *r)
	return nil
}

func (m *memResults) FindByMatchID(_ context.Context, id string) (*model.MatchResult, error) {
	for i := range m.saved {
		if m.saved[i].MatchID == id {
			return &m.saved[i], nil
		}
	}
	return nil, nil
}

func (m *memResults) ListByHandle(context.Context, string, int) ([]model.MatchResult, error) {
	return m.saved, nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith serves archived results from results, which may be nil.
func newTestServerWith(t *testing.T, results repository.ResultRepository) *testServer {
	t.Helper()
	v := &stubVerifier{handles: map[string]bool{"alice": true, "bob": true}}
	hub := NewHub()
	svc := service.NewMatchService(service.NewRegistry(4), hub, v, nil, clock.New(), service.DefaultSettings())
	jwtMgr := auth.NewJWTManager("handler-test-secret")
	srv := httptest.NewServer(NewRouter(Deps{
		Matches:        svc,
		Archive:        service.NewArchiveService(results, memStats{}),
		Hub:            hub,
		JWT:            jwtMgr,
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, verifier: v, jwt: jwtMgr}
}

func (s *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(s.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) createMatch(t *testing.T, handle string) seatResponse {
	t.Helper()
	resp := s.post(t, "/api/v1/matches", map[string]any{"cf_handle": handle, "heat_threshold": 50})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var seat seatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seat))
	return seat
}

func (s *testServer) dial(t *testing.T, matchID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/ws/" + matchID + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestCreateMatch(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")

	assert.NotEmpty(t, seat.MatchID)
	assert.NotEmpty(t, seat.PlayerID)
	require.NotNil(t, seat.Config)
	assert.Equal(t, battle.MaxHeat, seat.Config.HeatThreshold)

	claims, err := s.jwt.ValidateForMatch(seat.Token, seat.MatchID)
	require.NoError(t, err)
	assert.Equal(t, seat.PlayerID, claims.PlayerID)
}

func TestCreateMatchErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     any
		judgeErr error
		want     int
	}{
		{"missing handle", map[string]any{}, nil, http.StatusBadRequest},
		{"unknown handle", map[string]any{"cf_handle": "ghost"}, nil, http.StatusBadRequest},
		{"judge down", map[string]any{"cf_handle": "alice"}, errors.New("unreachable"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.verifier.setErr(tt.judgeErr)
			resp := s.post(t, "/api/v1/matches", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCreateMatchBadBody(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Post(s.URL+"/api/v1/matches", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIssueToken(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")

	resp := s.post(t, "/api/v1/matches/"+seat.MatchID+"/tokens", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var guest seatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&guest))
	assert.NotEqual(t, seat.PlayerID, guest.PlayerID)
	assert.Nil(t, guest.Config)

	resp = s.post(t, "/api/v1/matches/nope/tokens", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMatchRequiresToken(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")
	other := s.createMatch(t, "bob")

	get := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, s.URL+"/api/v1/matches/"+seat.MatchID, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusForbidden, get(other.Token))
	assert.Equal(t, http.StatusOK, get(seat.Token))
}

func TestGetMatchFallsBackToArchive(t *testing.T) {
	results := &memResults{saved: []model.MatchResult{{
		MatchID: "evicted-1",
		Winner:  "alice",
		Reason:  string(battle.ReasonAllShipsSunk),
		Players: []model.PlayerResult{{PlayerID: "p1", Handle: "alice"}, {PlayerID: "p2", Handle: "bob"}},
	}}}
	s := newTestServerWith(t, results)

	get := func(matchID, playerID string) *http.Response {
		token, err := s.jwt.GenerateToken(playerID, matchID)
		require.NoError(t, err)
		req, _ := http.NewRequest(http.MethodGet, s.URL+"/api/v1/matches/"+matchID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("evicted-1", "p2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res model.MatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "alice", res.Winner)
	assert.Len(t, res.Players, 2)

	assert.Equal(t, http.StatusConflict, get("evicted-1", "p3").StatusCode)
	assert.Equal(t, http.StatusNotFound, get("never-played", "p1").StatusCode)

	// Without an archive an evicted match is simply gone.
	plain := newTestServer(t)
	token, _ := plain.jwt.GenerateToken("p1", "evicted-1")
	req, _ := http.NewRequest(http.MethodGet, plain.URL+"/api/v1/matches/evicted-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestListProblems(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/api/v1/contests/4/problems")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var problems []model.Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problems))
	require.Len(t, problems, 1)
	assert.Equal(t, 4, problems[0].ContestID)

	resp2, err := http.Get(s.URL + "/api/v1/contests/abc/problems")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestPlayerRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/api/v1/players/Alice/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.PlayerStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, "alice", stats.Handle)
	assert.Equal(t, int64(3), stats.Wins)

	// No result repository configured.
	resp2, err := http.Get(s.URL + "/api/v1/players/alice/matches")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestServeWSRejects(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")
	ghost, _ := s.jwt.GenerateToken("p1", "no-such-match")

	tests := []struct {
		name    string
		matchID string
		token   string
		want    int
	}{
		{"missing token", seat.MatchID, "", http.StatusUnauthorized},
		{"garbage token", seat.MatchID, "garbage", http.StatusUnauthorized},
		{"other match", "no-such-match", seat.Token, http.StatusForbidden},
		{"unknown match", "no-such-match", ghost, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(s.URL + "/api/v1/ws/" + tt.matchID + "?token=" + tt.token)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestWebSocketJoinFlow(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")
	resp := s.post(t, "/api/v1/matches/"+seat.MatchID+"/tokens", nil)
	var guest seatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&guest))

	host := s.dial(t, seat.MatchID, seat.Token)
	require.NoError(t, host.WriteJSON(map[string]any{"type": protocol.TypeJoinGame, "cf_handle": "alice"}))
	joined := readUntil(t, host, protocol.TypeGameJoined)
	assert.Equal(t, seat.MatchID, joined["match_id"])

	// Firing before the opponent arrives is a conflict, reported to the sender.
	require.NoError(t, host.WriteJSON(map[string]any{"type": protocol.TypeFire, "x": 0, "y": 0}))
	errMsg := readUntil(t, host, protocol.TypeError)
	assert.Equal(t, "conflict", errMsg["data"].(map[string]any)["code"])

	opp := s.dial(t, guest.MatchID, guest.Token)
	require.NoError(t, opp.WriteJSON(map[string]any{"type": protocol.TypeJoinGame, "cf_handle": "bob"}))
	readUntil(t, opp, protocol.TypeGameJoined)

	pj := readUntil(t, host, protocol.TypePlayerJoined)
	data := pj["data"].(map[string]any)
	assert.Equal(t, guest.PlayerID, data["player_id"])
	assert.Equal(t, "bob", data["cf_handle"])
}

func TestWebSocketMalformedFrame(t *testing.T) {
	s := newTestServer(t)
	seat := s.createMatch(t, "alice")
	host := s.dial(t, seat.MatchID, seat.Token)

	require.NoError(t, host.WriteMessage(websocket.TextMessage, []byte("{nope")))
	errMsg := readUntil(t, host, protocol.TypeError)
	assert.Equal(t, "validation", errMsg["data"].(map[string]any)["code"])
}
