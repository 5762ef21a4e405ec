package match

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krishanu7/battleship-engine/config"
	"github.com/krishanu7/battleship-engine/internal/auth"
	"github.com/krishanu7/battleship-engine/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t     *testing.T
	mux   *http.ServeMux
	seats *auth.Service
	svc   *Service
}

func newTestServer(t *testing.T) *testServer {
	seats := auth.NewService(nil, config.Config{JWTSecret: "test-secret"})
	svc := NewService(nil, nil, Defaults{})
	t.Cleanup(svc.Shutdown)
	mux := http.NewServeMux()
	NewHandler(svc, seats).Routes(mux)
	return &testServer{t: t, mux: mux, seats: seats, svc: svc}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) create(body CreateRequest) CreateResponse {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/v1/matches", "", body)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp CreateResponse
	require.NoError(ts.t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func TestHandlerCreateVsBot(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.create(CreateRequest{Player1Name: "ann"})

	assert.Equal(t, game.VsBot, resp.Mode)
	assert.Equal(t, [2]string{"ann", game.BotName}, resp.Names)
	assert.Equal(t, 1, resp.BestOf)
	require.Len(t, resp.Tokens, 1)
	assert.NotEmpty(t, resp.Tokens[0])

	rr := ts.do(http.MethodGet, "/api/v1/matches/"+resp.MatchID, resp.Tokens[0], nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[game.Snapshot](t, rr)
	assert.Equal(t, game.PhasePlacingP1, snap.Phase)
	assert.Equal(t, []int{5, 4, 3, 2}, snap.ShipsToPlace)
}

func TestHandlerCreateRejectsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/api/v1/matches", "", CreateRequest{Mode: "solo"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", bytes.NewBufferString("{"))
	rr = httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerRequiresSeatToken(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create(CreateRequest{Mode: "vs_player"})
	b := ts.create(CreateRequest{Mode: "vs_player"})
	path := "/api/v1/matches/" + a.MatchID

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, path, "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, path, b.Tokens[0], nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, path+"?player_id=1", a.Tokens[0], nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, path+"?player_id=1", a.Tokens[1], nil).Code)
}

func TestHandlerUnknownMatch(t *testing.T) {
	ts := newTestServer(t)
	tok, err := ts.seats.IssueSeatToken("nope", 0)
	require.NoError(t, err)
	rr := ts.do(http.MethodGet, "/api/v1/matches/nope", tok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decode[map[string]string](t, rr)["error"], "not found")
}

func TestHandlerPlacement(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.create(CreateRequest{Mode: "vs_player"})
	base := "/api/v1/matches/" + resp.MatchID
	p1, p2 := resp.Tokens[0], resp.Tokens[1]

	rr := ts.do(http.MethodPost, base+"/place", p1, map[string]any{"coordinate": "A1", "orientation": "horizontal"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []int{4, 3, 2}, decode[game.Snapshot](t, rr).ShipsToPlace)

	rr = ts.do(http.MethodPost, base+"/place", p1, map[string]any{"row": 0, "col": 2, "orientation": "v"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[map[string]string](t, rr)["error"], "overlap")

	rr = ts.do(http.MethodPost, base+"/place", p1, map[string]any{"row": 9, "col": 8, "orientation": "h"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, base+"/place", p1, map[string]any{"row": 1, "orientation": "h"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, base+"/place", p1, map[string]any{"row": 1, "col": 0, "orientation": "diagonal"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, base+"/place", p2, map[string]any{"row": 1, "col": 0, "orientation": "h"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(http.MethodPost, base+"/autoplace", p1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[game.Snapshot](t, rr)
	assert.Equal(t, game.PhasePlacingP2, snap.Phase)
	assert.True(t, snap.ShipsPlaced)
}

func TestHandlerBattle(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.create(CreateRequest{Mode: "vs_player", Player1Name: "ann", Player2Name: "bob"})
	base := "/api/v1/matches/" + resp.MatchID
	p1, p2 := resp.Tokens[0], resp.Tokens[1]

	rr := ts.do(http.MethodPost, base+"/attack", p1, map[string]any{"row": 0, "col": 0})
	assert.Equal(t, http.StatusConflict, rr.Code)

	placeFleet(t, ts.svc, resp.MatchID, game.Player1)
	placeFleet(t, ts.svc, resp.MatchID, game.Player2)

	rr = ts.do(http.MethodPost, base+"/attack", p2, map[string]any{"row": 0, "col": 0})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(http.MethodPost, base+"/attack", p1, map[string]any{"coordinate": "A1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	attack := decode[AttackResponse](t, rr)
	assert.Equal(t, game.HitShot, attack.Result.Outcome)
	assert.Equal(t, "x", attack.State.OpponentBoard[0][0])
	assert.Equal(t, 1, attack.State.CurrentTurn)

	rr = ts.do(http.MethodPost, base+"/attack", p2, map[string]any{"row": 9, "col": 9})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, game.MissShot, decode[AttackResponse](t, rr).Result.Outcome)

	rr = ts.do(http.MethodPost, base+"/attack", p1, map[string]any{"row": 0, "col": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, base+"/attack", p1, map[string]any{"row": 10, "col": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, base+"/next-round", p1, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerRoundFlow(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.create(CreateRequest{Mode: "vs_player", BestOf: 3})
	base := "/api/v1/matches/" + resp.MatchID
	p1 := resp.Tokens[0]

	placeFleet(t, ts.svc, resp.MatchID, game.Player1)
	placeFleet(t, ts.svc, resp.MatchID, game.Player2)
	playOutRound(t, ts.svc, resp.MatchID)

	rr := ts.do(http.MethodGet, base, p1, nil)
	snap := decode[game.Snapshot](t, rr)
	assert.Equal(t, game.PhaseRoundOver, snap.Phase)
	require.NotNil(t, snap.RoundWinner)
	assert.Equal(t, 0, *snap.RoundWinner)

	rr = ts.do(http.MethodPost, base+"/next-round", p1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap = decode[game.Snapshot](t, rr)
	assert.Equal(t, 2, snap.Round)
	assert.Equal(t, game.PhasePlacingP1, snap.Phase)

	rr = ts.do(http.MethodPost, base+"/reset", p1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap = decode[game.Snapshot](t, rr)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, [2]int{0, 0}, snap.Wins)
}

func TestHandlerDelete(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.create(CreateRequest{})
	path := "/api/v1/matches/" + resp.MatchID

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, path, resp.Tokens[0], nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, path, resp.Tokens[0], nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, path, resp.Tokens[0], nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		ErrMatchNotFound:           http.StatusNotFound,
		ErrUnauthorized:            http.StatusUnauthorized,
		auth.ErrUnauthorized:       http.StatusUnauthorized,
		game.ErrOutOfBounds:        http.StatusBadRequest,
		game.ErrOverlap:            http.StatusBadRequest,
		game.ErrAlreadyShot:        http.StatusBadRequest,
		game.ErrInvalidMove:        http.StatusConflict,
		game.ErrMatchDecided:       http.StatusConflict,
		game.ErrPlacementExhausted: http.StatusInternalServerError,
	}
	for err, code := range cases {
		assert.Equal(t, code, StatusFor(err), err.Error())
	}
}
