package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/database"
	"github.com/isdelr/private-leagues-api/internal/monitoring"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const appKey = "test-app"

type testAPI struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	router := NewRouter(Dependencies{
		Users:          services.NewUserService(db, auth.NewHasher(bcrypt.MinCost)),
		Leagues:        services.NewLeagueService(db),
		Events:         services.NewEventService(db),
		Tokens:         auth.NewTokenService("test-secret"),
		Metrics:        monitoring.NewMetrics(),
		AppKeys:        []string{appKey},
		AllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testAPI{t: t, server: srv}
}

type response struct {
	status int
	body   []byte
}

func (r response) json(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

// do sends a request. token and key are only set when non-empty.
func (a *testAPI) do(method, path, token, key string, body any) response {
	a.t.Helper()
	res, err := a.send(method, path, token, key, body)
	require.NoError(a.t, err)
	return res
}

// send is do without assertions, safe to call from other goroutines.
func (a *testAPI) send(method, path, token, key string, body any) (response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return response{}, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rd)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if key != "" {
		req.Header.Set("X-App-Key", key)
	}

	res, err := a.server.Client().Do(req)
	if err != nil {
		return response{}, err
	}
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	if err != nil {
		return response{}, err
	}
	return response{status: res.StatusCode, body: out}, nil
}

// signup registers and logs in a user, returning its id and token.
func (a *testAPI) signup(username string) (string, string) {
	a.t.Helper()
	res := a.do(http.MethodPost, "/register", "", "", map[string]any{"username": username, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, res.status, string(res.body))

	res = a.do(http.MethodPost, "/login", "", "", map[string]any{"username": username, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, res.status, string(res.body))
	var login struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	res.json(a.t, &login)
	return login.User["id"].(string), login.Token
}

func (a *testAPI) createLeague(token, name string) string {
	a.t.Helper()
	res := a.do(http.MethodPost, "/leagues", token, appKey, map[string]any{"name": name})
	require.Equal(a.t, http.StatusCreated, res.status, string(res.body))
	var created map[string]string
	res.json(a.t, &created)
	return created["id"]
}

func TestRoot(t *testing.T) {
	a := newTestAPI(t)
	res := a.do(http.MethodGet, "/", "", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Api is working", string(res.body))
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestAPI(t)

	creds := map[string]any{"username": "alice", "password": "secret1", "email": "a@example.com"}
	res := a.do(http.MethodPost, "/register", "", "", creds)
	require.Equal(t, http.StatusOK, res.status)
	var reg map[string]string
	res.json(t, &reg)
	assert.NotEmpty(t, reg["id"])

	res = a.do(http.MethodPost, "/register", "", "", creds)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.JSONEq(t, `{"error":"Username already taken"}`, string(res.body))

	res = a.do(http.MethodPost, "/login", "", "", map[string]any{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, res.status)
	var login map[string]any
	res.json(t, &login)
	user := login["user"].(map[string]any)
	assert.Equal(t, reg["id"], user["id"])
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@example.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotEmpty(t, login["token"])

	wrongPassword := a.do(http.MethodPost, "/login", "", "", map[string]any{"username": "alice", "password": "secret2"})
	unknownUser := a.do(http.MethodPost, "/login", "", "", map[string]any{"username": "mallory", "password": "secret1"})
	assert.Equal(t, http.StatusNotFound, wrongPassword.status)
	assert.Equal(t, http.StatusNotFound, unknownUser.status)
	assert.Equal(t, wrongPassword.body, unknownUser.body)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, string(unknownUser.body))

	for _, body := range []map[string]any{
		{"username": "alice"},
		{"username": "al!ce", "password": "secret1"},
		{"username": "alice", "password": "short"},
		{"username": 7, "password": "secret1"},
	} {
		res := a.do(http.MethodPost, "/login", "", "", body)
		assert.Equal(t, http.StatusUnprocessableEntity, res.status, "%v", body)
		res = a.do(http.MethodPost, "/register", "", "", body)
		assert.Equal(t, http.StatusUnprocessableEntity, res.status, "%v", body)
	}
}

func TestCheckToken(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.signup("alice")

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/check-token", "", "", map[string]any{"token": token}).status)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/check-token", "", "", map[string]any{"token": token + "x"}).status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/check-token", "", "", map[string]any{}).status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/check-token", "", "", map[string]any{"token": 1}).status)
}

func TestUsers(t *testing.T) {
	a := newTestAPI(t)
	aliceID, alice := a.signup("alice")
	_, bob := a.signup("bob")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/users/me", "", "", nil).status)

	res := a.do(http.MethodGet, "/users/me", alice, "", nil)
	require.Equal(t, http.StatusOK, res.status)
	var me map[string]any
	res.json(t, &me)
	assert.Equal(t, aliceID, me["id"])

	res = a.do(http.MethodGet, "/users/"+aliceID, bob, "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodGet, "/users/nope", bob, "", nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/users/00000000-0000-0000-0000-000000000000", bob, "", nil).status)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPatch, "/users/me", alice, "", map[string]any{"city": "Oslo", "score": 12}).status)
	res = a.do(http.MethodGet, "/users/me", alice, "", nil)
	res.json(t, &me)
	assert.Equal(t, "Oslo", me["city"])
	assert.Equal(t, 12.0, me["score"])

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPatch, "/users/me", alice, "", map[string]any{"username": "bob"}).status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPatch, "/users/me", alice, "", map[string]any{"id": "x"}).status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPatch, "/users/me", alice, "", map[string]any{"password": "bad"}).status)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/users/me", alice, "", nil).status)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/users/me", alice, "", nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/users/me", alice, "", nil).status)
}

func TestLeagueAccessOrder(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.signup("alice")

	res := a.do(http.MethodGet, "/leagues", "", "", nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, string(res.body))

	res = a.do(http.MethodGet, "/leagues", token, "other-app", nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = a.do(http.MethodGet, "/leagues", "", appKey, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.JSONEq(t, `{"error":"Unauthenticated user"}`, string(res.body))

	res = a.do(http.MethodGet, "/leagues/not-an-id", token, appKey, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	res = a.do(http.MethodGet, "/leagues/not-an-id", "", "", nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	metrics := a.do(http.MethodGet, "/metrics", "", "", nil)
	assert.Contains(t, string(metrics.body), `leagues_access_rejections_total{stage="app_key",status="403"} 3`)
}

func TestLeagueRoundTrip(t *testing.T) {
	a := newTestAPI(t)
	ownerID, owner := a.signup("owner")
	_, outsider := a.signup("outsider")

	leagueID := a.createLeague(owner, "Sunday League")

	res := a.do(http.MethodGet, "/leagues", owner, appKey, nil)
	require.Equal(t, http.StatusOK, res.status)
	var list []map[string]any
	res.json(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, leagueID, list[0]["id"])
	assert.Equal(t, []any{ownerID}, list[0]["admins"])
	assert.Equal(t, []any{}, list[0]["users"])
	assert.NotContains(t, list[0], "events")
	assert.NotContains(t, list[0], "appKey")

	res = a.do(http.MethodGet, "/leagues/"+leagueID, owner, appKey, nil)
	require.Equal(t, http.StatusOK, res.status)
	var detail map[string]any
	res.json(t, &detail)
	assert.Equal(t, []any{}, detail["events"])
	assert.NotContains(t, detail, "appKey")

	res = a.do(http.MethodGet, "/leagues", outsider, appKey, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `[]`, string(res.body))

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/leagues/"+leagueID, outsider, appKey, nil).status)

	res = a.do(http.MethodPost, "/leagues", owner, appKey, map[string]any{"name": "bad/name"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	res = a.do(http.MethodPost, "/leagues", owner, appKey, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
}

func TestLeagueAdministration(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.signup("owner")
	memberID, member := a.signup("member")
	leagueID := a.createLeague(owner, "Sunday League")
	base := "/leagues/" + leagueID

	res := a.do(http.MethodPost, base+"/users", owner, appKey, map[string]any{"userId": memberID})
	require.Equal(t, http.StatusNoContent, res.status, string(res.body))

	// a plain member cannot administer
	res = a.do(http.MethodPatch, base, member, appKey, map[string]any{"name": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, base, member, appKey, nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, base+"/admins", member, appKey, map[string]any{"userId": memberID}).status)

	// but can read
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, base, member, appKey, nil).status)

	res = a.do(http.MethodPatch, base, owner, appKey, map[string]any{"name": "Renamed", "appKey": "stolen", "color": "red"})
	assert.Equal(t, http.StatusNoContent, res.status)
	res = a.do(http.MethodPatch, base, owner, appKey, map[string]any{"name": "bad/name"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	var detail map[string]any
	a.do(http.MethodGet, base, owner, appKey, nil).json(t, &detail)
	assert.Equal(t, "Renamed", detail["name"])
	assert.Equal(t, "red", detail["color"])
	assert.Equal(t, []any{memberID}, detail["users"])

	res = a.do(http.MethodPost, base+"/admins", owner, appKey, map[string]any{"userId": "00000000-0000-0000-0000-000000000000"})
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.JSONEq(t, `{"error":"New admin ID does not exist"}`, string(res.body))
	res = a.do(http.MethodPost, base+"/admins", owner, appKey, map[string]any{"userId": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base+"/users", owner, appKey, map[string]any{"userId": memberID}).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, base, member, appKey, nil).status)

	// another app cannot see the league even with a valid token
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, base, owner, "other-app", nil).status)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base, owner, appKey, nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, base, owner, appKey, nil).status)
}

func TestEvents(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.signup("owner")
	_, outsider := a.signup("outsider")
	leagueID := a.createLeague(owner, "Sunday League")
	events := "/leagues/" + leagueID + "/events"

	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, events, owner, appKey, map[string]any{"id": "x"}).status)

	res := a.do(http.MethodPost, events, owner, appKey, map[string]any{"title": "kickoff", "round": 1})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var created map[string]string
	res.json(t, &created)
	eventURL := events + "/" + created["id"]

	var list []map[string]any
	a.do(http.MethodGet, events, owner, appKey, nil).json(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created["id"], list[0]["id"])
	assert.Equal(t, "kickoff", list[0]["title"])

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPatch, eventURL, owner, appKey, map[string]any{"venue": "park"}).status)
	res = a.do(http.MethodPatch, eventURL, owner, appKey, map[string]any{"venue": "park"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.JSONEq(t, `{"error":"Event not updated"}`, string(res.body))

	var event map[string]any
	a.do(http.MethodGet, eventURL, owner, appKey, nil).json(t, &event)
	assert.Equal(t, "park", event["venue"])
	assert.Equal(t, 1.0, event["round"])

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, eventURL, outsider, appKey, nil).status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodGet, events+"/nope", owner, appKey, nil).status)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, eventURL, owner, appKey, nil).status)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, eventURL, owner, appKey, nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, eventURL, owner, appKey, nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, eventURL, outsider, appKey, nil).status)
}

func TestConcurrentLeagueWrites(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.signup("owner")
	leagueID := a.createLeague(owner, "Sunday League")
	league := "/leagues/" + leagueID

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		ids[i], _ = a.signup(fmt.Sprintf("player%d", i))
	}

	type result struct {
		what   string
		status int
		body   string
		err    error
	}
	results := make(chan result, 3*n)
	var wg sync.WaitGroup
	send := func(what, method, path string, body any) {
		defer wg.Done()
		res, err := a.send(method, path, owner, appKey, body)
		results <- result{what: what, status: res.status, body: string(res.body), err: err}
	}
	for i := 0; i < n; i++ {
		wg.Add(3)
		go send("create event", http.MethodPost, league+"/events", map[string]any{"round": i})
		go send("patch league", http.MethodPatch, league, map[string]any{fmt.Sprintf("k%d", i): i})
		go send("add member", http.MethodPost, league+"/users", map[string]any{"userId": ids[i]})
	}
	wg.Wait()
	close(results)

	for r := range results {
		require.NoError(t, r.err, r.what)
		assert.Less(t, r.status, 300, "%s: %d %s", r.what, r.status, r.body)
	}

	var got map[string]any
	a.do(http.MethodGet, league, owner, appKey, nil).json(t, &got)
	assert.Len(t, got["events"], n)
	assert.Len(t, got["users"], n)
	for i := 0; i < n; i++ {
		assert.Contains(t, got, fmt.Sprintf("k%d", i))
	}
}

func TestLargeNumbersSurviveStorage(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.signup("owner")
	leagueID := a.createLeague(owner, "Sunday League")
	events := "/leagues/" + leagueID + "/events"

	res := a.do(http.MethodPost, events, owner, appKey, json.RawMessage(`{"n":9007199254740993}`))
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var created map[string]string
	res.json(t, &created)

	res = a.do(http.MethodGet, events+"/"+created["id"], owner, appKey, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), `"n":9007199254740993`)
}
