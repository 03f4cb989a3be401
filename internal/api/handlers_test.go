// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rivalry/internal/aggregate"
	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/history"
	"github.com/tomtom215/rivalry/internal/leaderboard"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/presence"
	"github.com/tomtom215/rivalry/internal/service"
	"github.com/tomtom215/rivalry/internal/upstream"
)

// fakeService implements the handful of operations these tests touch. Any
// other call panics on the nil embedded interface.
type fakeService struct {
	service.Service

	lastKey string
}

func (f *fakeService) UserSummary(_ context.Context, apiKey, username string) (models.UserSummary, error) {
	f.lastKey = apiKey
	if apiKey == "" {
		return models.UserSummary{}, upstream.ErrMissingAPIKey
	}
	return models.UserSummary{Username: username, TotalPoints: 1200}, nil
}

func (f *fakeService) AddFriend(_ context.Context, apiKey, owner, friend string) (models.Friend, error) {
	if apiKey == "" {
		return models.Friend{}, upstream.ErrMissingAPIKey
	}
	switch friend {
	case "ghost":
		return models.Friend{}, fmt.Errorf("%w: ghost", service.ErrUserNotFound)
	case "flaky":
		return models.Friend{}, fmt.Errorf("%w: timeout", service.ErrCouldNotVerify)
	}
	return models.Friend{Owner: owner, Username: friend}, nil
}

func (f *fakeService) SnapshotDailyPointsForAllKnownUsers(_ context.Context, apiKey string, _ models.Mode) (int, error) {
	if apiKey == "" {
		return 0, upstream.ErrMissingAPIKey
	}
	return 3, nil
}

func (f *fakeService) BuildLeaderboard(_ context.Context, apiKey, _ string, _ models.Mode, _ leaderboard.PublishFunc) (*leaderboard.Build, error) {
	if apiKey == "" {
		return nil, upstream.ErrMissingAPIKey
	}
	return nil, errors.New("unexpected build")
}

type fakePoller struct {
	self string
	snap models.LeaderboardSnapshot
}

func (p *fakePoller) Self() string { return p.self }

func (p *fakePoller) Latest() (models.LeaderboardSnapshot, bool) { return p.snap, true }

func (p *fakePoller) Refresh(context.Context) (*leaderboard.Build, error) { return nil, nil }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeBreaker string

func (b fakeBreaker) State() string { return string(b) }

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func newTestRouter(t *testing.T, d Deps) (http.Handler, *fakeService) {
	t.Helper()
	svc, ok := d.Service.(*fakeService)
	if !ok {
		svc = &fakeService{}
		d.Service = svc
	}
	return NewRouter(NewHandler(d), nil).Setup(), svc
}

func do(t *testing.T, h http.Handler, method, target, body string, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, target, w.Body.String(), err)
	}
	return w, env
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing key", upstream.ErrMissingAPIKey, http.StatusUnauthorized, "API_KEY_REQUIRED"},
		{"friend not found", service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"could not verify", service.ErrCouldNotVerify, http.StatusBadGateway, "COULD_NOT_VERIFY"},
		{"self friend", service.ErrSelfFriend, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"username required", service.ErrUsernameRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"presence username", presence.ErrNoUsername, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid argument", fmt.Errorf("%w: bad month", aggregate.ErrInvalidArgument), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"upstream 404", &upstream.UpstreamError{Endpoint: "API_GetUserSummary", Status: 404}, http.StatusNotFound, "NOT_FOUND"},
		{"breaker open", upstream.ErrCircuitOpen, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"rate limited", upstream.ErrRateLimited, http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED"},
		{"bad shape", upstream.ErrUnexpectedShape, http.StatusBadGateway, "UPSTREAM_BAD_RESPONSE"},
		{"upstream 500", &upstream.UpstreamError{Endpoint: "API_GetUserSummary", Status: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestUserSummary_APIKeySources(t *testing.T) {
	tests := []struct {
		name       string
		defaultKey string
		target     string
		header     http.Header
		wantStatus int
		wantKey    string
	}{
		{"header wins", "cfg", "/api/v1/users/Amy/summary?key=q", http.Header{"X-Api-Key": {"hdr"}}, http.StatusOK, "hdr"},
		{"query", "cfg", "/api/v1/users/Amy/summary?key=q", nil, http.StatusOK, "q"},
		{"config fallback", "cfg", "/api/v1/users/Amy/summary", nil, http.StatusOK, "cfg"},
		{"no key", "", "/api/v1/users/Amy/summary", nil, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := newTestRouter(t, Deps{DefaultAPIKey: tt.defaultKey})
			w, env := do(t, router, http.MethodGet, tt.target, "", tt.header)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if svc.lastKey != tt.wantKey {
				t.Errorf("service saw key %q, want %q", svc.lastKey, tt.wantKey)
			}
			if tt.wantStatus == http.StatusOK && env.Status != "success" {
				t.Errorf("status field = %q", env.Status)
			}
		})
	}
}

func TestUserSummary_InvalidUsername(t *testing.T) {
	router, _ := newTestRouter(t, Deps{DefaultAPIKey: "k"})
	w, env := do(t, router, http.MethodGet, "/api/v1/users/bad$name/summary", "", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestAddFriend(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		body   string
		status int
	}{
		{"added", "k", `{"username":" Bob "}`, http.StatusOK},
		{"unknown user", "k", `{"username":"ghost"}`, http.StatusNotFound},
		{"verification failed", "k", `{"username":"flaky"}`, http.StatusBadGateway},
		{"no key", "", `{"username":"bob"}`, http.StatusUnauthorized},
		{"self", "k", `{"username":"me"}`, http.StatusBadRequest},
		{"blank", "k", `{"username":""}`, http.StatusBadRequest},
		{"not json", "k", `username=bob`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, Deps{DefaultAPIKey: tt.key})
			w, env := do(t, router, http.MethodPost, "/api/v1/users/Me/friends", tt.body, nil)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var friend models.Friend
			if err := json.Unmarshal(env.Data, &friend); err != nil {
				t.Fatalf("decode friend: %v", err)
			}
			if friend.Owner != "me" || friend.Username != "bob" {
				t.Errorf("friend = %+v, want me/bob", friend)
			}
		})
	}
}

func TestLeaderboard_ServesPollerSnapshot(t *testing.T) {
	p := &fakePoller{
		self: "me",
		snap: models.LeaderboardSnapshot{
			Self:       "me",
			Mode:       models.ModeHardcore,
			Wave:       3,
			Generation: 4,
			Version:    9,
			Rows:       []models.LeaderboardRow{{Username: "me"}},
		},
	}
	router, _ := newTestRouter(t, Deps{Poller: p, DefaultAPIKey: "k"})

	w, env := do(t, router, http.MethodGet, "/api/v1/leaderboard", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var snap models.LeaderboardSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Generation != 4 || snap.Version != 9 || len(snap.Rows) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	// A different mode needs an on-demand build, which needs a key.
	router, _ = newTestRouter(t, Deps{Poller: p})
	w, _ = do(t, router, http.MethodGet, "/api/v1/leaderboard?self=me&mode=all", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("on-demand status = %d, want 401", w.Code)
	}
}

func TestLeaderboard_RequiresSelfWithoutPoller(t *testing.T) {
	router, _ := newTestRouter(t, Deps{DefaultAPIKey: "k"})
	w, _ := do(t, router, http.MethodGet, "/api/v1/leaderboard", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLeaderboardHistory(t *testing.T) {
	store, err := history.Open(&config.HistoryConfig{InMemory: true})
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now().UTC()
	day := func(ago int) string { return now.AddDate(0, 0, -ago).Format("2006-01-02") }
	ctx := context.Background()
	for _, rec := range []struct {
		user   string
		ago    int
		points int
	}{
		{"me", 0, 40},
		{"me", 3, 25},
		{"me", 10, 99},
		{"bob", 1, 15},
	} {
		if err := store.Record(ctx, rec.user, models.ModeHardcore, day(rec.ago), rec.points); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	p := &fakePoller{self: "me", snap: models.LeaderboardSnapshot{
		Self: "me",
		Mode: models.ModeHardcore,
		Rows: []models.LeaderboardRow{{Username: "me"}, {Username: "bob"}},
	}}

	tests := []struct {
		name       string
		deps       Deps
		target     string
		wantStatus int
		want       models.DailyHistory
	}{
		{
			name:       "explicit usernames",
			deps:       Deps{History: store, Location: time.UTC},
			target:     "/api/v1/leaderboard/history?usernames=Me&days=7",
			wantStatus: http.StatusOK,
			want:       models.DailyHistory{"me": {day(0): 40, day(3): 25}},
		},
		{
			name:       "poller rows",
			deps:       Deps{History: store, Location: time.UTC, Poller: p},
			target:     "/api/v1/leaderboard/history?days=2",
			wantStatus: http.StatusOK,
			want:       models.DailyHistory{"me": {day(0): 40}, "bob": {day(1): 15}},
		},
		{
			name:       "window clamped to 30",
			deps:       Deps{History: store, Location: time.UTC},
			target:     "/api/v1/leaderboard/history?usernames=me&days=400",
			wantStatus: http.StatusOK,
			want:       models.DailyHistory{"me": {day(0): 40, day(3): 25, day(10): 99}},
		},
		{
			name:       "no usernames",
			deps:       Deps{History: store, Location: time.UTC},
			target:     "/api/v1/leaderboard/history",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad mode",
			deps:       Deps{History: store, Location: time.UTC},
			target:     "/api/v1/leaderboard/history?usernames=me&mode=softcore",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no store",
			deps:       Deps{},
			target:     "/api/v1/leaderboard/history?usernames=me",
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tt.deps)
			w, env := do(t, router, http.MethodGet, tt.target, "", nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.want == nil {
				return
			}
			var got models.DailyHistory
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("history = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPresence_HeartbeatAndList(t *testing.T) {
	router, _ := newTestRouter(t, Deps{Presence: presence.New(time.Minute)})

	w, env := do(t, router, http.MethodPost, "/api/v1/presence/heartbeat", `{"username":"Amy"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d (%s)", w.Code, w.Body.String())
	}
	var hb heartbeatResponse
	if err := json.Unmarshal(env.Data, &hb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hb.SessionID == "" || hb.TTLSeconds != 60 {
		t.Errorf("heartbeat = %+v", hb)
	}

	_, env = do(t, router, http.MethodGet, "/api/v1/presence", "", nil)
	var online map[string][]string
	if err := json.Unmarshal(env.Data, &online); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := online["online"]; len(got) != 1 || got[0] != "amy" {
		t.Errorf("online = %v, want [amy]", got)
	}

	_, env = do(t, router, http.MethodGet, "/api/v1/presence?usernames=amy,bob", "", nil)
	var status map[string]bool
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status["amy"] || status["bob"] {
		t.Errorf("status = %v", status)
	}

	w, _ = do(t, router, http.MethodDelete, "/api/v1/presence/amy/"+hb.SessionID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leave status = %d", w.Code)
	}
	_, env = do(t, router, http.MethodGet, "/api/v1/presence", "", nil)
	online = nil
	if err := json.Unmarshal(env.Data, &online); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(online["online"]) != 0 {
		t.Errorf("online after leave = %v", online["online"])
	}
}

func TestPresence_Disabled(t *testing.T) {
	router, _ := newTestRouter(t, Deps{})
	w, _ := do(t, router, http.MethodGet, "/api/v1/presence", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestTriggerSnapshot(t *testing.T) {
	router, _ := newTestRouter(t, Deps{DefaultAPIKey: "k"})

	w, env := do(t, router, http.MethodPost, "/api/v1/snapshot?mode=all", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var got snapshotResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mode != models.ModeAll || got.Recorded != 3 {
		t.Errorf("snapshot = %+v", got)
	}

	w, _ = do(t, router, http.MethodPost, "/api/v1/snapshot?mode=softcore", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		breaker    BreakerState
		wantStatus string
		readyCode  int
	}{
		{"healthy", fakePinger{}, fakeBreaker("closed"), "healthy", http.StatusOK},
		{"breaker open", fakePinger{}, fakeBreaker("open"), "degraded", http.StatusOK},
		{"db down", fakePinger{err: errors.New("closed")}, fakeBreaker("closed"), "degraded", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, Deps{DB: tt.db, Breaker: tt.breaker, Version: "1.2.3"})

			_, env := do(t, router, http.MethodGet, "/api/v1/health/", "", nil)
			var hs models.HealthStatus
			if err := json.Unmarshal(env.Data, &hs); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if hs.Status != tt.wantStatus || hs.Version != "1.2.3" {
				t.Errorf("health = %+v, want status %s", hs, tt.wantStatus)
			}

			w, _ := do(t, router, http.MethodGet, "/api/v1/health/ready", "", nil)
			if w.Code != tt.readyCode {
				t.Errorf("ready status = %d, want %d", w.Code, tt.readyCode)
			}
		})
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"listed", []string{"https://rivalry.example"}, "https://rivalry.example", true},
		{"unlisted", []string{"https://rivalry.example"}, "https://evil.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"missing origin", []string{"*"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Deps{Service: &fakeService{}, AllowedOrigins: tt.allowed})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d", w.Code)
	}
}
