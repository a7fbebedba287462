package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoroute/auth"
	"motoroute/db/mem"
	"motoroute/mq/goch"
	"motoroute/mq/mq"
	"motoroute/route/offline"
	"motoroute/waypoint"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// signalingQueue reports each subscription, so tests publish only once a
// websocket stream is listening.
type signalingQueue struct {
	mq.TripEventQueue
	subscribed chan struct{}
}

func (q *signalingQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripEvent, error) {
	id, ch, err := q.TripEventQueue.Subscribe(tripID)
	q.subscribed <- struct{}{}
	return id, ch, err
}

type stubGoogle struct{}

func (stubGoogle) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	if token != "good" {
		return nil, &auth.Error{Code: auth.CodeInvalidCredentials}
	}
	return &auth.Identity{UserID: "google:1", Email: "g@example.com", DisplayName: "G", Provider: auth.ProviderGoogle}, nil
}

func newTestServer(t *testing.T) (*Server, *signalingQueue) {
	t.Helper()
	queue := &signalingQueue{TripEventQueue: goch.NewGoChanTripEventQueue(16), subscribed: make(chan struct{}, 4)}
	t.Cleanup(func() { _ = queue.Close() })
	s := NewServer(ServiceConfig{
		IsDev:        true,
		Port:         "0",
		ShareBaseURL: "https://moto.example.com",
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
	}, Deps{
		Store:  mem.NewInMemoryDBWrapper(),
		Queue:  queue,
		Router: offline.NewRouter(),
		Google: stubGoogle{},
	})
	t.Cleanup(s.sessions.CloseAll)
	return s, queue
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func signUp(t *testing.T, s *Server, email string) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/auth/signup", "", auth.SignUpInput{
		Email: email, Password: "hunter22", ConfirmPassword: "hunter22", DisplayName: "Rider",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionResponse](t, w).Token
}

func twoWaypoints() []waypoint.Waypoint {
	return []waypoint.Waypoint{
		{ID: "a", Position: waypoint.Position{Lat: 30.0, Lng: -90.0}, Address: "New Orleans"},
		{ID: "b", Position: waypoint.Position{Lat: 30.5, Lng: -90.5}, Address: "Hammond"},
	}
}

func createTrip(t *testing.T, s *Server, token, name string) tripResponse {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/trips", token, tripRequest{Name: name, Waypoints: twoWaypoints()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[tripResponse](t, w)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s, _ := newTestServer(t)
	token := signUp(t, s, "rider@example.com")

	w := do(t, s, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[profileResponse](t, w)
	assert.Equal(t, "rider@example.com", me.Email)
	assert.True(t, me.Settings.AvoidHighways)

	w = do(t, s, http.MethodPost, "/api/auth/signin", "", signInRequest{Email: "rider@example.com", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect password", decode[errorResponse](t, w).Error)

	w = do(t, s, http.MethodPost, "/api/auth/signup", "", auth.SignUpInput{
		Email: "rider@example.com", Password: "hunter22", ConfirmPassword: "hunter22", DisplayName: "Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/api/auth/signup", "", auth.SignUpInput{
		Email: "x@example.com", Password: "hunter22", ConfirmPassword: "hunter23", DisplayName: "X",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", decode[errorResponse](t, w).Error)

	w = do(t, s, http.MethodPost, "/api/auth/google", "", googleSignInRequest{IDToken: "good"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/auth/signout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/api/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTripCRUD(t *testing.T) {
	s, _ := newTestServer(t)
	alice := signUp(t, s, "alice@example.com")
	bob := signUp(t, s, "bob@example.com")

	created := createTrip(t, s, alice, "  Northshore  ")
	assert.Equal(t, "Northshore", created.Name)
	require.NotNil(t, created.Metrics)
	assert.Equal(t, 1, created.Metrics.Legs)
	assert.False(t, created.IsShared)

	w := do(t, s, http.MethodGet, "/api/trips", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]tripResponse](t, w), 1)

	path := "/api/trips/" + created.ID
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, path, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/trips/not-a-uuid", alice, nil).Code)

	name := "Renamed"
	w = do(t, s, http.MethodPut, path, alice, tripPatchRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[tripResponse](t, w)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	long := strings.Repeat("x", 101)
	w = do(t, s, http.MethodPut, path, alice, tripPatchRequest{Name: &long})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode[errorResponse](t, w).Field)

	w = do(t, s, http.MethodPost, "/api/trips", alice, tripRequest{Name: "Lonely", Waypoints: twoWaypoints()[:1]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, path, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, path, alice, nil).Code)
}

func TestSharingFlow(t *testing.T) {
	s, _ := newTestServer(t)
	alice := signUp(t, s, "alice@example.com")
	bob := signUp(t, s, "bob@example.com")
	created := createTrip(t, s, alice, "Swamp Tour")

	w := do(t, s, http.MethodPost, "/api/trips/"+created.ID+"/share", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	shared := decode[shareResponse](t, w)
	assert.Equal(t, "https://moto.example.com/shared/"+shared.Token, shared.URL)

	w = do(t, s, http.MethodGet, "/api/shared/"+shared.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[tripResponse](t, w)
	assert.Equal(t, "Swamp Tour", public.Name)
	assert.Empty(t, public.OwnerID)

	w = do(t, s, http.MethodPost, "/api/shared/resolve", "", resolveRequest{Tokens: []string{shared.Token, "missing"}})
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[map[string]*tripResponse](t, w)
	require.NotNil(t, resolved[shared.Token])
	assert.Equal(t, created.ID, resolved[shared.Token].ID)
	assert.Nil(t, resolved["missing"])

	w = do(t, s, http.MethodPost, "/api/shared/"+shared.Token+"/copy", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	copied := decode[tripResponse](t, w)
	assert.Equal(t, "Swamp Tour (Copy)", copied.Name)
	assert.NotEqual(t, created.ID, copied.ID)
	assert.False(t, copied.IsShared)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/trips/"+created.ID+"/share", alice, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/trips/"+created.ID+"/share", alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/shared/"+shared.Token, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/shared/"+shared.Token+"/copy", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/trips/"+created.ID+"/share", bob, nil).Code)
}

func TestRouteEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/route", "", routeRequest{Waypoints: twoWaypoints()[:1]})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/route", "", routeRequest{Waypoints: twoWaypoints(), AvoidHighways: true})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[routeResponse](t, w)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 1, resp.Summary.LegCount)
	assert.Greater(t, resp.Summary.TotalDistanceMeters, 0)
}

func TestEditorSession(t *testing.T) {
	s, _ := newTestServer(t)
	token := signUp(t, s, "rider@example.com")

	for _, wp := range twoWaypoints() {
		w := do(t, s, http.MethodPost, "/api/session/waypoints", token, addWaypointRequest{Position: wp.Position, Address: wp.Address})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(t, s, http.MethodGet, "/api/session?wait=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[editorStateResponse](t, w)
	require.Len(t, state.Waypoints, 2)
	require.NotNil(t, state.Route.Summary)
	assert.Equal(t, 1, state.Route.Summary.LegCount)
	assert.True(t, state.AvoidHighways)

	w = do(t, s, http.MethodPost, "/api/session/save", token, saveRequest{Name: "Session trip"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state = decode[editorStateResponse](t, w)
	require.NotNil(t, state.CurrentTrip)
	assert.Len(t, state.SavedTrips, 1)

	w = do(t, s, http.MethodPost, "/api/session/new", token, nil)
	state = decode[editorStateResponse](t, w)
	assert.Nil(t, state.CurrentTrip)
	assert.Empty(t, state.Waypoints)

	w = do(t, s, http.MethodPost, "/api/session/load/"+state.SavedTrips[0].ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state = decode[editorStateResponse](t, w)
	assert.Len(t, state.Waypoints, 2)

	w = do(t, s, http.MethodDelete, "/api/session/trips/"+state.SavedTrips[0].ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state = decode[editorStateResponse](t, w)
	assert.Empty(t, state.SavedTrips)
	assert.Nil(t, state.CurrentTrip)

	w = do(t, s, http.MethodPost, "/api/session/waypoints", token, addWaypointRequest{Position: waypoint.Position{Lat: 95}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSharedEventsStream(t *testing.T) {
	s, queue := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	alice := signUp(t, s, "alice@example.com")
	created := createTrip(t, s, alice, "Live")
	w := do(t, s, http.MethodPost, "/api/trips/"+created.ID+"/share", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[shareResponse](t, w).Token

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/shared/" + token + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-queue.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never subscribed")
	}

	name := "Live (edited)"
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/api/trips/"+created.ID, alice, tripPatchRequest{Name: &name}).Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg tripEventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "update", msg.Action)
	assert.Contains(t, msg.ChangedFields, "Name")

	require.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/trips/"+created.ID+"/share", alice, nil).Code)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "unshare", msg.Action)
	assert.False(t, msg.IsShared)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "%v", err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}
