package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/realtime-relay/internal/models"
)

type presenceCall struct {
	online    bool
	client    *Client
	userEmail string
	authToken string
}

type fakePresence struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (f *fakePresence) GoOnline(_ context.Context, c *Client, email, token string) {
	f.record(presenceCall{online: true, client: c, userEmail: email, authToken: token})
}

func (f *fakePresence) GoOffline(_ context.Context, c *Client, email, token string) {
	f.record(presenceCall{online: false, client: c, userEmail: email, authToken: token})
}

func (f *fakePresence) record(c presenceCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakePresence) snapshot() []presenceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]presenceCall(nil), f.calls...)
}

type testFixture struct {
	registry *Registry
	presence *fakePresence
	server   *Server
	ws       *httptest.Server
}

func setup(t *testing.T) *testFixture {
	t.Helper()

	registry := NewRegistry(16, zerolog.Nop())
	presence := &fakePresence{}
	server := NewServer(registry, presence, nil, zerolog.Nop())

	ws := httptest.NewServer(server)
	t.Cleanup(ws.Close)

	return &testFixture{registry: registry, presence: presence, server: server, ws: ws}
}

func (fx *testFixture) connect(t *testing.T) *websocket.Conn {
	t.Helper()
	before := fx.registry.Len()

	wsURL := "ws" + strings.TrimPrefix(fx.ws.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return fx.registry.Len() == before+1
	}, 2*time.Second, 10*time.Millisecond, "client was not registered")
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestServer_MessageIsRebroadcastToAll(t *testing.T) {
	fx := setup(t)
	a := fx.connect(t)
	b := fx.connect(t)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","args":["hello"]}`)))

	want := `{"event":"message","args":["hello"]}`
	assert.JSONEq(t, want, readFrame(t, a))
	assert.JSONEq(t, want, readFrame(t, b))
}

func TestServer_PresenceEventsReachHandler(t *testing.T) {
	fx := setup(t)
	conn := fx.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"userOnline","args":["a@x.com","tok"]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"userOffline","args":["a@x.com"]}`)))

	require.Eventually(t, func() bool {
		return len(fx.presence.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	fx.server.Wait()

	calls := fx.presence.snapshot()
	var online, offline presenceCall
	for _, c := range calls {
		if c.online {
			online = c
		} else {
			offline = c
		}
	}
	assert.Equal(t, "a@x.com", online.userEmail)
	assert.Equal(t, "tok", online.authToken)
	assert.NotNil(t, online.client)
	assert.Equal(t, "a@x.com", offline.userEmail)
	assert.Equal(t, "", offline.authToken, "missing argument is empty")
}

func TestServer_PresenceIgnoredAfterWait(t *testing.T) {
	fx := setup(t)
	conn := fx.connect(t)

	fx.server.Wait()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"userOnline","args":["a@x.com","tok"]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","args":["still here"]}`)))

	// Frames are dispatched in order, so the echo means userOnline was handled.
	assert.JSONEq(t, `{"event":"message","args":["still here"]}`, readFrame(t, conn))
	assert.Empty(t, fx.presence.snapshot())
	fx.server.Wait()
}

func TestServer_UnknownAndInvalidFramesAreIgnored(t *testing.T) {
	fx := setup(t)
	conn := fx.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"somethingElse"}`)))

	fx.registry.PublishAll(models.RefreshCalendar{})
	assert.JSONEq(t, `{"event":"refreshCalendar","args":[]}`, readFrame(t, conn))
	assert.Empty(t, fx.presence.snapshot())
	assert.Equal(t, 1, fx.registry.Len())
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	fx := setup(t)
	conn := fx.connect(t)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return fx.registry.Len() == 0
	}, 2*time.Second, 10*time.Millisecond, "client was not unregistered")
}

func TestServer_RegistryCloseClosesSocket(t *testing.T) {
	fx := setup(t)
	conn := fx.connect(t)

	fx.registry.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
