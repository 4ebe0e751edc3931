package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/realtime-relay/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) PublishAll(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type fakeFetcher struct {
	body []byte
	err  error
}

func (f fakeFetcher) FetchData(context.Context) ([]byte, error) { return f.body, f.err }

type fixedCounter int

func (n fixedCounter) Len() int { return int(n) }

func newWebhookRouter(bus Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWebhookRoutes(r.Group("/webhook"), bus, zerolog.Nop())
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhooks_TranslateBodyToBroadcast(t *testing.T) {
	tests := []struct {
		path string
		body string
		want models.Event
	}{
		{
			path: "/webhook/update-messages",
			body: `{"messages":["hi"],"conversationId":"c1"}`,
			want: models.UpdatedMessages{Messages: json.RawMessage(`["hi"]`), ConversationID: json.RawMessage(`"c1"`)},
		},
		{
			path: "/webhook/newMessage",
			body: `{"message":{"text":"yo"},"conversationId":7}`,
			want: models.NewMessage{Message: json.RawMessage(`{"text":"yo"}`), ConversationID: json.RawMessage(`7`)},
		},
		{
			path: "/webhook/update-conversations",
			body: `{"conversations":[{"id":1}]}`,
			want: models.UpdatedConversations{Conversations: json.RawMessage(`[{"id":1}]`)},
		},
		{
			path: "/webhook/send-notification",
			body: `{"notification":"ping","user_email":"b@x.com"}`,
			want: models.Notification{Notification: json.RawMessage(`"ping"`), UserEmail: json.RawMessage(`"b@x.com"`)},
		},
		{
			path: "/webhook/refreshCalendar",
			body: `{}`,
			want: models.RefreshCalendar{},
		},
		{
			path: "/webhook/refreshConversations",
			body: ``,
			want: models.RefreshConversations{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bus := &recordingPublisher{}
			w := post(newWebhookRouter(bus), tt.path, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "Webhook received", w.Body.String())
			require.Len(t, bus.events, 1)
			assert.Equal(t, tt.want, bus.events[0])
		})
	}
}

func TestWebhooks_MissingFieldsAreForwardedAsNull(t *testing.T) {
	bus := &recordingPublisher{}
	w := post(newWebhookRouter(bus), "/webhook/update-messages", `{"messages":["hi"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, bus.events, 1)
	frame, err := models.Encode(bus.events[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"updatedMessages","args":[["hi"],null]}`, string(frame))
}

func TestWebhooks_MalformedBodyStillAcknowledged(t *testing.T) {
	bus := &recordingPublisher{}
	w := post(newWebhookRouter(bus), "/webhook/send-notification", `{"notification": "half`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Webhook received", w.Body.String())
	require.Len(t, bus.events, 1)
	assert.Equal(t, models.Notification{}, bus.events[0])
}

func TestWebhooks_DuplicatesAreBroadcastAgain(t *testing.T) {
	bus := &recordingPublisher{}
	r := newWebhookRouter(bus)

	post(r, "/webhook/update-conversations", `{"conversations":[]}`)
	post(r, "/webhook/update-conversations", `{"conversations":[]}`)

	assert.Len(t, bus.events, 2)
}

func TestProxy(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  fakeFetcher
		wantCode int
		wantBody string
	}{
		{"success", fakeFetcher{body: []byte(`{"word":"hello"}`)}, http.StatusOK, `{"word":"hello"}`},
		{"failure", fakeFetcher{err: errors.New("dial tcp: connection refused")}, http.StatusInternalServerError, "Error fetching data from Symfony"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			RegisterProxyRoutes(r, tt.fetcher, zerolog.Nop())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/symfony-data", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHealthRoutes(r, fixedCounter(3))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","connections":3}`, w.Body.String())
}
