package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_NoArgsIsEmptyArray(t *testing.T) {
	b, err := Encode(RefreshConversations{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"refreshConversations","args":[]}`, string(b))
}

func TestEncode_AbsentWebhookFieldsBecomeNull(t *testing.T) {
	b, err := Encode(UpdatedMessages{Messages: json.RawMessage(`["hi"]`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"updatedMessages","args":[["hi"],null]}`, string(b))
}

func TestEncode_PresenceReplies(t *testing.T) {
	tests := []struct {
		name string
		in   Event
		want string
	}{
		{
			name: "online success",
			in:   PresenceSuccess{Online: true, UserEmail: "a@x.com", Timestamp: "2026-01-01T00:00:00.000Z"},
			want: `{"event":"userOnlineSuccess","args":[{"userEmail":"a@x.com","timestamp":"2026-01-01T00:00:00.000Z"}]}`,
		},
		{
			name: "offline status error has no type",
			in:   PresenceError{UserEmail: "a@x.com", Error: "Unexpected status: 401"},
			want: `{"event":"userOfflineError","args":[{"userEmail":"a@x.com","error":"Unexpected status: 401"}]}`,
		},
		{
			name: "online network error",
			in:   PresenceError{Online: true, UserEmail: "a@x.com", Error: "timeout", Type: "network"},
			want: `{"event":"userOnlineError","args":[{"userEmail":"a@x.com","error":"timeout","type":"network"}]}`,
		},
		{
			name: "validation error",
			in:   Error{Type: "validation", Message: "userEmail and authToken are required"},
			want: `{"event":"error","args":[{"type":"validation","message":"userEmail and authToken are required"}]}`,
		},
		{
			name: "notification",
			in:   Notification{Notification: json.RawMessage(`{"id":3}`), UserEmail: json.RawMessage(`"b@x.com"`)},
			want: `{"event":"getNotification","args":[{"id":3},"b@x.com"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestDecode_StringArgs(t *testing.T) {
	f, err := Decode([]byte(`{"event":"userOnline","args":["a@x.com",42]}`))
	require.NoError(t, err)

	assert.Equal(t, EventUserOnline, f.Event)
	assert.Equal(t, "a@x.com", f.StringArg(0))
	assert.Equal(t, "", f.StringArg(1), "non-string argument")
	assert.Equal(t, "", f.StringArg(2), "missing argument")
	assert.Nil(t, f.Arg(5))
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}
