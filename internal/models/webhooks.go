package models

import "encoding/json"

// Webhook payloads posted by the backend. Fields are forwarded verbatim and
// are never type checked; an absent field stays nil and is sent as null.

// UpdateMessagesWebhook is the POST /webhook/update-messages payload.
type UpdateMessagesWebhook struct {
	Messages       json.RawMessage `json:"messages"`
	ConversationID json.RawMessage `json:"conversationId"`
}

// NewMessageWebhook is the POST /webhook/newMessage payload.
type NewMessageWebhook struct {
	Message        json.RawMessage `json:"message"`
	ConversationID json.RawMessage `json:"conversationId"`
}

// UpdateConversationsWebhook is the POST /webhook/update-conversations payload.
type UpdateConversationsWebhook struct {
	Conversations json.RawMessage `json:"conversations"`
}

// SendNotificationWebhook is the POST /webhook/send-notification payload.
type SendNotificationWebhook struct {
	Notification json.RawMessage `json:"notification"`
	UserEmail    json.RawMessage `json:"user_email"`
}
