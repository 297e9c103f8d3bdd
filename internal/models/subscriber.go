package models

import "time"

// Subscriber is an external recipient identity owned by the persistence
// layer. The signal core only reads it to build the broadcast set.
type Subscriber struct {
	ID                 string    `json:"id"`
	TelegramChatID     *string   `json:"telegram_chat_id"`
	NotifyEnabled      bool      `json:"notify_enabled"`
	SubscriptionActive bool      `json:"subscription_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasMessagingLinked reports whether the subscriber can be reached over
// the messaging transport at all.
func (s Subscriber) HasMessagingLinked() bool {
	return s.TelegramChatID != nil && *s.TelegramChatID != ""
}
