// gateway/gateway.go
package gateway

import (
	"strings"
	"sync"
)

// Kind is how the chat gateway should deliver a message.
type Kind string

const (
	KindReply  Kind = "reply"  // reply to the triggering message
	KindText   Kind = "text"   // plain message to a chat
	KindSilent Kind = "silent" // message without a notification
	KindPhoto  Kind = "photo"  // image with caption
)

// ChatKind distinguishes direct conversations from group chats.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

// Update is one inbound chat command as posted by the gateway.
type Update struct {
	UpdateID   int64    `json:"update_id"`
	ChatID     int64    `json:"chat_id"`
	ChatKind   ChatKind `json:"chat_kind"`
	SenderID   int64    `json:"sender_id"`
	SenderName string   `json:"sender_name"`
	Text       string   `json:"text"`
}

// Group reports whether the update came from a group chat. Anything that is
// not explicitly private counts as a group (supergroups, channels).
func (u Update) Group() bool {
	return u.ChatKind != "" && !strings.EqualFold(string(u.ChatKind), string(ChatPrivate))
}

// Message is one outbound message returned to the gateway.
type Message struct {
	Kind      Kind   `json:"kind"`
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	PhotoPath string `json:"photo_path,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// Sender is the messaging surface command handlers write to.
type Sender interface {
	Reply(text string)
	Send(chatID int64, text string)
	SendSilent(chatID int64, text string)
	SendPhoto(chatID int64, path, url, caption string)
}

// Outbox collects messages for one update; the webhook returns them as the
// response body.
type Outbox struct {
	mu       sync.Mutex
	chatID   int64
	messages []Message
}

func NewOutbox(chatID int64) *Outbox {
	return &Outbox{chatID: chatID}
}

func (o *Outbox) add(m Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, m)
}

func (o *Outbox) Reply(text string) {
	o.add(Message{Kind: KindReply, ChatID: o.chatID, Text: text})
}

func (o *Outbox) Send(chatID int64, text string) {
	o.add(Message{Kind: KindText, ChatID: chatID, Text: text})
}

func (o *Outbox) SendSilent(chatID int64, text string) {
	o.add(Message{Kind: KindSilent, ChatID: chatID, Text: text})
}

func (o *Outbox) SendPhoto(chatID int64, path, url, caption string) {
	o.add(Message{Kind: KindPhoto, ChatID: chatID, Text: caption, PhotoPath: path, PhotoURL: url})
}

// Messages returns a copy of everything queued so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}
