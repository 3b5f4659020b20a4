package model

import "time"

type Message struct {
	ID         int64     `json:"id"`
	FromUserID int64     `json:"fromUserId"`
	ToUserID   int64     `json:"toUserId"`
	Content    string    `json:"content"`
	ReplyToID  *int64    `json:"replyToId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Between reports whether the message belongs to the unordered pair (a, b).
func (m Message) Between(a, b int64) bool {
	return (m.FromUserID == a && m.ToUserID == b) || (m.FromUserID == b && m.ToUserID == a)
}

// Involves reports whether userID sent or received the message.
func (m Message) Involves(userID int64) bool {
	return m.FromUserID == userID || m.ToUserID == userID
}

// Chat is one entry of a user's conversation list.
type Chat struct {
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	LastMessage string    `json:"lastMessage"`
	LastAt      time.Time `json:"lastAt"`
}

// Thread returns the conversation between a and b in store order.
func Thread(messages []Message, a, b int64) []Message {
	var out []Message
	for _, m := range messages {
		if m.Between(a, b) {
			out = append(out, m)
		}
	}
	return out
}

// MessagesFor returns every message userID sent or received.
func MessagesFor(messages []Message, userID int64) []Message {
	var out []Message
	for _, m := range messages {
		if m.Involves(userID) {
			out = append(out, m)
		}
	}
	return out
}

// BuildChats derives the chat list of self: one entry per counterpart, in
// order of first contact, carrying the last message in store order.
// Counterparts that no longer exist are skipped.
func BuildChats(self int64, messages []Message, users []User) []Chat {
	index := make(map[int64]int)
	var chats []Chat
	for _, m := range messages {
		if !m.Involves(self) {
			continue
		}
		other := m.FromUserID
		if other == self {
			other = m.ToUserID
		}
		u := FindUser(users, other)
		if u == nil {
			continue
		}
		chat := Chat{UserID: other, Username: u.Username, LastMessage: m.Content, LastAt: m.CreatedAt}
		if i, ok := index[other]; ok {
			chats[i] = chat
			continue
		}
		index[other] = len(chats)
		chats = append(chats, chat)
	}
	return chats
}

// NewSince returns messages addressed to self whose id is not in known.
func NewSince(messages []Message, self int64, known map[int64]struct{}) []Message {
	var out []Message
	for _, m := range messages {
		if m.ToUserID != self {
			continue
		}
		if _, ok := known[m.ID]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}
