package room

// maxChatHistory bounds the per-room message log.
const maxChatHistory = 100

// ChatMessage is one delivered room message, annotated by the server.
type ChatMessage struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
	ChatType   string `json:"chatType"` // public | private
	Timestamp  int64  `json:"timestamp"`
}

// AddChat appends a message, evicting the oldest beyond the cap.
func (r *Room) AddChat(msg ChatMessage) {
	r.Chat = append(r.Chat, msg)
	if len(r.Chat) > maxChatHistory {
		r.Chat = r.Chat[len(r.Chat)-maxChatHistory:]
	}
}

// RecentPublicChat returns the public messages in order. Private
// messages are only ever delivered live to the two players.
func (r *Room) RecentPublicChat() []ChatMessage {
	out := make([]ChatMessage, 0, len(r.Chat))
	for _, m := range r.Chat {
		if m.ChatType == "public" {
			out = append(out, m)
		}
	}
	return out
}
