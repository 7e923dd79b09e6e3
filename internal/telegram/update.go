package telegram

import "strconv"

// Update is the subset of a Telegram Bot API update the bot reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// ChatID is the chat the message came from. Users are keyed by it.
func (m *Message) ChatID() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

func (m *Message) DisplayName() string {
	if m.From == nil {
		return ""
	}
	if m.From.LastName == "" {
		return m.From.FirstName
	}

	return m.From.FirstName + " " + m.From.LastName
}

func (m *Message) Handle() string {
	if m.From == nil {
		return ""
	}

	return m.From.Username
}
