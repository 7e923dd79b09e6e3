package domain

const (
	EventNameReplyReady = "reply.ready"
)

// EventReplyReady is published once a turn has produced the messages to send back to a chat.
type EventReplyReady struct {
	ChatID   string
	Segments []string
}

func (EventReplyReady) Name() string { return EventNameReplyReady }
