package domain

type EventType string

const (
	EventMessageCreated EventType = "message-created"
	EventStatusChanged  EventType = "status-changed"
)

// Event is a notification scoped to one conversation. Events are snapshots and are never mutated after publish.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	Message        *Message  `json:"message,omitempty"`
	TargetID       string    `json:"targetId,omitempty"`
	MessageID      string    `json:"messageId,omitempty"`
	Status         Status    `json:"status,omitempty"`
}

func NewMessageCreated(msg Message) Event {
	snapshot := msg.Clone()
	return Event{
		Type:           EventMessageCreated,
		ConversationID: msg.ConversationID,
		Message:        &snapshot,
	}
}

// NewStatusChanged builds a status event. targetID is the identity the update was
// addressed with; messageID is the resolved Message.ID.
func NewStatusChanged(conversationID, targetID, messageID string, status Status) Event {
	return Event{
		Type:           EventStatusChanged,
		ConversationID: conversationID,
		TargetID:       targetID,
		MessageID:      messageID,
		Status:         status,
	}
}
