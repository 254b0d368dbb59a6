package domain

import (
	"encoding/json"
	"slices"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// UnknownSender is the display name used when reply-context metadata carries no name.
const UnknownSender = "Unknown"

// Profile is best-effort identity metadata about the sender of a message.
type Profile struct {
	DisplayName string `json:"displayName"`
	Identity    string `json:"identity"`
}

// Known reports whether the profile carries a real display name.
func (p *Profile) Known() bool {
	return p != nil && p.DisplayName != "" && p.DisplayName != UnknownSender
}

// Message is the canonical stored record of a webhook or outbound message.
// Seq is assigned by the store on insert and reflects insertion order.
type Message struct {
	Seq            int64          `gorm:"primaryKey;autoIncrement" json:"-"`
	ID             string         `gorm:"type:varchar(128);uniqueIndex;not null" json:"id"`
	CorrelationID  string         `gorm:"type:varchar(128);index;not null" json:"correlationId"`
	ConversationID string         `gorm:"type:varchar(64);index:idx_conversation_occurred,priority:1;not null" json:"conversationId"`
	Direction      Direction      `gorm:"type:varchar(8);not null" json:"direction"`
	Sender         string         `gorm:"type:varchar(64);not null" json:"sender"`
	Recipient      string         `gorm:"type:varchar(64);not null" json:"recipient"`
	OccurredAt     time.Time      `gorm:"index:idx_conversation_occurred,priority:2;not null" json:"occurredAt"`
	Kind           Kind           `gorm:"type:varchar(16);not null" json:"kind"`
	Payload        Payload        `gorm:"-" json:"payload"`
	PayloadData    datatypes.JSON `gorm:"column:payload" json:"-"`
	Status         Status         `gorm:"type:varchar(16);not null;default:sent" json:"status"`
	SenderProfile  *Profile       `gorm:"serializer:json" json:"senderProfile,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// BeforeCreate encodes the payload variant into its JSON column. Messages of an
// unsupported kind keep whatever raw data the normalizer attached.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.Payload == nil {
		return nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	m.PayloadData = datatypes.JSON(data)
	return nil
}

// AfterFind restores the payload variant selected by Kind.
func (m *Message) AfterFind(tx *gorm.DB) error {
	payload, err := DecodePayload(m.Kind, m.PayloadData)
	if err != nil {
		return err
	}
	m.Payload = payload
	return nil
}

// Clone returns a deep copy so callers can hand the message out as an immutable snapshot.
func (m Message) Clone() Message {
	if m.SenderProfile != nil {
		p := *m.SenderProfile
		m.SenderProfile = &p
	}
	if c, ok := m.Payload.(Contact); ok {
		c.Phones = slices.Clone(c.Phones)
		c.Emails = slices.Clone(c.Emails)
		m.Payload = c
	}
	m.PayloadData = slices.Clone(m.PayloadData)
	return m
}

// ConversationSummary is a derived view over all messages sharing a ConversationID.
type ConversationSummary struct {
	ConversationID     string   `json:"conversationId"`
	LastMessage        Message  `json:"lastMessage"`
	MessageCount       int      `json:"messageCount"`
	ParticipantProfile *Profile `json:"participantProfile,omitempty"`
}
