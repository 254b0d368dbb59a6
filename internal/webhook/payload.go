package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aniladanir/webhook-inbox/internal/domain"
)

// Payload is the body of a provider webhook delivery.
type Payload struct {
	Object  string  `json:"object"`
	Entries []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value *Value `json:"value"`
}

// Value carries the items of one change. Messages and statuses stay undecoded until
// they are processed so that one broken item cannot reject the whole delivery.
type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         *Metadata         `json:"metadata,omitempty"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []json.RawMessage `json:"messages,omitempty"`
	Statuses         []json.RawMessage `json:"statuses,omitempty"`
}

// UnmarshalJSON drops metadata and contact cards that do not decode. They only enrich
// messages and are never required.
func (v *Value) UnmarshalJSON(data []byte) error {
	type plain Value
	var p struct {
		plain
		Metadata json.RawMessage   `json:"metadata,omitempty"`
		Contacts []json.RawMessage `json:"contacts,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Value(p.plain)
	v.Metadata, v.Contacts = nil, nil

	if len(p.Metadata) > 0 {
		var md Metadata
		if err := json.Unmarshal(p.Metadata, &md); err == nil {
			v.Metadata = &md
		}
	}
	for _, raw := range p.Contacts {
		var c Contact
		if err := json.Unmarshal(raw, &c); err == nil {
			v.Contacts = append(v.Contacts, c)
		}
	}
	return nil
}

// Metadata describes the business account that received the change.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// RawMessage is a provider message object. Raw keeps the original bytes so that
// messages of unsupported kinds can be stored as they arrived.
type RawMessage struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"`
	Timestamp EpochSeconds    `json:"timestamp"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Context   *MessageContext `json:"context,omitempty"`

	Text     *RawText     `json:"text,omitempty"`
	Image    *RawMedia    `json:"image,omitempty"`
	Audio    *RawMedia    `json:"audio,omitempty"`
	Video    *RawMedia    `json:"video,omitempty"`
	Document *RawMedia    `json:"document,omitempty"`
	Sticker  *RawMedia    `json:"sticker,omitempty"`
	Location *RawLocation `json:"location,omitempty"`
	Contact  *RawContact  `json:"contact,omitempty"`
	Contacts []RawContact `json:"contacts,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (m *RawMessage) UnmarshalJSON(data []byte) error {
	type plain RawMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = RawMessage(p)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MessageContext is reply-context metadata. Its sender is either a bare address or
// an object carrying a display name.
type MessageContext struct {
	ID   string         `json:"id,omitempty"`
	From *ContextSender `json:"from,omitempty"`
}

type ContextSender struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

func (c *ContextSender) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		return json.Unmarshal(data, &c.Address)
	}
	type plain ContextSender
	return json.Unmarshal(data, (*plain)(c))
}

type RawText struct {
	Body string `json:"body"`
}

type RawMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

type RawLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type RawContact struct {
	Name struct {
		FormattedName string `json:"formatted_name"`
		FirstName     string `json:"first_name,omitempty"`
		LastName      string `json:"last_name,omitempty"`
	} `json:"name"`
	Phones []struct {
		Phone string `json:"phone"`
		Type  string `json:"type,omitempty"`
	} `json:"phones,omitempty"`
	Emails []struct {
		Email string `json:"email"`
		Type  string `json:"type,omitempty"`
	} `json:"emails,omitempty"`
}

// RawStatus is a provider delivery/read receipt for a previously sent message.
type RawStatus struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Timestamp   EpochSeconds `json:"timestamp"`
	RecipientID string       `json:"recipient_id,omitempty"`
}

// EpochSeconds accepts both numeric and quoted-numeric unix timestamps.
type EpochSeconds int64

func (e *EpochSeconds) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch timestamp %q: %w", data, err)
	}
	*e = EpochSeconds(v)
	return nil
}

// MessageItem is one message of a payload together with where it was found.
type MessageItem struct {
	EntryID string
	Change  int
	Value   *Value
	Raw     json.RawMessage
}

// ID returns the message id when the item carries one, even if the rest of it is broken.
func (it MessageItem) ID() string {
	return peekID(it.Raw)
}

// Decode parses the message object. Errors wrap domain.ErrMalformedPayload.
func (it MessageItem) Decode() (RawMessage, error) {
	var m RawMessage
	if err := json.Unmarshal(it.Raw, &m); err != nil {
		return RawMessage{}, fmt.Errorf("%w: message %q: %v", domain.ErrMalformedPayload, it.ID(), err)
	}
	return m, nil
}

type StatusItem struct {
	EntryID string
	Change  int
	Raw     json.RawMessage
}

func (it StatusItem) ID() string {
	return peekID(it.Raw)
}

// Decode parses the status object. Errors wrap domain.ErrMalformedPayload.
func (it StatusItem) Decode() (RawStatus, error) {
	var s RawStatus
	if err := json.Unmarshal(it.Raw, &s); err != nil {
		return RawStatus{}, fmt.Errorf("%w: status %q: %v", domain.ErrMalformedPayload, it.ID(), err)
	}
	return s, nil
}

func peekID(data json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(data, &v)
	return v.ID
}

// Items flattens every entry and change of the payload. Changes without a value,
// messages or statuses contribute nothing.
func (p *Payload) Items() ([]MessageItem, []StatusItem) {
	var (
		messages []MessageItem
		statuses []StatusItem
	)
	for _, entry := range p.Entries {
		for i, change := range entry.Changes {
			if change.Value == nil {
				continue
			}
			for _, m := range change.Value.Messages {
				messages = append(messages, MessageItem{EntryID: entry.ID, Change: i, Value: change.Value, Raw: m})
			}
			for _, s := range change.Value.Statuses {
				statuses = append(statuses, StatusItem{EntryID: entry.ID, Change: i, Raw: s})
			}
		}
	}
	return messages, statuses
}
