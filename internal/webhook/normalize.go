package webhook

import (
	"fmt"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/domain"
	"gorm.io/datatypes"
)

const unknownRecipient = "unknown"

// StatusUpdate is a normalized status event addressed to a message by id or correlation id.
type StatusUpdate struct {
	TargetID    string
	Status      domain.Status
	RecipientID string
	OccurredAt  time.Time
}

// NormalizeMessage maps a raw provider message into the canonical model. value may be nil.
// A message of an unsupported kind is returned without payload; callers detect it with
// Kind.Supported. Only structural problems produce an error, always wrapping ErrMalformedPayload.
func NormalizeMessage(raw RawMessage, value *Value) (domain.Message, error) {
	if raw.ID == "" {
		return domain.Message{}, fmt.Errorf("%w: message without id", domain.ErrMalformedPayload)
	}
	if raw.From == "" {
		return domain.Message{}, fmt.Errorf("%w: message %s without sender", domain.ErrMalformedPayload, raw.ID)
	}
	if raw.Timestamp <= 0 {
		return domain.Message{}, fmt.Errorf("%w: message %s without timestamp", domain.ErrMalformedPayload, raw.ID)
	}
	if raw.Type == "" {
		return domain.Message{}, fmt.Errorf("%w: message %s without type", domain.ErrMalformedPayload, raw.ID)
	}

	business := ""
	if value != nil && value.Metadata != nil {
		business = value.Metadata.DisplayPhoneNumber
	}

	msg := domain.Message{
		ID:             raw.ID,
		CorrelationID:  raw.ID,
		ConversationID: raw.From,
		Sender:         raw.From,
		Recipient:      raw.To,
		OccurredAt:     secondsToTime(raw.Timestamp),
		Kind:           normalizeKind(raw.Type),
		Status:         domain.StatusSent,
	}
	if msg.Recipient == "" {
		msg.Recipient = business
	}
	if msg.Recipient == "" {
		msg.Recipient = unknownRecipient
	}
	// messages echoed from the business number belong to the conversation of their recipient
	if business != "" && raw.From == business {
		if raw.To == "" {
			return domain.Message{}, fmt.Errorf("%w: message %s sent by the business without recipient", domain.ErrMalformedPayload, raw.ID)
		}
		msg.ConversationID = raw.To
	}

	if raw.Status != "" {
		if status, err := domain.ParseStatus(raw.Status); err == nil {
			msg.Status = status
		}
	}

	if msg.Kind.Supported() {
		payload, err := normalizePayload(msg.Kind, &raw)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: message %s: %v", domain.ErrMalformedPayload, raw.ID, err)
		}
		msg.Payload = payload
	} else {
		msg.PayloadData = datatypes.JSON(raw.Raw)
	}

	msg.SenderProfile = senderProfile(&raw, value)

	return msg, nil
}

// NormalizeStatus maps a raw status object into a StatusUpdate.
func NormalizeStatus(raw RawStatus) (StatusUpdate, error) {
	if raw.ID == "" {
		return StatusUpdate{}, fmt.Errorf("%w: status without message id", domain.ErrMalformedPayload)
	}
	status, err := domain.ParseStatus(raw.Status)
	if err != nil {
		return StatusUpdate{}, fmt.Errorf("status for %s: %w", raw.ID, err)
	}
	update := StatusUpdate{
		TargetID:    raw.ID,
		Status:      status,
		RecipientID: raw.RecipientID,
	}
	if raw.Timestamp > 0 {
		update.OccurredAt = secondsToTime(raw.Timestamp)
	}
	return update, nil
}

func secondsToTime(s EpochSeconds) time.Time {
	return time.UnixMilli(int64(s) * 1000).UTC()
}

func normalizeKind(t string) domain.Kind {
	if t == "contacts" {
		return domain.KindContact
	}
	return domain.Kind(t)
}

func normalizePayload(kind domain.Kind, raw *RawMessage) (domain.Payload, error) {
	switch kind {
	case domain.KindText:
		if raw.Text == nil {
			return nil, fmt.Errorf("missing text object")
		}
		return domain.Text{Body: raw.Text.Body}, nil
	case domain.KindImage:
		asset, err := mediaAsset(kind, raw.Image)
		if err != nil {
			return nil, err
		}
		return domain.Image{Asset: asset, Caption: raw.Image.Caption}, nil
	case domain.KindAudio:
		asset, err := mediaAsset(kind, raw.Audio)
		if err != nil {
			return nil, err
		}
		return domain.Audio{Asset: asset, Voice: raw.Audio.Voice}, nil
	case domain.KindVideo:
		asset, err := mediaAsset(kind, raw.Video)
		if err != nil {
			return nil, err
		}
		return domain.Video{Asset: asset, Caption: raw.Video.Caption}, nil
	case domain.KindDocument:
		asset, err := mediaAsset(kind, raw.Document)
		if err != nil {
			return nil, err
		}
		return domain.Document{Asset: asset, Filename: raw.Document.Filename, Caption: raw.Document.Caption}, nil
	case domain.KindSticker:
		asset, err := mediaAsset(kind, raw.Sticker)
		if err != nil {
			return nil, err
		}
		return domain.Sticker{Asset: asset}, nil
	case domain.KindLocation:
		if raw.Location == nil {
			return nil, fmt.Errorf("missing location object")
		}
		return domain.Location{
			Lat:     raw.Location.Latitude,
			Lon:     raw.Location.Longitude,
			Name:    raw.Location.Name,
			Address: raw.Location.Address,
		}, nil
	case domain.KindContact:
		card := raw.Contact
		if card == nil && len(raw.Contacts) > 0 {
			card = &raw.Contacts[0]
		}
		if card == nil {
			return nil, fmt.Errorf("missing contact object")
		}
		return contactPayload(card), nil
	}
	return nil, fmt.Errorf("unsupported kind %q", kind)
}

func mediaAsset(kind domain.Kind, media *RawMedia) (domain.Asset, error) {
	if media == nil {
		return domain.Asset{}, fmt.Errorf("missing %s object", kind)
	}
	if media.ID == "" {
		return domain.Asset{}, fmt.Errorf("%s without asset id", kind)
	}
	return domain.Asset{
		AssetID:     media.ID,
		MimeType:    media.MimeType,
		ContentHash: media.SHA256,
	}, nil
}

func contactPayload(card *RawContact) domain.Contact {
	c := domain.Contact{
		Name: domain.ContactName{
			Formatted: card.Name.FormattedName,
			First:     card.Name.FirstName,
			Last:      card.Name.LastName,
		},
	}
	for _, p := range card.Phones {
		c.Phones = append(c.Phones, domain.ContactPhone{Phone: p.Phone, Type: p.Type})
	}
	for _, e := range card.Emails {
		c.Emails = append(c.Emails, domain.ContactEmail{Email: e.Email, Type: e.Type})
	}
	return c
}

// senderProfile prefers reply-context metadata and falls back to the contact card the
// provider sends alongside the message. Identity is always the sender's own address.
func senderProfile(raw *RawMessage, value *Value) *domain.Profile {
	if raw.Context != nil && raw.Context.From != nil {
		name := raw.Context.From.Name
		if name == "" {
			name = domain.UnknownSender
		}
		return &domain.Profile{DisplayName: name, Identity: raw.From}
	}
	if value == nil {
		return nil
	}
	for _, c := range value.Contacts {
		if c.WaID == raw.From && c.Profile.Name != "" {
			return &domain.Profile{DisplayName: c.Profile.Name, Identity: raw.From}
		}
	}
	return nil
}
